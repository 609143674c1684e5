package model

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Cluster is one labeled centroid in feature space.
type Cluster struct {
	Label  int       `json:"label"`
	Center []float64 `json:"center"`
}

// Centroid is a nearest-centroid classifier. The predicted label is the
// closest center by Euclidean distance; probabilities are a softmax over
// negative distances scaled by Temperature.
type Centroid struct {
	Name        string    `json:"name,omitempty"`
	Version     string    `json:"version,omitempty"`
	Features    []string  `json:"features"`
	Clusters    []Cluster `json:"clusters"`
	Temperature float64   `json:"temperature,omitempty"`
}

// NewCentroid validates and returns a centroid classifier. Clusters are
// ordered by label.
func NewCentroid(featureNames []string, clusters []Cluster) (*Centroid, error) {
	c := &Centroid{
		Features: featureNames,
		Clusters: clusters,
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Centroid) init() error {
	if len(c.Features) == 0 {
		return fmt.Errorf("centroid model has no features")
	}
	if len(c.Clusters) == 0 {
		return fmt.Errorf("centroid model has no clusters")
	}
	if c.Temperature <= 0 {
		c.Temperature = 1
	}

	slices.SortFunc(c.Clusters, func(a, b Cluster) int { return a.Label - b.Label })
	for i, cl := range c.Clusters {
		if len(cl.Center) != len(c.Features) {
			return fmt.Errorf("%w: cluster %d has %d dimensions, expected %d", ErrFeatureMismatch, cl.Label, len(cl.Center), len(c.Features))
		}
		if i > 0 && c.Clusters[i-1].Label == cl.Label {
			return fmt.Errorf("duplicate cluster label %d", cl.Label)
		}
	}
	return nil
}

// LoadCentroid reads a JSON centroid artifact.
func LoadCentroid(r io.Reader) (*Centroid, error) {
	var c Centroid
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding centroid model: %w", err)
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCentroidFile reads a JSON centroid artifact from path.
func LoadCentroidFile(path string) (*Centroid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model file %s: %w", path, err)
	}
	defer f.Close()
	return LoadCentroid(f)
}

// Save writes the model as JSON.
func (c *Centroid) Save(w io.Writer) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(c)
}

func (c *Centroid) FeatureNames() []string {
	return slices.Clone(c.Features)
}

func (c *Centroid) Classes() []int {
	labels := make([]int, len(c.Clusters))
	for i, cl := range c.Clusters {
		labels[i] = cl.Label
	}
	return labels
}

func (c *Centroid) distances(x mat.Matrix) ([][]float64, error) {
	rows, cols := x.Dims()
	if cols != len(c.Features) {
		return nil, fmt.Errorf("%w: got %d columns, expected %d", ErrFeatureMismatch, cols, len(c.Features))
	}

	out := make([][]float64, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, x)
		d := make([]float64, len(c.Clusters))
		for k, cl := range c.Clusters {
			d[k] = floats.Distance(row, cl.Center, 2)
		}
		out[i] = d
	}
	return out, nil
}

func (c *Centroid) Predict(x mat.Matrix) ([]int, error) {
	dist, err := c.distances(x)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(dist))
	for i, d := range dist {
		labels[i] = c.Clusters[floats.MinIdx(d)].Label
	}
	return labels, nil
}

func (c *Centroid) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	dist, err := c.distances(x)
	if err != nil {
		return nil, err
	}
	if len(dist) == 0 {
		return nil, fmt.Errorf("no rows to score")
	}

	out := mat.NewDense(len(dist), len(c.Clusters), nil)
	for i, d := range dist {
		p := make([]float64, len(d))
		nearest := floats.Min(d)
		for k, v := range d {
			p[k] = math.Exp(-(v - nearest) / c.Temperature)
		}
		floats.Scale(1/floats.Sum(p), p)
		out.SetRow(i, p)
	}
	return out, nil
}
