package model

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testCentroid(t *testing.T) *Centroid {
	t.Helper()
	c, err := NewCentroid([]string{"num__a", "num__b"}, []Cluster{
		{Label: 1, Center: []float64{10, 10}},
		{Label: 0, Center: []float64{0, 0}},
	})
	require.NoError(t, err)
	return c
}

func TestNewCentroid_SortsClusters(t *testing.T) {
	c := testCentroid(t)
	assert.Equal(t, []int{0, 1}, c.Classes())
	assert.Equal(t, []string{"num__a", "num__b"}, c.FeatureNames())
	assert.InDelta(t, 1.0, c.Temperature, 1e-12)
}

func TestNewCentroid_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		features []string
		clusters []Cluster
	}{
		{name: "no features", clusters: []Cluster{{Label: 0}}},
		{name: "no clusters", features: []string{"a"}},
		{name: "dimension", features: []string{"a", "b"}, clusters: []Cluster{{Label: 0, Center: []float64{1}}}},
		{name: "duplicate label", features: []string{"a"}, clusters: []Cluster{
			{Label: 2, Center: []float64{1}},
			{Label: 2, Center: []float64{3}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCentroid(tt.features, tt.clusters)
			assert.Error(t, err)
		})
	}
}

func TestPredict(t *testing.T) {
	c := testCentroid(t)
	x := mat.NewDense(3, 2, []float64{
		1, 1,
		9, 8,
		-3, 0,
	})

	labels, err := c.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, labels)
}

func TestPredictProba(t *testing.T) {
	c := testCentroid(t)
	x := mat.NewDense(2, 2, []float64{
		1, 1,
		5, 5,
	})

	p, err := c.PredictProba(x)
	require.NoError(t, err)
	r, k := p.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, k)

	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, p.At(i, 0)+p.At(i, 1), 1e-12)
	}
	assert.Greater(t, p.At(0, 0), 0.99)
	// equidistant row splits evenly
	assert.InDelta(t, 0.5, p.At(1, 0), 1e-12)
}

func TestPredict_FeatureMismatch(t *testing.T) {
	c := testCentroid(t)
	x := mat.NewDense(1, 3, []float64{1, 2, 3})

	_, err := c.Predict(x)
	require.ErrorIs(t, err, ErrFeatureMismatch)
	_, err = c.PredictProba(x)
	require.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestCheckFeatures(t *testing.T) {
	c := testCentroid(t)
	assert.NoError(t, CheckFeatures(c, []string{"num__a", "num__b"}))
	assert.ErrorIs(t, CheckFeatures(c, []string{"num__a"}), ErrFeatureMismatch)
	assert.ErrorIs(t, CheckFeatures(c, []string{"num__b", "num__a"}), ErrFeatureMismatch)
}

func TestLoadCentroid(t *testing.T) {
	const doc = `{
  "name": "kmeans",
  "features": ["x"],
  "temperature": 2,
  "clusters": [
    {"label": 1, "center": [4]},
    {"label": 0, "center": [0]}
  ]
}`
	c, err := LoadCentroid(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "kmeans", c.Name)
	assert.Equal(t, []int{0, 1}, c.Classes())
	assert.InDelta(t, 2.0, c.Temperature, 1e-12)

	_, err = LoadCentroid(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestCentroid_SaveLoadFile(t *testing.T) {
	c := testCentroid(t)
	path := filepath.Join(t.TempDir(), "model.json")

	var buf bytes.Buffer
	require.NoError(t, c.Save(&buf))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))

	got, err := LoadCentroidFile(path)
	require.NoError(t, err)
	assert.Equal(t, c.Clusters, got.Clusters)
	assert.Equal(t, c.Features, got.Features)

	_, err = LoadCentroidFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
