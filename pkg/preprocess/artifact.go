package preprocess

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/mchmarny/riskscore/pkg/features"
)

const fileMode = 0600

// Artifact is the serialized form of a fitted preprocessor.
type Artifact struct {
	SchemaVersion string              `json:"schema_version"`
	Numeric       []NumericParams     `json:"numeric"`
	Categorical   []CategoricalParams `json:"categorical"`
}

// Save writes the fitted state as JSON.
func (p *Preprocessor) Save(w io.Writer) error {
	if !p.fitted {
		return ErrNotFitted
	}
	a := Artifact{
		SchemaVersion: features.SchemaVersion,
		Numeric:       p.num,
		Categorical:   p.cat,
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	if err := e.Encode(a); err != nil {
		return fmt.Errorf("encoding preprocessor: %w", err)
	}
	return nil
}

// SaveFile writes the fitted state to path.
func (p *Preprocessor) SaveFile(path string) (retErr error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("creating preprocessor file %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("closing preprocessor file: %w", cerr)
		}
	}()
	return p.Save(f)
}

// Load reads a fitted preprocessor. The artifact must carry the current
// schema version and exactly the current column lists, in order.
func Load(r io.Reader) (*Preprocessor, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding preprocessor: %w", err)
	}

	p := New()
	if a.SchemaVersion != features.SchemaVersion {
		return nil, fmt.Errorf("%w: artifact schema %q, expected %q", ErrSchemaMismatch, a.SchemaVersion, features.SchemaVersion)
	}

	numCols := make([]string, len(a.Numeric))
	for i, n := range a.Numeric {
		if n.Scale == 0 {
			return nil, fmt.Errorf("%w: zero scale for %s", ErrSchemaMismatch, n.Column)
		}
		if err := n.check(); err != nil {
			return nil, err
		}
		numCols[i] = n.Column
	}
	if !slices.Equal(numCols, p.numeric) {
		return nil, fmt.Errorf("%w: numeric columns %v, expected %v", ErrSchemaMismatch, numCols, p.numeric)
	}

	catCols := make([]string, len(a.Categorical))
	for i := range a.Categorical {
		catCols[i] = a.Categorical[i].Column
		a.Categorical[i].buildIndex()
	}
	if !slices.Equal(catCols, p.categorical) {
		return nil, fmt.Errorf("%w: categorical columns %v, expected %v", ErrSchemaMismatch, catCols, p.categorical)
	}

	p.num = a.Numeric
	p.cat = a.Categorical
	p.fitted = true
	return p, nil
}

// LoadFile reads a fitted preprocessor from path.
func LoadFile(path string) (*Preprocessor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening preprocessor file %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}
