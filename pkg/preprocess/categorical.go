package preprocess

import (
	"slices"
	"strconv"
)

// CategoricalParams are the learned parameters for one categorical column.
type CategoricalParams struct {
	Column       string   `json:"column"`
	MostFrequent string   `json:"most_frequent"`
	Categories   []string `json:"categories"`

	index map[string]int
}

// SortCategories orders categories numerically when every value parses as
// a number and lexicographically otherwise.
func SortCategories(cats []string) {
	nums := make(map[string]float64, len(cats))
	for _, c := range cats {
		f, err := strconv.ParseFloat(c, 64)
		if err != nil {
			slices.Sort(cats)
			return
		}
		nums[c] = f
	}
	slices.SortFunc(cats, func(a, b string) int {
		switch {
		case nums[a] < nums[b]:
			return -1
		case nums[a] > nums[b]:
			return 1
		}
		return 0
	})
}

// fitCategorical learns the vocabulary and the most frequent category.
// Ties on frequency go to the category that sorts first.
func fitCategorical(column string, vals []string, ok []bool) CategoricalParams {
	counts := make(map[string]int)
	for i, v := range vals {
		if ok[i] {
			counts[v]++
		}
	}

	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	SortCategories(cats)

	p := CategoricalParams{
		Column:     column,
		Categories: cats,
	}

	best := 0
	for _, c := range cats {
		if counts[c] > best {
			best = counts[c]
			p.MostFrequent = c
		}
	}

	p.buildIndex()
	return p
}

func (p *CategoricalParams) buildIndex() {
	p.index = make(map[string]int, len(p.Categories))
	for i, c := range p.Categories {
		p.index[c] = i
	}
}

// width is the number of one-hot columns the parameter emits.
func (p CategoricalParams) width() int {
	return len(p.Categories)
}

// encode writes the one-hot block for v into dst, which must be zeroed and
// width() long. Missing values take the most frequent category; categories
// unseen at fit leave the block all zero.
func (p CategoricalParams) encode(v string, present bool, dst []float64) {
	if !present {
		v = p.MostFrequent
	}
	if i, ok := p.index[v]; ok {
		dst[i] = 1
	}
}
