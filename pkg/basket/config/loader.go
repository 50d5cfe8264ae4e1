package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/filter"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/predicate"
)

// Presets is a file of named, reusable rule filters.
//
//	queries:
//	  strong:
//	    metrics: [lift, confidence]
//	    values: [2, 0.5]
//	    comp_ops: [">", ">="]
//	    bool_ops: ["&", null]
//	products:
//	  milk:
//	    search_type: any
//	    rule_type: antecedents
//	    products: [Milk]
type Presets struct {
	Queries  map[string]predicate.Input    `yaml:"queries"`
	Products map[string]filter.ProductQuery `yaml:"products"`
}

// LoadPresets reads a presets file.
func LoadPresets(path string) (*Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Presets
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Loader loads the presets file and compiles every clause query.
type Loader struct {
	PresetsPath string
}

// Components holds compiled presets.
type Components struct {
	Queries  map[string]predicate.Query
	Products map[string]filter.ProductQuery
}

// QueryNames returns the preset query names in sorted order.
func (c *Components) QueryNames() []string {
	names := make([]string, 0, len(c.Queries))
	for name := range c.Queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load returns empty components when no path is configured.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{
		Queries:  map[string]predicate.Query{},
		Products: map[string]filter.ProductQuery{},
	}
	if l.PresetsPath == "" {
		return comp, nil
	}

	presets, err := LoadPresets(l.PresetsPath)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	for name, in := range presets.Queries {
		compiled, err := in.Compile()
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		q, err := compiled.Query()
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		comp.Queries[name] = q
	}
	for name, pq := range presets.Products {
		if _, err := filter.ParseSearchType(pq.Search); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		comp.Products[name] = pq
	}
	return comp, nil
}
