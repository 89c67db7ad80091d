package enrich

import (
	"fmt"

	"github.com/tidwall/gjson"
)

type jsonParser struct {
	dataPath string
	filters  map[string]string
}

func newJSONParser(options map[string]any, filters map[string]string) (*jsonParser, error) {
	p := &jsonParser{dataPath: "@this", filters: filters}
	if raw, ok := options["data"]; ok {
		path, isString := raw.(string)
		if !isString || path == "" {
			return nil, fmt.Errorf("json: data must be a non-empty gjson path")
		}
		p.dataPath = path
	}
	for field, path := range filters {
		if path == "" {
			return nil, fmt.Errorf("json: filter %s has an empty path", field)
		}
	}
	return p, nil
}

func (p *jsonParser) Fields() []string {
	return sortedKeys(p.filters)
}

// Parse evaluates the configured paths. Paths without a match leave their filter unset.
func (p *jsonParser) Parse(body []byte) (*Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("json: invalid document")
	}

	filters := make(map[string]any, len(p.filters))
	for field, path := range p.filters {
		if value := gjson.GetBytes(body, path); value.Exists() {
			filters[field] = value.Value()
		}
	}

	return &Result{
		Data:    gjson.GetBytes(body, p.dataPath).Value(),
		Filters: filters,
	}, nil
}
