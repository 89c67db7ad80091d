package enrich

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parser kinds
const (
	KindCSV  = "csv"
	KindJSON = "json"
)

// ErrNoParser is returned when no parser is registered for a format
var ErrNoParser = errors.New("no parser registered")

// Result is the outcome of parsing one payload
type Result struct {
	Data    any
	Filters map[string]any
}

// Parser turns a downloaded payload into item fields
type Parser interface {
	// Parse parses a payload
	Parse(body []byte) (*Result, error)

	// Fields returns the filter fields the parser may set, sorted
	Fields() []string
}

// Definition describes a parser in the parser directory
type Definition struct {
	Format  string            `yaml:"format"`
	Kind    string            `yaml:"kind"`
	Options map[string]any    `yaml:"options,omitempty"`
	Filters map[string]string `yaml:"filters,omitempty"`
}

// Registry maps resource formats to parsers
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser for format, replacing any previous one
func (r *Registry) Register(format string, parser Parser) {
	r.parsers[normalizeFormat(format)] = parser
}

// Lookup returns the parser registered for format
func (r *Registry) Lookup(format string) (Parser, error) {
	if r == nil || format == "" {
		return nil, ErrNoParser
	}
	parser, ok := r.parsers[normalizeFormat(format)]
	if !ok {
		return nil, fmt.Errorf("%w for format %s", ErrNoParser, format)
	}
	return parser, nil
}

// Formats returns the registered formats, sorted
func (r *Registry) Formats() []string {
	formats := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	return formats
}

// NewParser builds the parser of a definition
func NewParser(def *Definition) (Parser, error) {
	switch def.Kind {
	case KindCSV:
		return newCSVParser(def.Options, def.Filters)
	case KindJSON:
		return newJSONParser(def.Options, def.Filters)
	default:
		return nil, fmt.Errorf("unknown parser kind %q", def.Kind)
	}
}

// LoadDir registers a parser for every *.yaml or *.yml definition in dir
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read parser directory: %w", err)
	}

	registry := NewRegistry()
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read parser definition %s: %w", path, err)
		}

		var def Definition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse parser definition %s: %w", path, err)
		}
		if def.Format == "" {
			def.Format = strings.TrimSuffix(entry.Name(), ext)
		}

		parser, err := NewParser(&def)
		if err != nil {
			return nil, fmt.Errorf("parser definition %s: %w", path, err)
		}
		registry.Register(def.Format, parser)
	}

	return registry, nil
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
