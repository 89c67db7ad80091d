package item

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/opendata-sync/catalog-sync/internal/config"
)

// Processor rewrites a built item in place
type Processor interface {
	Name() string
	Process(ctx context.Context, it Item) error
}

// BuilderFunc creates a Processor from its configured options
type BuilderFunc func(options map[string]any) (Processor, error)

// Registry maps post-processor names to their builders
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates a registry holding the built-in post-processors
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]BuilderFunc)}
	r.Register("set", buildSet)
	r.Register("rename", buildRename)
	r.Register("drop", buildDrop)
	return r
}

// Register adds a builder, replacing any builder of the same name
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a processor by name with the given options
func (r *Registry) Build(name string, options map[string]any) (Processor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown post-processor: %s", name)
	}
	return builder(options)
}

// Names returns the registered names, sorted
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}

// Pipeline runs processors in order
type Pipeline struct {
	processors []Processor
}

// NewPipeline creates a pipeline running processors in the given order
func NewPipeline(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Process runs the item through every processor, stopping at the first error
func (p *Pipeline) Process(ctx context.Context, it Item) error {
	if p == nil {
		return nil
	}
	for _, processor := range p.processors {
		if err := processor.Process(ctx, it); err != nil {
			return fmt.Errorf("post-processor %s: %w", processor.Name(), err)
		}
	}
	return nil
}

// Len returns the number of processors in the pipeline
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.processors)
}

// setProcessor assigns constant values, e.g. a source label
type setProcessor struct {
	values map[string]any
}

func buildSet(options map[string]any) (Processor, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("set: at least one field is required")
	}
	for field := range options {
		if field == FieldCKANID || field == FieldID {
			return nil, fmt.Errorf("set: field %s cannot be overwritten", field)
		}
	}
	return &setProcessor{values: maps.Clone(options)}, nil
}

func (*setProcessor) Name() string { return "set" }

func (p *setProcessor) Process(_ context.Context, it Item) error {
	maps.Copy(it, p.values)
	return nil
}

// renameProcessor moves fields to a new name
type renameProcessor struct {
	fields map[string]string
}

func buildRename(options map[string]any) (Processor, error) {
	fields := make(map[string]string, len(options))
	for from, to := range options {
		target, ok := to.(string)
		if !ok || target == "" {
			return nil, fmt.Errorf("rename: target of %s must be a non-empty string", from)
		}
		if from == FieldCKANID || target == FieldCKANID {
			return nil, fmt.Errorf("rename: %s cannot be renamed", FieldCKANID)
		}
		fields[from] = target
	}
	return &renameProcessor{fields: fields}, nil
}

func (*renameProcessor) Name() string { return "rename" }

func (p *renameProcessor) Process(_ context.Context, it Item) error {
	for from, to := range p.fields {
		if value, ok := it[from]; ok {
			delete(it, from)
			it[to] = value
		}
	}
	return nil
}

// dropProcessor removes fields
type dropProcessor struct {
	fields []string
}

func buildDrop(options map[string]any) (Processor, error) {
	raw, ok := options["fields"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("drop: fields must be a non-empty list")
	}
	fields := make([]string, 0, len(raw))
	for _, f := range raw {
		name, ok := f.(string)
		if !ok {
			return nil, fmt.Errorf("drop: field names must be strings, got %T", f)
		}
		if name == FieldCKANID {
			return nil, fmt.Errorf("drop: %s cannot be dropped", FieldCKANID)
		}
		fields = append(fields, name)
	}
	return &dropProcessor{fields: fields}, nil
}

func (*dropProcessor) Name() string { return "drop" }

func (p *dropProcessor) Process(_ context.Context, it Item) error {
	for _, f := range p.fields {
		delete(it, f)
	}
	return nil
}

// BuildPipeline builds the configured post-processors in order
func (r *Registry) BuildPipeline(configs []config.PostProcessorConfig) (*Pipeline, error) {
	processors := make([]Processor, 0, len(configs))
	for i, cfg := range configs {
		processor, err := r.Build(cfg.Name, cfg.Options)
		if err != nil {
			return nil, fmt.Errorf("postProcessors[%d]: %w", i, err)
		}
		processors = append(processors, processor)
	}
	return NewPipeline(processors...), nil
}
