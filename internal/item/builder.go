package item

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/opendata-sync/catalog-sync/internal/catalog"
)

// Builder turns catalog packages into items
type Builder struct {
	resolver *Resolver
	pipeline *Pipeline
}

// NewBuilder creates a builder resolving tags with resolver.
// pipeline may be nil.
func NewBuilder(resolver *Resolver, pipeline *Pipeline) *Builder {
	return &Builder{resolver: resolver, pipeline: pipeline}
}

// BuildResource builds the item of one resource of pkg
func (b *Builder) BuildResource(ctx context.Context, pkg *catalog.Package, res *catalog.Resource) (Item, error) {
	it := b.base(pkg)
	it[FieldTitle] = res.Name
	it[FieldDescription] = res.Description
	it[FieldCreated] = res.Created
	it[FieldUpdated] = res.Modified()
	it[FieldURL] = res.URL
	it[FieldFormat] = res.Format
	it[FieldCKANID] = res.ID

	return b.finish(ctx, pkg, it)
}

// BuildPackage builds the single item of pkg in group mode, embedding its resources
func (b *Builder) BuildPackage(ctx context.Context, pkg *catalog.Package) (Item, error) {
	it := b.base(pkg)
	it[FieldTitle] = pkg.Title
	it[FieldDescription] = pkg.Notes
	it[FieldCreated] = pkg.MetadataCreated
	it[FieldUpdated] = pkg.Modified()
	it[FieldURL] = pkg.URL
	it[FieldCKANID] = pkg.ID

	resources := make([]any, 0, len(pkg.RawResources))
	for _, raw := range pkg.RawResources {
		resources = append(resources, raw)
	}
	it[FieldResources] = resources

	return b.finish(ctx, pkg, it)
}

// base sets the fields shared by both modes
func (*Builder) base(pkg *catalog.Package) Item {
	groups := make([]any, 0, len(pkg.Groups))
	for _, g := range pkg.Groups {
		groups = append(groups, g.Name)
	}

	extras := make(map[string]any, len(pkg.Extras))
	for i := range pkg.Extras {
		if pkg.Extras[i].IsActive() {
			extras[pkg.Extras[i].Key] = pkg.Extras[i].Value
		}
	}

	return Item{
		FieldGroups:       groups,
		FieldOrganization: organizationName(pkg.Organization),
		FieldPackage:      pkg.Title,
		FieldNotes:        pkg.Notes,
		FieldExtras:       extras,
	}
}

// finish resolves tags into facets, then runs the post-processors
func (b *Builder) finish(ctx context.Context, pkg *catalog.Package, it Item) (Item, error) {
	logger := logr.FromContextOrDiscard(ctx)

	for i := range pkg.Tags {
		tag := &pkg.Tags[i]
		if !tag.IsActive() {
			continue
		}

		facet, err := b.resolver.Resolve(ctx, tag)
		if err != nil {
			logger.V(1).Info("Skipping tag with unresolved vocabulary",
				"package", pkg.Name, "tag", tag.Name, "error", err.Error())
			continue
		}

		values, isFacet := it[facet].([]any)
		if _, taken := it[facet]; taken && !isFacet || facet == FieldGroups || facet == FieldResources {
			logger.V(1).Info("Skipping tag whose facet collides with an item field",
				"package", pkg.Name, "tag", tag.Name, "facet", facet)
			continue
		}
		it[facet] = append(values, tag.Label())
	}

	if err := b.pipeline.Process(ctx, it); err != nil {
		return nil, fmt.Errorf("item %s: %w", it.CKANID(), err)
	}

	return it, nil
}

func organizationName(org *catalog.Organization) string {
	if org == nil {
		return ""
	}
	if org.Title != "" {
		return org.Title
	}
	return org.Name
}
