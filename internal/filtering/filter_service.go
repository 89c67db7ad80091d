package filtering

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/opendata-sync/catalog-sync/internal/catalog"
	"github.com/opendata-sync/catalog-sync/internal/config"
)

// FilterService coordinates name and tag filtering of a catalog snapshot
type FilterService interface {
	// ApplyFilters returns the packages of the snapshot that pass the filter, in catalog order
	ApplyFilters(ctx context.Context, snapshot *catalog.Snapshot, filter *config.FilterConfig) (*catalog.Snapshot, error)
}

// defaultFilterService implements filtering coordination using name and tag filters
type defaultFilterService struct {
	nameFilter NameFilter
	tagFilter  TagFilter
}

// NewDefaultFilterService creates a new defaultFilterService with default filter implementations
func NewDefaultFilterService() FilterService {
	return &defaultFilterService{
		nameFilter: NewDefaultNameFilter(),
		tagFilter:  NewDefaultTagFilter(),
	}
}

// NewFilterService creates a new defaultFilterService with custom filter implementations
func NewFilterService(nameFilter NameFilter, tagFilter TagFilter) FilterService {
	return &defaultFilterService{
		nameFilter: nameFilter,
		tagFilter:  tagFilter,
	}
}

// ApplyFilters filters the snapshot based on filter configuration.
// A nil filter returns the snapshot unchanged. An invalid pattern fails the whole call
// instead of silently dropping every package.
func (s *defaultFilterService) ApplyFilters(
	ctx context.Context,
	snapshot *catalog.Snapshot,
	filter *config.FilterConfig,
) (*catalog.Snapshot, error) {
	if filter == nil || snapshot == nil {
		return snapshot, nil
	}

	logger := logr.FromContextOrDiscard(ctx)

	var nameInclude, nameExclude, tagInclude, tagExclude []string
	if filter.Names != nil {
		nameInclude = filter.Names.Include
		nameExclude = filter.Names.Exclude
	}
	if filter.Tags != nil {
		tagInclude = filter.Tags.Include
		tagExclude = filter.Tags.Exclude
	}

	if err := validatePatterns(nameInclude, nameExclude); err != nil {
		return nil, err
	}

	filtered := &catalog.Snapshot{Packages: make([]catalog.Package, 0, len(snapshot.Packages))}
	for _, pkg := range snapshot.Packages {
		tags := activeTagNames(&pkg)
		included, reason := s.shouldIncludeWithReason(pkg.Name, tags, nameInclude, nameExclude, tagInclude, tagExclude)
		if included {
			filtered.Packages = append(filtered.Packages, pkg)
		}
		logger.V(1).Info("Package filter decision",
			"package", pkg.Name,
			"included", included,
			"reason", reason)
	}

	logger.Info("Catalog filtering completed",
		"originalPackageCount", snapshot.Len(),
		"filteredPackageCount", filtered.Len())

	return filtered, nil
}

// shouldIncludeWithReason determines if a package should be included and provides detailed reasoning
// Both name and tag filters must pass for a package to be included
func (s *defaultFilterService) shouldIncludeWithReason(
	name string,
	tags []string,
	nameInclude, nameExclude, tagInclude, tagExclude []string) (bool, string) {
	nameIncluded, nameReason := s.nameFilter.ShouldInclude(name, nameInclude, nameExclude)
	if !nameIncluded {
		return false, fmt.Sprintf("name filter: %s", nameReason)
	}

	tagIncluded, tagReason := s.tagFilter.ShouldInclude(tags, tagInclude, tagExclude)
	if !tagIncluded {
		return false, fmt.Sprintf("tag filter: %s", tagReason)
	}

	inclusionReasons := []string{}
	if len(nameInclude) > 0 || len(nameExclude) > 0 {
		inclusionReasons = append(inclusionReasons, fmt.Sprintf("name filter: %s", nameReason))
	}
	if len(tagInclude) > 0 || len(tagExclude) > 0 {
		inclusionReasons = append(inclusionReasons, fmt.Sprintf("tag filter: %s", tagReason))
	}

	if len(inclusionReasons) == 0 {
		return true, "no filters specified, default include"
	}

	return true, "passed all filters: " + strings.Join(inclusionReasons, " AND ")
}

// activeTagNames returns the names of the package tags that are visible to the store
func activeTagNames(pkg *catalog.Package) []string {
	names := make([]string, 0, len(pkg.Tags))
	for i := range pkg.Tags {
		if pkg.Tags[i].IsActive() {
			names = append(names, pkg.Tags[i].Name)
		}
	}
	return names
}

func validatePatterns(patternSets ...[]string) error {
	for _, patterns := range patternSets {
		for _, pattern := range patterns {
			if _, err := compilePattern(pattern); err != nil {
				return fmt.Errorf("invalid name pattern %q: %w", pattern, err)
			}
		}
	}
	return nil
}
