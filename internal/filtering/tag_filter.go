package filtering

import (
	"fmt"
	"slices"
)

// TagFilter handles tag-based filtering using exact string matching
type TagFilter interface {
	// ShouldInclude determines if a package with given tags should be included based on include/exclude tag lists
	// Returns (shouldInclude bool, reason string)
	ShouldInclude(tags []string, include, exclude []string) (bool, string)
}

// DefaultTagFilter implements tag filtering using exact string matching
type DefaultTagFilter struct{}

// NewDefaultTagFilter creates a new DefaultTagFilter
func NewDefaultTagFilter() *DefaultTagFilter {
	return &DefaultTagFilter{}
}

// ShouldInclude determines if a package with given tags should be included based on include/exclude tag lists.
// Exclude wins over include; with include tags present at least one package tag must match.
func (*DefaultTagFilter) ShouldInclude(tags []string, include, exclude []string) (bool, string) {
	for _, tag := range tags {
		if slices.Contains(exclude, tag) {
			return false, fmt.Sprintf("excluded by tag '%s'", tag)
		}
	}

	if len(include) > 0 {
		for _, tag := range tags {
			if slices.Contains(include, tag) {
				return true, fmt.Sprintf("included by tag '%s'", tag)
			}
		}
		return false, fmt.Sprintf("no matching tags found in include list %v (package tags: %v)", include, tags)
	}

	if len(exclude) > 0 {
		return true, fmt.Sprintf("no matching tags in exclude list %v (package tags: %v)", exclude, tags)
	}
	return true, "no tag filters specified"
}
