package filtering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTagFilter_ShouldInclude(t *testing.T) {
	t.Parallel()

	filter := NewDefaultTagFilter()

	tests := []struct {
		name     string
		tags     []string
		include  []string
		exclude  []string
		expected bool
	}{
		{name: "no filters", tags: []string{"transport", "buses"}, expected: true},
		{name: "nil tags with no filters", tags: nil, expected: true},
		{name: "include match", tags: []string{"transport", "buses"}, include: []string{"buses"}, expected: true},
		{name: "include miss", tags: []string{"transport"}, include: []string{"health"}, expected: false},
		{name: "include with no tags", tags: nil, include: []string{"health"}, expected: false},
		{name: "exclude match", tags: []string{"transport", "draft"}, exclude: []string{"draft"}, expected: false},
		{name: "exclude miss", tags: []string{"transport"}, exclude: []string{"draft"}, expected: true},
		{
			name:     "exclude wins over include",
			tags:     []string{"transport", "draft"},
			include:  []string{"transport"},
			exclude:  []string{"draft"},
			expected: false,
		},
		{name: "case sensitive", tags: []string{"Transport"}, include: []string{"transport"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			included, reason := filter.ShouldInclude(tt.tags, tt.include, tt.exclude)
			assert.Equal(t, tt.expected, included, reason)
			assert.NotEmpty(t, reason)
		})
	}
}
