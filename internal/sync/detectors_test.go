package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opendata-sync/catalog-sync/internal/item"
)

func TestDefaultChangeDetector_Differs(t *testing.T) {
	t.Parallel()

	base := func() item.Item {
		return item.Item{
			item.FieldCKANID:       "r1",
			item.FieldTitle:        "Bus stops",
			item.FieldGroups:       []any{"transport", "infrastructure"},
			item.FieldExtras:       map[string]any{"frequency": "daily"},
			item.DefaultFacet:      []any{"Bus", "Stops"},
			item.FieldResources:    []any{map[string]any{"id": "a", "size": 10}},
			item.FieldOrganization: "Transit",
		}
	}

	tests := []struct {
		name      string
		candidate func() item.Item
		stored    func() item.Item
		ignore    []string
		want      bool
	}{
		{
			name:      "identical",
			candidate: base,
			stored:    base,
			want:      false,
		},
		{
			name:      "string_changed",
			candidate: func() item.Item { it := base(); it[item.FieldTitle] = "Tram stops"; return it },
			stored:    base,
			want:      true,
		},
		{
			name:      "string_missing_in_store",
			candidate: func() item.Item { it := base(); it[item.FieldNotes] = ""; return it },
			stored:    base,
			want:      true,
		},
		{
			name:      "data_only_difference",
			candidate: func() item.Item { it := base(); it[item.FieldData] = [][]string{{"x"}}; return it },
			stored:    func() item.Item { it := base(); it[item.FieldData] = [][]string{{"y"}}; return it },
			want:      false,
		},
		{
			name:      "ignored_derived_field",
			candidate: func() item.Item { it := base(); it["cols"] = 3; return it },
			stored:    func() item.Item { it := base(); it["cols"] = 2; return it },
			ignore:    []string{"cols", item.FieldData},
			want:      false,
		},
		{
			name:      "stored_only_field_never_triggers_update",
			candidate: base,
			stored:    func() item.Item { it := base(); it["legacy"] = "value"; return it },
			want:      false,
		},
		{
			name:      "reordered_list_triggers_update",
			candidate: func() item.Item { it := base(); it[item.FieldGroups] = []any{"infrastructure", "transport"}; return it },
			stored:    base,
			want:      true,
		},
		{
			name:      "list_length_changed",
			candidate: func() item.Item { it := base(); it[item.DefaultFacet] = []any{"Bus"}; return it },
			stored:    base,
			want:      true,
		},
		{
			name:      "list_missing_in_store",
			candidate: func() item.Item { it := base(); it["theme"] = []any{"Mobility"}; return it },
			stored:    base,
			want:      true,
		},
		{
			name:      "empty_lists_equal",
			candidate: func() item.Item { it := base(); it[item.FieldGroups] = []any{}; return it },
			stored:    func() item.Item { it := base(); it[item.FieldGroups] = []any{}; return it },
			want:      false,
		},
		{
			name: "object_elements_compared_structurally",
			candidate: func() item.Item {
				it := base()
				it[item.FieldResources] = []any{map[string]any{"size": 10, "id": "a"}}
				return it
			},
			stored: func() item.Item {
				it := base()
				it[item.FieldResources] = []any{map[string]any{"id": "a", "size": float64(10)}}
				return it
			},
			want: false,
		},
		{
			name: "object_element_changed",
			candidate: func() item.Item {
				it := base()
				it[item.FieldResources] = []any{map[string]any{"id": "a", "size": 11}}
				return it
			},
			stored: base,
			want:   true,
		},
		{
			name:      "extras_changed",
			candidate: func() item.Item { it := base(); it[item.FieldExtras] = map[string]any{"frequency": "weekly"}; return it },
			stored:    base,
			want:      true,
		},
		{
			name:      "numbers_compared_by_value",
			candidate: func() item.Item { it := base(); it["size"] = 42; return it },
			stored:    func() item.Item { it := base(); it["size"] = int64(42); return it },
			want:      false,
		},
		{
			name:      "record_key_is_not_compared",
			candidate: func() item.Item { it := base(); it[item.FieldID] = "x"; return it },
			stored:    func() item.Item { it := base(); it[item.FieldID] = "y"; return it },
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := DefaultChangeDetector{}.Differs(tt.candidate(), tt.stored(), tt.ignore)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrphanIDs(t *testing.T) {
	t.Parallel()

	fetched := map[string]struct{}{"A": {}, "C": {}}
	assert.Equal(t, []string{"B"}, orphanIDs([]string{"A", "B", "C", "B"}, fetched))
	assert.Empty(t, orphanIDs([]string{"A", "C"}, fetched))
	assert.Empty(t, orphanIDs(nil, fetched))
}
