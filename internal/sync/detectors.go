package sync

import (
	"encoding/json"
	"reflect"
	"slices"

	"github.com/opendata-sync/catalog-sync/internal/item"
)

//go:generate mockgen -destination=mocks/mock_change_detector.go -package=mocks -source=detectors.go ChangeDetector

// ChangeDetector decides whether a candidate item must overwrite its stored counterpart
type ChangeDetector interface {
	// Differs reports whether any field of candidate, other than data and ignore, differs from stored
	Differs(candidate, stored item.Item, ignore []string) bool
}

// DefaultChangeDetector compares the fields of the candidate one by one.
//
// Only keys present on the candidate are examined, so a field that exists only in the
// store never causes an update. Lists are compared element by element in order, so the
// same values in a different order do.
type DefaultChangeDetector struct{}

var _ ChangeDetector = DefaultChangeDetector{}

// Differs implements ChangeDetector
func (DefaultChangeDetector) Differs(candidate, stored item.Item, ignore []string) bool {
	for key, value := range candidate {
		if key == item.FieldData || key == item.FieldID || slices.Contains(ignore, key) {
			continue
		}
		if fieldDiffers(value, stored[key]) {
			return true
		}
	}
	return false
}

func fieldDiffers(candidate, stored any) bool {
	switch c := candidate.(type) {
	case nil:
		return stored != nil
	case string:
		s, ok := stored.(string)
		return !ok || s != c
	case []any:
		return listDiffers(c, stored)
	case []string:
		return listDiffers(toAnySlice(c), stored)
	case map[string]any:
		s, ok := stored.(map[string]any)
		return !ok || !reflect.DeepEqual(normalize(c), normalize(s))
	default:
		return !scalarEqual(candidate, stored)
	}
}

func listDiffers(candidate []any, stored any) bool {
	var s []any
	switch v := stored.(type) {
	case []any:
		s = v
	case []string:
		s = toAnySlice(v)
	default:
		return true
	}
	if s == nil || len(s) != len(candidate) {
		return true
	}

	for i := range candidate {
		if isObject(candidate[i]) || isObject(s[i]) {
			if !sameJSON(candidate[i], s[i]) {
				return true
			}
			continue
		}
		if !scalarEqual(candidate[i], s[i]) {
			return true
		}
	}
	return false
}

func isObject(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// sameJSON compares two values by their JSON encoding. Map keys are encoded in sorted order.
func sameJSON(a, b any) bool {
	ja, errA := json.Marshal(normalize(a))
	jb, errB := json.Marshal(normalize(b))
	if errA != nil || errB != nil {
		return false
	}
	return string(ja) == string(jb)
}

func scalarEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// normalize converts numbers to float64 and typed string slices to []any, recursively,
// so that values decoded by different store drivers compare equal to freshly built ones.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []string:
		return normalize(toAnySlice(t))
	case [][]string:
		out := make([]any, len(t))
		for i, row := range t {
			out[i] = toAnySlice(row)
		}
		return out
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	return v
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
