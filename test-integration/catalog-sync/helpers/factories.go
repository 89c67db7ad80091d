package helpers

// Package returns a CKAN package document
func Package(id, title string, resources ...map[string]any) map[string]any {
	if resources == nil {
		resources = []map[string]any{}
	}
	return map[string]any{
		"id":                 id,
		"name":               id,
		"title":              title,
		"notes":              "Notes of " + title,
		"url":                "https://example.org/" + id,
		"metadata_created":   "2024-01-01T00:00:00",
		"metadata_modified":  "2024-02-01T00:00:00",
		"organization":       map[string]any{"name": "city", "title": "City Council"},
		"groups":             []map[string]any{{"name": "transport"}},
		"tags":               []map[string]any{{"name": "bus", "display_name": "Bus", "state": "active"}},
		"extras":             []map[string]any{{"key": "frequency", "value": "daily", "state": "active"}},
		"resources":          resources,
		"revision_timestamp": "2024-02-01T00:00:00",
	}
}

// Resource returns a CKAN resource document
func Resource(id, name, format, url string) map[string]any {
	return map[string]any{
		"id":            id,
		"name":          name,
		"description":   "Description of " + name,
		"format":        format,
		"url":           url,
		"created":       "2024-01-01T00:00:00",
		"last_modified": "2024-02-01T00:00:00",
	}
}

// WithVocabularyTag adds a tag belonging to a vocabulary to pkg
func WithVocabularyTag(pkg map[string]any, name, vocabularyID string) map[string]any {
	tags := pkg["tags"].([]map[string]any)
	pkg["tags"] = append(tags, map[string]any{
		"name":          name,
		"display_name":  name,
		"state":         "active",
		"vocabulary_id": vocabularyID,
	})
	return pkg
}
