package catalog

import (
	"context"
	"encoding/json"
)

// StateActive is the state of tags and extras that are visible to the store
const StateActive = "active"

//go:generate mockgen -destination=mocks/mock_source.go -package=mocks -source=types.go Source

// Source is the remote catalog consumed by the sync engine
type Source interface {
	// Export fetches every package of the catalog in one pass
	Export(ctx context.Context) (*Snapshot, error)

	// LookupVocabulary resolves a tag vocabulary id to its vocabulary
	LookupVocabulary(ctx context.Context, id string) (*Vocabulary, error)
}

// Snapshot is the full set of packages fetched in one run, in catalog order
type Snapshot struct {
	Packages []Package
}

// Len returns the number of packages in the snapshot
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Packages)
}

// Package is a CKAN dataset
type Package struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Title             string        `json:"title"`
	Notes             string        `json:"notes"`
	URL               string        `json:"url"`
	State             string        `json:"state,omitempty"`
	MetadataCreated   string        `json:"metadata_created"`
	MetadataModified  string        `json:"metadata_modified"`
	RevisionTimestamp string        `json:"revision_timestamp,omitempty"`
	Organization      *Organization `json:"organization"`
	Resources         []Resource    `json:"resources"`
	Groups            []Group       `json:"groups"`
	Tags              []Tag         `json:"tags"`
	Extras            []Extra       `json:"extras"`

	// RawResources holds the resources exactly as the catalog returned them
	RawResources []map[string]any `json:"-"`
}

// UnmarshalJSON decodes a package and keeps an untyped copy of its resources
func (p *Package) UnmarshalJSON(data []byte) error {
	type plain Package
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var raw struct {
		Resources []map[string]any `json:"resources"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Package(decoded)
	p.RawResources = raw.Resources
	return nil
}

// Modified returns the best available revision timestamp of the package
func (p *Package) Modified() string {
	if p.RevisionTimestamp != "" {
		return p.RevisionTimestamp
	}
	return p.MetadataModified
}

// Resource is a downloadable file belonging to a package
type Resource struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	URL               string `json:"url"`
	Format            string `json:"format"`
	Created           string `json:"created"`
	LastModified      string `json:"last_modified"`
	RevisionTimestamp string `json:"revision_timestamp,omitempty"`
}

// Modified returns the best available revision timestamp of the resource
func (r *Resource) Modified() string {
	if r.RevisionTimestamp != "" {
		return r.RevisionTimestamp
	}
	return r.LastModified
}

// Organization owns a package
type Organization struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Group is a thematic collection a package belongs to
type Group struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Tag labels a package, optionally inside a vocabulary
type Tag struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	State        string `json:"state"`
	VocabularyID string `json:"vocabulary_id"`
}

// IsActive reports whether the tag is visible. Only tags in the active state are.
func (t *Tag) IsActive() bool {
	return t.State == StateActive
}

// Label returns the display name, falling back to the name
func (t *Tag) Label() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.Name
}

// Extra is a free-form key/value pair on a package
type Extra struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	State string `json:"state"`
}

// IsActive reports whether the extra is visible. Extras without a state are active,
// since package_show stopped reporting extra states in CKAN 2.9.
func (e *Extra) IsActive() bool {
	return e.State == "" || e.State == StateActive
}

// Vocabulary is a named tag vocabulary
type Vocabulary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
