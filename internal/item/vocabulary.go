package item

import (
	"context"
	"fmt"

	"github.com/opendata-sync/catalog-sync/internal/catalog"
)

// VocabularyLookup resolves a vocabulary id remotely
type VocabularyLookup interface {
	LookupVocabulary(ctx context.Context, id string) (*catalog.Vocabulary, error)
}

// Resolver maps tag vocabulary ids to facet names.
// Resolved names are cached until Reset is called. A Resolver is not safe for concurrent use.
type Resolver struct {
	lookup       VocabularyLookup
	defaultFacet string
	cache        map[string]string
}

// NewResolver creates a resolver backed by lookup
func NewResolver(lookup VocabularyLookup) *Resolver {
	return &Resolver{
		lookup:       lookup,
		defaultFacet: DefaultFacet,
		cache:        make(map[string]string),
	}
}

// Resolve returns the facet a tag belongs to
func (r *Resolver) Resolve(ctx context.Context, tag *catalog.Tag) (string, error) {
	if tag.VocabularyID == "" {
		return r.defaultFacet, nil
	}

	if name, ok := r.cache[tag.VocabularyID]; ok {
		return name, nil
	}

	vocab, err := r.lookup.LookupVocabulary(ctx, tag.VocabularyID)
	if err != nil {
		return "", fmt.Errorf("vocabulary %s: %w", tag.VocabularyID, err)
	}

	r.cache[tag.VocabularyID] = vocab.Name
	return vocab.Name, nil
}

// Len returns the number of cached vocabularies
func (r *Resolver) Len() int {
	return len(r.cache)
}

// Reset drops every cached vocabulary
func (r *Resolver) Reset() {
	clear(r.cache)
}
