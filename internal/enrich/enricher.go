package enrich

import (
	"context"
	"errors"
	"fmt"

	"github.com/opendata-sync/catalog-sync/internal/httpclient"
	"github.com/opendata-sync/catalog-sync/internal/item"
)

// Enricher merges parsed resource payloads into items
type Enricher struct {
	fetcher httpclient.Client
	parsers *Registry
}

// NewEnricher creates an enricher downloading payloads with fetcher
func NewEnricher(fetcher httpclient.Client, parsers *Registry) *Enricher {
	return &Enricher{fetcher: fetcher, parsers: parsers}
}

// Enrich downloads and parses the payload of it when a parser is registered for its format,
// then sets the parser's filter fields and data on it.
//
// The returned keys are every field the parser may derive, data included, whether or not
// enrichment succeeded. They are empty when no parser applies. On error it is left unchanged.
func (e *Enricher) Enrich(ctx context.Context, it item.Item) ([]string, error) {
	if e == nil {
		return nil, nil
	}

	url := it.String(item.FieldURL)
	parser, err := e.parsers.Lookup(it.String(item.FieldFormat))
	if errors.Is(err, ErrNoParser) || url == "" {
		return nil, nil
	}

	derived := append(parser.Fields(), item.FieldData)

	body, err := e.fetcher.Get(ctx, url)
	if err != nil {
		return derived, fmt.Errorf("failed to download %s: %w", url, err)
	}

	result, err := parser.Parse(body)
	if err != nil {
		return derived, fmt.Errorf("failed to parse %s: %w", url, err)
	}

	for field, value := range result.Filters {
		it[field] = value
	}
	it[item.FieldData] = result.Data

	return derived, nil
}
