// Package catalog provides access to a remote CKAN open-data catalog.
//
// The Source interface is the only thing the sync engine depends on. It exposes a
// single bulk export returning an immutable Snapshot of every package (with its
// resources, tags, groups, organization and extras) and an on-demand vocabulary
// lookup used to turn tag vocabulary ids into facet names.
//
// Client implements Source against the CKAN action API (api/3/action). Every request
// is retried with exponential backoff on network failures and 5xx/429 answers, and the
// {"success": ..., "result": ...} envelope is unwrapped before decoding.
//
// Filter narrows a Snapshot with name globs and tag include/exclude lists. Packages
// removed by the filter are treated exactly like packages deleted upstream.
package catalog
