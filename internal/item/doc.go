// Package item builds the records written to the document store.
//
// An Item is built from one CKAN package and one of its resources
// (resource mode) or from a whole package (group mode). Tags are resolved
// through a Resolver into facet lists keyed by vocabulary name, and the
// finished item is handed to an optional Pipeline of post-processors
// that may rewrite it in place.
package item
