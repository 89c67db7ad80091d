// Package sync reconciles a CKAN catalog snapshot with the items of a document store.
//
// # Manager
//
// Manager.PerformSync runs one full pass:
//
//   - connect to the store (a failure is a ConnectionError and nothing else happens)
//   - export and filter the catalog (a failure is a FetchError)
//   - process every pending item strictly in catalog order
//   - remove stored items whose ckan_id is no longer in the catalog
//   - invalidate the downstream cache if anything was inserted, updated or removed
//   - save the run statistics, then close the store
//
// In resource mode every resource of a package is one item; with groupByPackage the whole
// package is one item embedding its resources. A package without resources produces no item.
//
// # Per item
//
// An item is looked up by ckan_id. Missing items are enriched and inserted without consulting
// the ChangeDetector. Found items are compared before enrichment; only differing items are
// enriched and saved, under the record key of the stored item. An unchanged item is never
// downloaded again, so a payload whose enrichment failed on insert is only retried once
// some catalog field of the item changes. Failures of one item are appended to the run's
// error log and never stop the pass.
//
// # Change detection
//
// DefaultChangeDetector looks only at the keys of the candidate and compares lists in order.
// The data field and every field derived by enrichment are absent from the candidate when it
// is compared, so they never count as a difference.
//
// # Coordinator Package
//
// The sync/coordinator subpackage runs the manager once or on an interval, persists the
// statistics of the last run and publishes run metrics and notifications.
package sync
