// Package filtering restricts the catalog packages that take part in a sync.
//
// Two rules are combined, and a package must pass both:
//
//   - NameFilter matches the package name against glob patterns
//   - TagFilter matches the package's active tag names exactly
//
// For both rules exclude takes precedence over include. With include
// patterns present a package must match at least one of them; with no
// patterns at all every package is kept.
//
// Name patterns are compiled with gobwas/glob, so '*' also matches
// across separators:
//
//   - "transport-*" matches "transport-bus-stops"
//   - "air?" matches "air1" but not "airports"
//   - "stats-[0-9]*" matches "stats-2024-q1"
//
// Packages removed by the filter are not part of the fetched id set of
// the run, so records previously synced for them are pruned as orphans.
package filtering
