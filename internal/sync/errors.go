package sync

import "fmt"

// ErrorKind classifies a run-fatal error
type ErrorKind string

const (
	// KindConnection means the store could not be reached
	KindConnection ErrorKind = "ConnectionError"

	// KindFetch means the catalog snapshot could not be fetched or filtered
	KindFetch ErrorKind = "FetchError"

	// KindCleanup means the orphan removal pass failed
	KindCleanup ErrorKind = "CleanupError"

	// KindStats means the run completed but its statistics could not be saved
	KindStats ErrorKind = "StatsError"

	// KindCanceled means the run context ended before the run completed
	KindCanceled ErrorKind = "Canceled"
)

// Error represents a run-fatal error
type Error struct {
	Err     error
	Message string
	Kind    ErrorKind
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{
		Err:     err,
		Message: fmt.Sprintf(format, args...),
		Kind:    kind,
	}
}

// ItemOp names the step at which an item failed
type ItemOp string

// Item steps that can fail
const (
	OpBuild  ItemOp = "build"
	OpFind   ItemOp = "find"
	OpInsert ItemOp = "create"
	OpUpdate ItemOp = "update"
	OpEnrich ItemOp = "enrich"
)

// ItemError is a failure local to one item. It never aborts the run.
type ItemError struct {
	CKANID string
	Op     ItemOp
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("Failed to %s ckan resource: %s. %v", e.Op, e.CKANID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
