package gtfs

import "errors"

var (
	// ErrDuplicateID is returned by Reindex when two entities of the same kind share an id.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrUnknownReference is returned by the loader when a row points at an entity that does not exist.
	ErrUnknownReference = errors.New("unknown reference")

	// ErrMissingAgency is returned when no default agency id can be determined.
	ErrMissingAgency = errors.New("no agency id available")
)
