package query

import "errors"

// Error kinds reported by the engine. Recipe errors (ErrInvalidLookup,
// ErrUnknownComparator) are detected when the chain call is made; the
// remaining kinds surface when the offending record is evaluated during
// materialization. Match with errors.Is.
var (
	// ErrInvalidLookup reports a malformed lookup key (empty key or
	// empty path segment).
	ErrInvalidLookup = errors.New("invalid lookup")

	// ErrUnknownComparator reports an explicitly requested comparator
	// tag that is not registered.
	ErrUnknownComparator = errors.New("unknown comparator")

	// ErrAttrNotFound reports an attribute path segment missing on a
	// particular record.
	ErrAttrNotFound = errors.New("attribute not found")

	// ErrTypeMismatch reports a comparator applied to operand types it
	// cannot handle.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrExhaustedSource reports re-iteration of a one-shot source.
	ErrExhaustedSource = errors.New("source already consumed")
)
