package store

import "errors"

// Sentinel errors returned by any Store implementation. Handlers translate
// these to HTTP status codes via errors.Is rather than inspecting strings.
var (
	ErrValidation       = errors.New("validation error")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("record not found")
	ErrConflict         = errors.New("conflicting update")
	ErrJobDeleted       = errors.New("job was deleted")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUpstream         = errors.New("upstream error")
)
