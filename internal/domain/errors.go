package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	ErrInvalidSchedule = errors.New("unlock date must be in the future")
	ErrLockedCapsule   = errors.New("capsule is unlocked and can no longer be modified")
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrTooLarge        = errors.New("file too large")

	ErrCodeMismatch = errors.New("invalid code")
	ErrCodeExpired  = errors.New("code expired")
	ErrNoCodeIssued = errors.New("no code issued")

	ErrUpstream = errors.New("upstream failure")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidSchedule, "invalid_schedule"},
	{ErrLockedCapsule, "locked_capsule"},
	{ErrUnsupportedType, "unsupported_type"},
	{ErrTooLarge, "too_large"},
	{ErrCodeMismatch, "code_mismatch"},
	{ErrCodeExpired, "code_expired"},
	{ErrNoCodeIssued, "no_code_issued"},
	{ErrUpstream, "upstream_failure"},
	{ErrNotFound, "not_found"},
	{ErrConflict, "conflict"},
	{ErrUnauthorized, "unauthorized"},
	{ErrForbidden, "forbidden"},
	{ErrBadRequest, "bad_request"},
}

// Kind returns the stable machine-readable name of the first sentinel wrapped by err,
// or "internal" when none matches.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}
