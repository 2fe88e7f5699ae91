package intensity

import "errors"

// Failure kinds surfaced by the pipeline. Callers match with errors.Is; the
// concrete cause is carried in the wrapped message.
var (
	// ErrNetwork covers transport-level failures: timeouts, refused
	// connections, DNS errors.
	ErrNetwork = errors.New("network failure")

	// ErrUpstream covers a reachable but misbehaving API: non-2xx status
	// or a body that does not decode.
	ErrUpstream = errors.New("upstream failure")

	// ErrSchema means a required key path was absent from an otherwise
	// well-formed payload.
	ErrSchema = errors.New("schema mismatch")

	// ErrValidation marks a single reading that failed validation. Rows
	// failing validation are dropped, never stored.
	ErrValidation = errors.New("validation failed")

	// ErrStorage covers write or delete failures against the remote table.
	ErrStorage = errors.New("storage failure")
)
