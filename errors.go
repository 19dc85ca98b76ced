package sigv4

import "errors"

// Error kinds returned by this package. Concrete errors wrap one of these
// sentinels with detail; callers classify them with errors.Is. Every error is
// fatal to the signing or streaming operation that produced it, and none is
// retried internally.
var (
	// ErrConfiguration reports an unusable signer or chain setup: missing
	// host/region/service that cannot be resolved either way, or invalid
	// chunk and body lengths.
	ErrConfiguration = errors.New("invalid signing configuration")

	// ErrMalformedInput reports input that cannot be canonicalized or
	// parsed: duplicate header names after case folding, a malformed
	// Authorization value, or an invalid timestamp.
	ErrMalformedInput = errors.New("malformed input")

	// ErrProtocolViolation reports a chunk signing call that breaks the
	// streaming contract: a wrong-length chunk, a call after completion, or
	// a stream whose total size does not match the declared body length.
	ErrProtocolViolation = errors.New("chunk protocol violation")
)
