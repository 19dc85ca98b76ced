package sigv4

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Authorization is the structured form of a SigV4 Authorization header
// value. It round-trips through String and ParseAuthorization.
type Authorization struct {
	Algorithm     string
	Credential    string
	SignedHeaders string
	Signature     string
}

// String renders the header value:
//
//	AWS4-HMAC-SHA256 Credential=<access>/<scope>, SignedHeaders=<a;b;c>, Signature=<hex>
func (a Authorization) String() string {
	return a.Algorithm +
		" Credential=" + a.Credential +
		", SignedHeaders=" + a.SignedHeaders +
		", Signature=" + a.Signature
}

// ParseAuthorization parses a header value produced by String. The three
// fields may appear in any order, but each must appear exactly once and no
// other field is accepted. The signature must be non-empty even-length hex.
func ParseAuthorization(value string) (Authorization, error) {
	algorithm, rest, ok := strings.Cut(value, " ")
	if !ok || algorithm == "" {
		return Authorization{}, fmt.Errorf("%w: authorization value has no algorithm", ErrMalformedInput)
	}

	auth := Authorization{Algorithm: algorithm}
	seen := make(map[string]bool, 3)
	for _, part := range strings.Split(rest, ",") {
		name, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return Authorization{}, fmt.Errorf("%w: authorization field %q is not name=value", ErrMalformedInput, strings.TrimSpace(part))
		}
		if seen[name] {
			return Authorization{}, fmt.Errorf("%w: duplicate authorization field %q", ErrMalformedInput, name)
		}
		seen[name] = true
		switch name {
		case "Credential":
			auth.Credential = val
		case "SignedHeaders":
			auth.SignedHeaders = val
		case "Signature":
			auth.Signature = val
		default:
			return Authorization{}, fmt.Errorf("%w: unknown authorization field %q", ErrMalformedInput, name)
		}
	}

	if len(seen) != 3 {
		return Authorization{}, fmt.Errorf("%w: authorization requires Credential, SignedHeaders and Signature", ErrMalformedInput)
	}
	if auth.Signature == "" {
		return Authorization{}, fmt.Errorf("%w: empty signature", ErrMalformedInput)
	}
	if _, err := hex.DecodeString(auth.Signature); err != nil {
		return Authorization{}, fmt.Errorf("%w: signature is not even-length hex", ErrMalformedInput)
	}
	return auth, nil
}
