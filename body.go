package sigv4

import (
	"crypto/sha256"
	"encoding/hex"
)

// Body describes the request payload for canonicalization: either raw bytes
// to hash, or a precomputed hash used verbatim. The zero value means "no
// body" and resolves to the empty-string hash.
type Body struct {
	raw  []byte
	hash string
}

// BodyBytes returns a Body whose SHA-256 is computed from p.
func BodyBytes(p []byte) Body {
	return Body{raw: p}
}

// BodyHash returns a Body carrying a precomputed hex digest, used verbatim.
// This is the escape hatch for streamed or unsigned payloads, e.g.
// BodyHash(sigv4.UnsignedPayloadHash).
func BodyHash(hexDigest string) Body {
	return Body{hash: hexDigest}
}

// Hash resolves the body to the hex digest that enters the canonical request.
func (b Body) Hash() string {
	switch {
	case b.hash != "":
		return b.hash
	case b.raw != nil:
		sum := sha256.Sum256(b.raw)
		return hex.EncodeToString(sum[:])
	default:
		return EmptyStringSHA256
	}
}
