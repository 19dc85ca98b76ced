package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"strings"
)

// SigningKey is a derived HMAC key together with the credential scope it is
// valid for. A key is bound to the 8-character date it was derived with and
// must be re-derived when the date, region, or service changes.
type SigningKey struct {
	Key   []byte
	Scope string
	Date  string
}

// DeriveKey derives the SigV4 signing key for the given secret and scope
// parts. Only the first 8 characters of date are significant. The derivation
// chains HMAC-SHA256 from "AWS4"+secret over date, region, service, and the
// scope terminator, in that order.
func DeriveKey(secret, date, region, service string) SigningKey {
	date = shortDate(date)

	kDate := hmacSHA256([]byte("AWS4"+secret), date)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	kSigning := hmacSHA256(kService, awsV4Request)

	scope := strings.Join([]string{date, region, service, awsV4Request}, "/")
	return SigningKey{Key: kSigning, Scope: scope, Date: date}
}

// KeyDeriver memoizes the most recently derived signing key, so signing many
// requests or chunks within the same date/region/service scope derives the
// key once. The cache holds a single entry keyed by the exact input tuple;
// any differing tuple replaces it.
//
// A KeyDeriver carries mutable state and is not safe for concurrent use.
// Callers sharing one across goroutines must serialize access.
type KeyDeriver struct {
	secret  string
	date    string
	region  string
	service string
	key     SigningKey
	valid   bool
}

// NewKeyDeriver returns an empty single-entry key cache.
func NewKeyDeriver() *KeyDeriver {
	return &KeyDeriver{}
}

// DeriveKey returns the signing key for the tuple, deriving it only when the
// tuple differs from the previous call.
func (d *KeyDeriver) DeriveKey(secret, date, region, service string) SigningKey {
	key, _ := d.derive(secret, date, region, service)
	return key
}

func (d *KeyDeriver) derive(secret, date, region, service string) (SigningKey, bool) {
	date = shortDate(date)
	if d.valid && d.secret == secret && d.date == date && d.region == region && d.service == service {
		return d.key, true
	}

	d.key = DeriveKey(secret, date, region, service)
	d.secret, d.date, d.region, d.service = secret, date, region, service
	d.valid = true
	return d.key, false
}

func shortDate(date string) string {
	if len(date) > len(ShortTimeFormat) {
		return date[:len(ShortTimeFormat)]
	}
	return date
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
