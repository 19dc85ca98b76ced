package sigv4

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"testing"
)

func chainHMAC(secret string, parts ...string) []byte {
	key := []byte("AWS4" + secret)
	for _, part := range parts {
		mac := hmac.New(sha256.New, key)
		mac.Write([]byte(part))
		key = mac.Sum(nil)
	}
	return key
}

func TestDeriveKey(t *testing.T) {
	secret := "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY"

	key := DeriveKey(secret, "20130524", "us-east-1", "s3")

	want := chainHMAC(secret, "20130524", "us-east-1", "s3", "aws4_request")
	if !bytes.Equal(key.Key, want) {
		t.Errorf("DeriveKey() key = %x, want %x", key.Key, want)
	}
	if key.Scope != "20130524/us-east-1/s3/aws4_request" {
		t.Errorf("DeriveKey() scope = %q", key.Scope)
	}
	if key.Date != "20130524" {
		t.Errorf("DeriveKey() date = %q", key.Date)
	}
}

func TestDeriveKey_DateTruncation(t *testing.T) {
	// A full timestamp and its date portion must derive the same key.
	full := DeriveKey("secret", "20130524T000000Z", "us-east-1", "s3")
	short := DeriveKey("secret", "20130524", "us-east-1", "s3")

	if !bytes.Equal(full.Key, short.Key) {
		t.Error("keys differ between full timestamp and 8-character date")
	}
	if full.Scope != short.Scope {
		t.Errorf("scopes differ: %q vs %q", full.Scope, short.Scope)
	}
	if full.Date != "20130524" {
		t.Errorf("Date = %q, want the truncated form", full.Date)
	}
}

func TestDeriveKey_TupleSensitivity(t *testing.T) {
	base := DeriveKey("secret", "20130524", "us-east-1", "s3")

	tests := []struct {
		name string
		key  SigningKey
	}{
		{"different secret", DeriveKey("secret2", "20130524", "us-east-1", "s3")},
		{"different date", DeriveKey("secret", "20130525", "us-east-1", "s3")},
		{"different region", DeriveKey("secret", "20130524", "eu-west-1", "s3")},
		{"different service", DeriveKey("secret", "20130524", "us-east-1", "iam")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if bytes.Equal(base.Key, tt.key.Key) {
				t.Error("derived key did not change with the tuple")
			}
		})
	}
}

func TestKeyDeriver_Cache(t *testing.T) {
	d := NewKeyDeriver()

	first, hit := d.derive("secret", "20130524T000000Z", "us-east-1", "s3")
	if hit {
		t.Error("first derivation reported a cache hit")
	}

	// Same tuple, date given in truncated form: must hit.
	second, hit := d.derive("secret", "20130524", "us-east-1", "s3")
	if !hit {
		t.Error("repeat derivation missed the cache")
	}
	if !bytes.Equal(first.Key, second.Key) || first.Scope != second.Scope {
		t.Error("cache returned a different key")
	}

	// Any differing tuple replaces the entry.
	third, hit := d.derive("secret", "20130524", "eu-west-1", "s3")
	if hit {
		t.Error("changed tuple reported a cache hit")
	}
	if bytes.Equal(third.Key, first.Key) {
		t.Error("changed tuple derived an identical key")
	}

	// The replaced entry is gone.
	if _, hit := d.derive("secret", "20130524", "us-east-1", "s3"); hit {
		t.Error("evicted tuple reported a cache hit")
	}
}

func TestKeyDeriver_MatchesDirectDerivation(t *testing.T) {
	d := NewKeyDeriver()
	cached := d.DeriveKey("secret", "20130524", "us-east-1", "s3")
	direct := DeriveKey("secret", "20130524", "us-east-1", "s3")

	if !bytes.Equal(cached.Key, direct.Key) || cached.Scope != direct.Scope {
		t.Error("cached derivation differs from direct derivation")
	}
}
