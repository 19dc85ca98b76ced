package sigv4

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestCanonicalURI(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		normalize    bool
		doubleEscape bool
		want         string
	}{
		{
			name: "empty path", path: "",
			normalize: true, doubleEscape: true,
			want: "/",
		},
		{
			name: "root", path: "/",
			normalize: true, doubleEscape: true,
			want: "/",
		},
		{
			name: "dot segments resolved", path: "/a/./b/../c",
			normalize: true, doubleEscape: true,
			want: "/a/c",
		},
		{
			name: "dot segments kept", path: "/a/./b/../c",
			normalize: false, doubleEscape: true,
			want: "/a/./b/../c",
		},
		{
			name: "empty segments collapsed", path: "/a//b",
			normalize: true, doubleEscape: true,
			want: "/a/b",
		},
		{
			name: "empty segments kept", path: "/a//b",
			normalize: false, doubleEscape: true,
			want: "/a//b",
		},
		{
			name: "trailing slash preserved", path: "/a/b/",
			normalize: true, doubleEscape: true,
			want: "/a/b/",
		},
		{
			name: "final dot keeps the directory form", path: "/a/b/.",
			normalize: true, doubleEscape: true,
			want: "/a/b/",
		},
		{
			name: "final parent keeps the directory form", path: "/a/b/..",
			normalize: true, doubleEscape: true,
			want: "/a/",
		},
		{
			name: "parent escape stops at root", path: "/../a",
			normalize: true, doubleEscape: true,
			want: "/a",
		},
		{
			name: "resolves to root", path: "/a/../",
			normalize: true, doubleEscape: true,
			want: "/",
		},
		{
			name: "relative path rooted", path: "a/b",
			normalize: true, doubleEscape: true,
			want: "/a/b",
		},
		{
			name: "space single escape", path: "/my%20file",
			normalize: true, doubleEscape: false,
			want: "/my%20file",
		},
		{
			name: "space double escape", path: "/my%20file",
			normalize: true, doubleEscape: true,
			want: "/my%2520file",
		},
		{
			name: "dollar single escape", path: "/test$file.text",
			normalize: true, doubleEscape: false,
			want: "/test%24file.text",
		},
		{
			name: "dollar double escape", path: "/test$file.text",
			normalize: true, doubleEscape: true,
			want: "/test%2524file.text",
		},
		{
			name: "unicode single escape", path: "/r%C3%A9sum%C3%A9",
			normalize: false, doubleEscape: false,
			want: "/r%C3%A9sum%C3%A9",
		},
		{
			name: "unreserved characters pass through", path: "/photos/photo-1_2~3.jpg",
			normalize: true, doubleEscape: true,
			want: "/photos/photo-1_2~3.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := canonicalURI(tt.path, tt.normalize, tt.doubleEscape)
			if got != tt.want {
				t.Errorf("canonicalURI(%q, normalize=%v, double=%v) = %q, want %q",
					tt.path, tt.normalize, tt.doubleEscape, got, tt.want)
			}
		})
	}
}

func TestCanonicalQuery(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		want  string
	}{
		{
			name:  "empty",
			query: url.Values{},
			want:  "",
		},
		{
			name:  "keys sorted",
			query: url.Values{"prefix": {"J"}, "max-keys": {"2"}},
			want:  "max-keys=2&prefix=J",
		},
		{
			name:  "empty key skipped alone",
			query: url.Values{"": {"orphan"}, "a": {"1"}},
			want:  "a=1",
		},
		{
			name:  "empty value kept",
			query: url.Values{"lifecycle": {""}},
			want:  "lifecycle=",
		},
		{
			name:  "values sorted per key",
			query: url.Values{"a": {"c", "b", "a"}},
			want:  "a=a&a=b&a=c",
		},
		{
			name:  "reserved characters escaped",
			query: url.Values{"path": {"a/b c"}},
			want:  "path=a%2Fb%20c",
		},
		{
			name:  "unicode escaped bytewise",
			query: url.Values{"name": {"résumé"}},
			want:  "name=r%C3%A9sum%C3%A9",
		},
		{
			// U+1D11E (surrogate pair D834 DD1E) sorts before U+FB01 in
			// UTF-16 code units even though its UTF-8 bytes sort after.
			name:  "astral keys in UTF-16 order",
			query: url.Values{"\U0001D11E": {"1"}, "ﬁ": {"2"}},
			want:  "%F0%9D%84%9E=1&%EF%AC%81=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := canonicalQuery(tt.query)
			if got != tt.want {
				t.Errorf("canonicalQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalQuery_PermutationInvariance(t *testing.T) {
	first, err := url.ParseQuery("b=2&a=1&c=3&a=0")
	if err != nil {
		t.Fatal(err)
	}
	second, err := url.ParseQuery("a=0&c=3&a=1&b=2")
	if err != nil {
		t.Fatal(err)
	}

	if canonicalQuery(first) != canonicalQuery(second) {
		t.Errorf("parameter order changed the canonical query: %q vs %q",
			canonicalQuery(first), canonicalQuery(second))
	}
}

func TestCanonicalQuery_DoesNotMutateInput(t *testing.T) {
	query := url.Values{"a": {"c", "b"}}
	canonicalQuery(query)
	if query["a"][0] != "c" || query["a"][1] != "b" {
		t.Errorf("canonicalQuery() reordered the caller's values: %v", query["a"])
	}
}

func TestCanonicalHeaders(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string][]string
		want       string
		wantSigned string
	}{
		{
			name: "names folded and sorted",
			headers: map[string][]string{
				"X-Amz-Date": {"20130524T000000Z"},
				"Host":       {"examplebucket.s3.amazonaws.com"},
			},
			want: "host:examplebucket.s3.amazonaws.com\n" +
				"x-amz-date:20130524T000000Z\n",
			wantSigned: "host;x-amz-date",
		},
		{
			name: "whitespace collapsed",
			headers: map[string][]string{
				"X-Note": {"  several   words\t here  "},
			},
			want:       "x-note:several words here\n",
			wantSigned: "x-note",
		},
		{
			name: "multiple values comma joined in order",
			headers: map[string][]string{
				"X-List": {"b", "a"},
			},
			want:       "x-list:b,a\n",
			wantSigned: "x-list",
		},
		{
			name: "line breaks collapsed",
			headers: map[string][]string{
				"X-Wrapped": {"first\r\n second"},
			},
			want:       "x-wrapped:first second\n",
			wantSigned: "x-wrapped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, signed, err := canonicalHeaders(tt.headers)
			if err != nil {
				t.Fatalf("canonicalHeaders() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("canonical block = %q, want %q", got, tt.want)
			}
			if signed != tt.wantSigned {
				t.Errorf("signed headers = %q, want %q", signed, tt.wantSigned)
			}
		})
	}
}

func TestCanonicalHeaders_DuplicateAfterFolding(t *testing.T) {
	headers := map[string][]string{
		"Host": {"a.example.com"},
		"host": {"b.example.com"},
	}
	_, _, err := canonicalHeaders(headers)
	if !errors.Is(err, ErrMalformedInput) {
		t.Errorf("canonicalHeaders() error = %v, want ErrMalformedInput", err)
	}
}

func TestBodyHash(t *testing.T) {
	payload := []byte("Welcome to Amazon S3.")
	sum := sha256.Sum256(payload)

	tests := []struct {
		name string
		body Body
		want string
	}{
		{"zero value is empty hash", Body{}, EmptyStringSHA256},
		{"nil bytes are empty hash", BodyBytes(nil), EmptyStringSHA256},
		{"empty bytes are empty hash", BodyBytes([]byte{}), EmptyStringSHA256},
		{"bytes hashed", BodyBytes(payload), hex.EncodeToString(sum[:])},
		{"precomputed hash verbatim", BodyHash(UnsignedPayloadHash), UnsignedPayloadHash},
		{"streaming sentinel verbatim", BodyHash(StreamingPayloadHash), StreamingPayloadHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.body.Hash(); got != tt.want {
				t.Errorf("Hash() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalRequest_String(t *testing.T) {
	cr := &CanonicalRequest{
		Method:        "GET",
		URI:           "/test.txt",
		Query:         "max-keys=2&prefix=J",
		Headers:       "host:example.com\n",
		SignedHeaders: "host",
		BodyHash:      EmptyStringSHA256,
	}

	want := strings.Join([]string{
		"GET",
		"/test.txt",
		"max-keys=2&prefix=J",
		"host:example.com\n",
		"host",
		EmptyStringSHA256,
	}, "\n")
	if cr.String() != want {
		t.Errorf("String() = %q, want %q", cr.String(), want)
	}

	sum := sha256.Sum256([]byte(want))
	if cr.Hash() != hex.EncodeToString(sum[:]) {
		t.Errorf("Hash() = %q", cr.Hash())
	}
}
