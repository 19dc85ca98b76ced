package sigv4

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf16"
)

// CanonicalRequest is the deterministic serialized form of a request that
// enters the signature. It is built once per signing operation and never
// mutated afterwards.
type CanonicalRequest struct {
	Method        string
	URI           string
	Query         string
	Headers       string
	SignedHeaders string
	BodyHash      string
}

// String renders the canonical request, fields newline-joined in wire order.
func (cr *CanonicalRequest) String() string {
	return strings.Join([]string{
		cr.Method,
		cr.URI,
		cr.Query,
		cr.Headers,
		cr.SignedHeaders,
		cr.BodyHash,
	}, "\n")
}

// Hash returns the hex SHA-256 of the canonical request string.
func (cr *CanonicalRequest) Hash() string {
	sum := sha256.Sum256([]byte(cr.String()))
	return hex.EncodeToString(sum[:])
}

// canonicalURI canonicalizes an escaped URL path: each segment is
// percent-decoded, dot segments are resolved unless normalization is
// disabled, and segments are re-encoded with the SigV4 escape rules, twice
// unless single escaping is requested. An empty path canonicalizes to "/".
func canonicalURI(path string, normalize, doubleEscape bool) string {
	if path == "" {
		return "/"
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if dec, err := url.PathUnescape(seg); err == nil {
			segments[i] = dec
		}
	}

	if normalize {
		// A final dot segment resolves to a directory, so the slash survives.
		trailingSlash := strings.HasSuffix(path, "/")
		if last := segments[len(segments)-1]; last == "." || last == ".." {
			trailingSlash = true
		}

		resolved := make([]string, 0, len(segments))
		for _, seg := range segments {
			switch seg {
			case "", ".":
				// collapsed
			case "..":
				if len(resolved) > 0 {
					resolved = resolved[:len(resolved)-1]
				}
			default:
				resolved = append(resolved, seg)
			}
		}
		uri := "/" + joinSegments(resolved, doubleEscape)
		if trailingSlash && uri != "/" {
			uri += "/"
		}
		return uri
	}

	uri := joinSegments(segments, doubleEscape)
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}
	return uri
}

func joinSegments(segments []string, doubleEscape bool) string {
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		e := uriEncode(seg, true)
		if doubleEscape {
			e = uriEncode(e, true)
		}
		escaped[i] = e
	}
	return strings.Join(escaped, "/")
}

// canonicalQuery canonicalizes query parameters: keys with an empty name are
// skipped, the remaining keys and each key's values are sorted by UTF-16
// code units, and pairs are emitted escaped and '&'-joined.
func canonicalQuery(query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "" {
			// A nameless parameter cannot be signed; skip it alone.
			continue
		}
		keys = append(keys, k)
	}
	sortUTF16(keys)

	var b strings.Builder
	for _, k := range keys {
		values := append([]string(nil), query[k]...)
		sortUTF16(values)
		ek := uriEncode(k, true)
		for _, v := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(ek)
			b.WriteByte('=')
			b.WriteString(uriEncode(v, true))
		}
	}
	return b.String()
}

// canonicalHeaders canonicalizes a header map into the headers block and the
// signed-headers list. Names are case-folded and must be unique after
// folding; multi-valued headers are comma-joined before whitespace collapse.
func canonicalHeaders(headers map[string][]string) (canonical, signed string, err error) {
	folded := make(map[string]string, len(headers))
	names := make([]string, 0, len(headers))
	for name, values := range headers {
		lower := strings.ToLower(strings.TrimSpace(name))
		if _, dup := folded[lower]; dup {
			return "", "", fmt.Errorf("%w: duplicate header %q after case folding", ErrMalformedInput, lower)
		}
		folded[lower] = collapseSpaces(strings.Join(values, ","))
		names = append(names, lower)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(folded[name])
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(names, ";"), nil
}

func collapseSpaces(s string) string {
	// Replace runs of spaces, tabs and line breaks with a single space.
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		} else {
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// uriEncode encodes a string per AWS SigV4 rules (RFC 3986): unreserved
// characters pass through, everything else becomes uppercase %XX.
// encodeSlash controls whether '/' is escaped.
func uriEncode(s string, encodeSlash bool) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		isUnreserved := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
			c == '-' || c == '_' || c == '.' || c == '~'
		if isUnreserved || (!encodeSlash && c == '/') {
			b.WriteByte(c)
		} else {
			b.WriteString("%")
			b.WriteString(strings.ToUpper(hex.EncodeToString([]byte{c})))
		}
	}
	return b.String()
}

// sortUTF16 sorts strings by UTF-16 code units, the ordering the canonical
// query format requires. It differs from byte ordering only for characters
// outside the basic multilingual plane.
func sortUTF16(s []string) {
	sort.Slice(s, func(i, j int) bool { return lessUTF16(s[i], s[j]) })
}

func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}
