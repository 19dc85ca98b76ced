package sigv4

// Signing algorithm identifiers and fixed hash values.
const (
	// Algorithm is the SigV4 signing algorithm identifier.
	Algorithm = "AWS4-HMAC-SHA256"

	// StreamingAlgorithm is the algorithm identifier used in the
	// string-to-sign of each body chunk of a streamed upload.
	StreamingAlgorithm = "AWS4-HMAC-SHA256-PAYLOAD"

	// StreamingPayloadHash is the sentinel content hash marking a body that
	// is signed chunk by chunk rather than at canonicalization time.
	StreamingPayloadHash = "STREAMING-AWS4-HMAC-SHA256-PAYLOAD"

	// UnsignedPayloadHash is the sentinel content hash marking a body that
	// is deliberately left out of the signature.
	UnsignedPayloadHash = "UNSIGNED-PAYLOAD"

	// EmptyStringSHA256 is the hex-encoded SHA-256 of the empty string, the
	// body hash of every request without a body.
	EmptyStringSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// Timestamp layouts. TimeFormat is ISO-8601 basic format at second
// precision; ShortTimeFormat is its date portion, used in credential scopes.
const (
	TimeFormat      = "20060102T150405Z"
	ShortTimeFormat = "20060102"
)

// Query parameter and header keys carrying signing artifacts.
const (
	AmzAlgorithmKey            = "X-Amz-Algorithm"
	AmzCredentialKey           = "X-Amz-Credential"
	AmzDateKey                 = "X-Amz-Date"
	AmzSignedHeadersKey        = "X-Amz-SignedHeaders"
	AmzSignatureKey            = "X-Amz-Signature"
	AmzExpiresKey              = "X-Amz-Expires"
	AmzContentSHA256Key        = "X-Amz-Content-Sha256"
	AmzDecodedContentLengthKey = "X-Amz-Decoded-Content-Length"
)

const (
	authorizationHeader   = "Authorization"
	hostHeader            = "Host"
	contentLengthHeader   = "Content-Length"
	contentEncodingHeader = "Content-Encoding"

	// awsChunkedEncoding is the Content-Encoding value of a chunk-framed body.
	awsChunkedEncoding = "aws-chunked"

	// awsV4Request terminates every credential scope.
	awsV4Request = "aws4_request"
)
