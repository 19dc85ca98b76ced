package sigv4

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Framing of aws-chunked bodies. Each data chunk travels as
// `<hex-length>;chunk-signature=<sig>\r\n<data>\r\n`; the terminal marker is
// `0;chunk-signature=<sig>\r\n\r\n`.
const (
	// MinChunkLength is the smallest chunk size the protocol accepts.
	MinChunkLength = 8192

	chunkSignaturePrefix = ";chunk-signature="
	signatureHexLength   = 64
	crlf                 = "\r\n"
)

// TotalLength returns the transmitted length of a chunked body: the payload
// plus the framing overhead of every full chunk, the short final chunk when
// the division is uneven, and the terminal marker. The value is fixed
// before the first chunk is sent and becomes the request's Content-Length;
// it cannot be revised mid-stream.
func TotalLength(bodyLength, chunkLength int64) (int64, error) {
	if err := validateChunking(bodyLength, chunkLength); err != nil {
		return 0, err
	}
	chunks := bodyLength / chunkLength
	lastLength := bodyLength % chunkLength

	total := bodyLength
	total += chunks * frameOverhead(chunkLength)
	if lastLength > 0 {
		total += frameOverhead(lastLength)
	}
	total += frameOverhead(0)
	return total, nil
}

func validateChunking(bodyLength, chunkLength int64) error {
	if chunkLength < MinChunkLength {
		return fmt.Errorf("%w: chunk length %d is below the minimum %d", ErrConfiguration, chunkLength, MinChunkLength)
	}
	if bodyLength < 0 {
		return fmt.Errorf("%w: negative body length %d", ErrConfiguration, bodyLength)
	}
	return nil
}

// frameOverhead is the byte cost of framing one chunk of n payload bytes:
// the hex length, the signature preamble and signature, and the CRLF pair
// after the header plus the one that terminates the data.
func frameOverhead(n int64) int64 {
	return int64(len(strconv.FormatInt(n, 16)) + len(chunkSignaturePrefix) + signatureHexLength + 2*len(crlf))
}

// ChunkSigner signs a streamed body chunk by chunk. Each signature chains
// to the previous one, seeded by the enclosing request's header signature,
// so altering or reordering any chunk is detectable without buffering the
// whole body.
//
// The chain is strict: every call must supply exactly the expected length,
// the final short chunk must match the remainder, and the terminal marker
// must be requested explicitly with no data. Once the terminal marker is
// signed the chain is complete and further calls fail. A ChunkSigner is
// sequential state and is not safe for concurrent use; a partially driven
// chain cannot be resumed from a different offset.
type ChunkSigner struct {
	key         SigningKey
	timestamp   string
	bodyLength  int64
	chunkLength int64
	lastLength  int64

	lastSignature string
	bytesSigned   int64
	completed     bool
	started       bool

	counters *signerCounters
}

// NewChunkSigner builds a signature chain for a body of bodyLength bytes
// transmitted in chunkLength-sized chunks. seedSignature is the enclosing
// request's header-mode signature, and timestamp must be the one that
// produced it.
func NewChunkSigner(bodyLength, chunkLength int64, key SigningKey, timestamp, seedSignature string) (*ChunkSigner, error) {
	return newChunkSigner(bodyLength, chunkLength, key, timestamp, seedSignature, nil)
}

func newChunkSigner(bodyLength, chunkLength int64, key SigningKey, timestamp, seedSignature string, counters *signerCounters) (*ChunkSigner, error) {
	if err := validateChunking(bodyLength, chunkLength); err != nil {
		return nil, err
	}
	return &ChunkSigner{
		key:           key,
		timestamp:     timestamp,
		bodyLength:    bodyLength,
		chunkLength:   chunkLength,
		lastLength:    bodyLength % chunkLength,
		lastSignature: seedSignature,
		counters:      counters,
	}, nil
}

// SignNext signs the next chunk and returns its framing string. The frame
// leads with CRLF on every chunk but the first, terminating the previous
// chunk's data; the caller emits the frame followed by the raw chunk bytes.
// Request the terminal marker by calling SignNext with no data once every
// body byte is signed.
func (c *ChunkSigner) SignNext(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return c.signNext(hex.EncodeToString(sum[:]), int64(len(data)))
}

// SignNextHash is SignNext for callers that hash chunk bytes incrementally:
// it takes the chunk's hex digest and length instead of the bytes.
func (c *ChunkSigner) SignNextHash(hexDigest string, length int64) (string, error) {
	return c.signNext(hexDigest, length)
}

func (c *ChunkSigner) signNext(digest string, length int64) (string, error) {
	if c.completed {
		return "", fmt.Errorf("%w: signature chain already completed", ErrProtocolViolation)
	}
	expected := c.expectedLength()
	if length != expected {
		return "", fmt.Errorf("%w: chunk of %d bytes where %d were expected", ErrProtocolViolation, length, expected)
	}

	sts := strings.Join([]string{
		StreamingAlgorithm,
		c.timestamp,
		c.key.Scope,
		c.lastSignature,
		EmptyStringSHA256,
		digest,
	}, "\n")
	signature := hex.EncodeToString(hmacSHA256(c.key.Key, sts))

	var b strings.Builder
	if c.started {
		b.WriteString(crlf)
	}
	b.WriteString(strconv.FormatInt(length, 16))
	b.WriteString(chunkSignaturePrefix)
	b.WriteString(signature)
	b.WriteString(crlf)
	if expected == 0 {
		// Terminal marker: one extra CRLF closes the empty body.
		b.WriteString(crlf)
		c.completed = true
	}

	c.started = true
	c.lastSignature = signature
	c.bytesSigned += expected
	if c.counters != nil {
		c.counters.chunks.Add(1)
	}
	return b.String(), nil
}

// expectedLength is the only chunk size the next call may supply: the fixed
// chunk size while at least that much remains, then the nonzero remainder,
// then zero for the terminal marker.
func (c *ChunkSigner) expectedLength() int64 {
	remaining := c.bodyLength - c.bytesSigned
	if remaining >= c.chunkLength {
		return c.chunkLength
	}
	if c.bytesSigned != c.bodyLength {
		return remaining
	}
	return 0
}

// Complete reports whether the terminal marker has been signed.
func (c *ChunkSigner) Complete() bool {
	return c.completed
}

// LastSignature returns the chain head: the seed before any call, then the
// most recently produced chunk signature.
func (c *ChunkSigner) LastSignature() string {
	return c.lastSignature
}

// SignChunked signs the head of a streamed upload and seeds its chunk
// signature chain. The request is signed in header mode with the streaming
// payload sentinel as body hash and with the chunked transport headers
// folded into the signature: Content-Encoding, the declared decoded length,
// and the total transmitted length as Content-Length. The returned result
// carries those headers; the returned ChunkSigner is seeded with the
// request signature and ready for the first chunk.
func (s *Signer) SignChunked(req *http.Request, bodyLength, chunkLength int64, opts ...SignOption) (*Result, *ChunkSigner, error) {
	total, err := TotalLength(bodyLength, chunkLength)
	if err != nil {
		s.stats.errors.Add(1)
		return nil, nil, err
	}

	decoded := strconv.FormatInt(bodyLength, 10)
	length := strconv.FormatInt(total, 10)

	headers := cloneHeader(req.Header)
	setHeader(headers, AmzContentSHA256Key, StreamingPayloadHash)
	setHeader(headers, contentEncodingHeader, awsChunkedEncoding)
	setHeader(headers, AmzDecodedContentLengthKey, decoded)
	setHeader(headers, contentLengthHeader, length)

	res, err := s.sign(req, headers, BodyHash(StreamingPayloadHash), newSignConfig(opts))
	if err != nil {
		s.stats.errors.Add(1)
		return nil, nil, err
	}
	res.Headers.Set(AmzContentSHA256Key, StreamingPayloadHash)
	res.Headers.Set(contentEncodingHeader, awsChunkedEncoding)
	res.Headers.Set(AmzDecodedContentLengthKey, decoded)
	res.Headers.Set(contentLengthHeader, length)
	res.TotalLength = total

	chain, err := newChunkSigner(bodyLength, chunkLength, res.key, res.AmzDate, res.Signature, &s.stats)
	if err != nil {
		s.stats.errors.Add(1)
		return nil, nil, err
	}
	s.stats.chains.Add(1)
	return res, chain, nil
}
