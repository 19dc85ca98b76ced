package sigv4

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// ChunkedEncoder re-segments arbitrarily sized writes into the fixed chunks
// a ChunkSigner expects, emitting each signed frame followed by its raw
// bytes to the downstream writer. It keeps a running SHA-256 of only the
// current chunk, so no byte is hashed twice and nothing beyond one chunk is
// buffered.
//
// The encoder owns no transport: blocking and I/O behavior are whatever the
// downstream writer does. It is not safe for concurrent use.
type ChunkedEncoder struct {
	w      io.Writer
	signer *ChunkSigner

	buf      []byte
	digest   hash.Hash
	written  int64
	closed   bool
	closeErr error
}

// NewChunkedEncoder returns an encoder driving signer and writing framed
// output to w.
func NewChunkedEncoder(w io.Writer, signer *ChunkSigner) *ChunkedEncoder {
	return &ChunkedEncoder{
		w:      w,
		signer: signer,
		buf:    make([]byte, 0, signer.chunkLength),
		digest: sha256.New(),
	}
}

// Write consumes p in any size, flushing a signed chunk downstream each
// time the fixed chunk length accumulates.
func (e *ChunkedEncoder) Write(p []byte) (int, error) {
	if e.closed {
		return 0, fmt.Errorf("%w: write after close", ErrProtocolViolation)
	}
	written := 0
	for len(p) > 0 {
		n := int(e.signer.chunkLength) - len(e.buf)
		if n > len(p) {
			n = len(p)
		}
		e.buf = append(e.buf, p[:n]...)
		e.digest.Write(p[:n])
		p = p[n:]
		written += n
		e.written += int64(n)

		if int64(len(e.buf)) == e.signer.chunkLength {
			if err := e.flushChunk(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// Close verifies the byte count against the declared body length, emits the
// final short chunk when one is buffered, and signs the terminal marker.
// Closing again returns the first outcome.
func (e *ChunkedEncoder) Close() error {
	if e.closed {
		return e.closeErr
	}
	e.closed = true

	if e.written != e.signer.bodyLength {
		e.closeErr = fmt.Errorf("%w: wrote %d body bytes of %d declared", ErrProtocolViolation, e.written, e.signer.bodyLength)
		return e.closeErr
	}
	if len(e.buf) > 0 {
		if err := e.flushChunk(); err != nil {
			e.closeErr = err
			return err
		}
	}

	frame, err := e.signer.SignNext(nil)
	if err != nil {
		e.closeErr = err
		return err
	}
	if _, err := io.WriteString(e.w, frame); err != nil {
		e.closeErr = err
		return err
	}
	return nil
}

func (e *ChunkedEncoder) flushChunk() error {
	frame, err := e.signer.SignNextHash(hex.EncodeToString(e.digest.Sum(nil)), int64(len(e.buf)))
	if err != nil {
		return err
	}
	if _, err := io.WriteString(e.w, frame); err != nil {
		return err
	}
	if _, err := e.w.Write(e.buf); err != nil {
		return err
	}
	e.buf = e.buf[:0]
	e.digest.Reset()
	return nil
}
