// Package chunkstream decodes aws-chunked payloads back into their raw
// bytes, keeping the signature carried by every frame. It is the reading
// counterpart of the chunked encoder and backs the round-trip checks in the
// command line tool and the tests.
package chunkstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const signaturePrefix = "chunk-signature="

// ErrMalformedFrame reports a frame that does not follow the aws-chunked
// format: a bad size line, a missing or malformed signature extension, or
// broken CRLF framing.
var ErrMalformedFrame = errors.New("malformed chunk frame")

// Decoder reads an aws-chunked stream, yielding the decoded payload and
// recording the signature of each frame as it passes. The terminal frame's
// signature is recorded too, so after draining the stream Signatures holds
// one entry per frame.
type Decoder struct {
	br         *bufio.Reader
	remain     int64
	done       bool
	signatures []string
}

// NewDecoder wraps an encoded stream.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{br: bufio.NewReader(r)}
}

func (d *Decoder) Read(p []byte) (int, error) {
	for {
		if d.done {
			return 0, io.EOF
		}
		if d.remain == 0 {
			if err := d.readFrameHeader(); err != nil {
				return 0, err
			}
			continue
		}

		toRead := int64(len(p))
		if toRead > d.remain {
			toRead = d.remain
		}
		n, err := io.ReadFull(d.br, p[:toRead])
		d.remain -= int64(n)
		if err != nil {
			return n, fmt.Errorf("%w: truncated chunk data", ErrMalformedFrame)
		}
		if d.remain == 0 {
			if err := d.expectCRLF(); err != nil {
				return n, err
			}
		}
		return n, nil
	}
}

// readFrameHeader consumes one size line, records its signature and leaves
// the decoder ready to read the frame's data. A zero-size line marks the
// terminal frame; any trailer lines after it are skipped up to the blank
// line that closes the stream.
func (d *Decoder) readFrameHeader() error {
	line, err := d.br.ReadString('\n')
	if err != nil {
		return fmt.Errorf("%w: truncated size line", ErrMalformedFrame)
	}
	line = strings.TrimSuffix(line, "\r\n")
	if strings.HasSuffix(line, "\n") {
		return fmt.Errorf("%w: size line not CRLF terminated", ErrMalformedFrame)
	}

	sizeStr, ext, found := strings.Cut(line, ";")
	if !found {
		return fmt.Errorf("%w: size line %q carries no signature", ErrMalformedFrame, line)
	}
	signature, ok := strings.CutPrefix(ext, signaturePrefix)
	if !ok {
		return fmt.Errorf("%w: unexpected chunk extension %q", ErrMalformedFrame, ext)
	}
	if len(signature) != 64 {
		return fmt.Errorf("%w: signature %q is not 64 hex characters", ErrMalformedFrame, signature)
	}

	size, err := strconv.ParseInt(sizeStr, 16, 64)
	if err != nil || size < 0 {
		return fmt.Errorf("%w: invalid chunk size %q", ErrMalformedFrame, sizeStr)
	}

	d.signatures = append(d.signatures, signature)
	if size == 0 {
		for {
			l, err := d.br.ReadString('\n')
			if err != nil {
				return fmt.Errorf("%w: stream ends before terminal CRLF", ErrMalformedFrame)
			}
			if l == "\r\n" || l == "\n" {
				break
			}
		}
		d.done = true
		return nil
	}
	d.remain = size
	return nil
}

func (d *Decoder) expectCRLF() error {
	var crlf [2]byte
	if _, err := io.ReadFull(d.br, crlf[:]); err != nil {
		return fmt.Errorf("%w: stream ends inside chunk framing", ErrMalformedFrame)
	}
	if crlf[0] != '\r' || crlf[1] != '\n' {
		return fmt.Errorf("%w: chunk data not CRLF terminated", ErrMalformedFrame)
	}
	return nil
}

// Signatures returns the signatures seen so far, in stream order.
func (d *Decoder) Signatures() []string {
	return d.signatures
}

// Done reports whether the terminal frame has been consumed.
func (d *Decoder) Done() bool {
	return d.done
}
