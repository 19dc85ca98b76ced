package sigv4

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/wpnpeiris/aws-sigv4/internal/chunkstream"
)

func encoderTestPayload(n int) []byte {
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i)
	}
	return payload
}

// encodeInPieces drives one encoder over the payload, split into the given
// write sizes, and returns the framed stream.
func encodeInPieces(t *testing.T, payload []byte, pieces []int) string {
	t.Helper()
	key := testSigningKey()
	seed := hex.EncodeToString(hmacSHA256(key.Key, "seed"))
	signer, err := NewChunkSigner(int64(len(payload)), 8192, key, "20130524T000000Z", seed)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	enc := NewChunkedEncoder(&out, signer)
	rest := payload
	for _, n := range pieces {
		wrote, err := enc.Write(rest[:n])
		if err != nil {
			t.Fatalf("Write(%d bytes) failed: %v", n, err)
		}
		if wrote != n {
			t.Fatalf("Write(%d bytes) reported %d", n, wrote)
		}
		rest = rest[n:]
	}
	if len(rest) != 0 {
		t.Fatalf("pieces cover %d of %d payload bytes", len(payload)-len(rest), len(payload))
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	return out.String()
}

func TestChunkedEncoder_WritePatterns(t *testing.T) {
	payload := encoderTestPayload(20000)

	ones := make([]int, len(payload))
	for i := range ones {
		ones[i] = 1
	}

	oneShot := encodeInPieces(t, payload, []int{20000})
	bytewise := encodeInPieces(t, payload, ones)
	odd := encodeInPieces(t, payload, []int{7, 8191, 9000, 2802})

	if oneShot != bytewise {
		t.Error("byte-at-a-time writes produced a different stream")
	}
	if oneShot != odd {
		t.Error("odd-sized writes produced a different stream")
	}

	total, err := TotalLength(int64(len(payload)), 8192)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(oneShot)) != total {
		t.Errorf("stream is %d bytes, TotalLength promised %d", len(oneShot), total)
	}
}

func TestChunkedEncoder_RoundTrip(t *testing.T) {
	payload := encoderTestPayload(20000)
	key := testSigningKey()
	seed := hex.EncodeToString(hmacSHA256(key.Key, "seed"))
	stream := encodeInPieces(t, payload, []int{20000})

	dec := chunkstream.NewDecoder(strings.NewReader(stream))
	decoded, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("decoding the stream failed: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("decoded payload differs from the original")
	}
	if !dec.Done() {
		t.Error("decoder did not reach the terminal marker")
	}

	// 8192 + 8192 + 3616 payload chunks plus the terminal marker.
	sigs := dec.Signatures()
	if len(sigs) != 4 {
		t.Fatalf("stream carries %d signatures, want 4", len(sigs))
	}
	if want := chunkSignature(key, "20130524T000000Z", seed, payload[:8192]); sigs[0] != want {
		t.Errorf("first chunk signature = %q, want %q", sigs[0], want)
	}
}

func TestChunkedEncoder_Underrun(t *testing.T) {
	key := testSigningKey()
	seed := hex.EncodeToString(hmacSHA256(key.Key, "seed"))
	signer, err := NewChunkSigner(10000, 8192, key, "20130524T000000Z", seed)
	if err != nil {
		t.Fatal(err)
	}

	enc := NewChunkedEncoder(io.Discard, signer)
	if _, err := enc.Write(make([]byte, 9000)); err != nil {
		t.Fatal(err)
	}

	closeErr := enc.Close()
	if !errors.Is(closeErr, ErrProtocolViolation) {
		t.Fatalf("Close() error = %v, want ErrProtocolViolation", closeErr)
	}
	if !strings.Contains(closeErr.Error(), "9000") || !strings.Contains(closeErr.Error(), "10000") {
		t.Errorf("Close() error %q does not name the byte counts", closeErr)
	}
	if again := enc.Close(); !errors.Is(again, ErrProtocolViolation) {
		t.Errorf("second Close() error = %v, want the first outcome", again)
	}
}

func TestChunkedEncoder_Overrun(t *testing.T) {
	key := testSigningKey()
	seed := hex.EncodeToString(hmacSHA256(key.Key, "seed"))

	t.Run("caught at write", func(t *testing.T) {
		signer, err := NewChunkSigner(8192, 8192, key, "20130524T000000Z", seed)
		if err != nil {
			t.Fatal(err)
		}
		enc := NewChunkedEncoder(io.Discard, signer)
		// The second full chunk flushes past the declared length.
		if _, err := enc.Write(make([]byte, 16384)); !errors.Is(err, ErrProtocolViolation) {
			t.Errorf("Write() error = %v, want ErrProtocolViolation", err)
		}
	})

	t.Run("caught at close", func(t *testing.T) {
		signer, err := NewChunkSigner(8192, 8192, key, "20130524T000000Z", seed)
		if err != nil {
			t.Fatal(err)
		}
		enc := NewChunkedEncoder(io.Discard, signer)
		// 1808 excess bytes stay buffered, so the count check fires.
		if _, err := enc.Write(make([]byte, 10000)); err != nil {
			t.Fatal(err)
		}
		if err := enc.Close(); !errors.Is(err, ErrProtocolViolation) {
			t.Errorf("Close() error = %v, want ErrProtocolViolation", err)
		}
	})
}

func TestChunkedEncoder_WriteAfterClose(t *testing.T) {
	key := testSigningKey()
	seed := hex.EncodeToString(hmacSHA256(key.Key, "seed"))
	signer, err := NewChunkSigner(0, 8192, key, "20130524T000000Z", seed)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	enc := NewChunkedEncoder(&out, signer)
	if err := enc.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if out.Len() != 86 {
		t.Errorf("empty body stream is %d bytes, want 86", out.Len())
	}

	if _, err := enc.Write([]byte("x")); !errors.Is(err, ErrProtocolViolation) {
		t.Errorf("Write() after Close error = %v, want ErrProtocolViolation", err)
	}
	if err := enc.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}
