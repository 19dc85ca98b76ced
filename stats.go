package sigv4

import "sync/atomic"

type signerCounters struct {
	signed         atomic.Uint64
	presigned      atomic.Uint64
	chains         atomic.Uint64
	chunks         atomic.Uint64
	errors         atomic.Uint64
	keyDerivations atomic.Uint64
	keyCacheHits   atomic.Uint64
}

// SignerStats is a point-in-time snapshot of a Signer's counters.
type SignerStats struct {
	// RequestsSigned counts completed header-mode signatures.
	RequestsSigned uint64
	// RequestsPresigned counts completed query-mode signatures.
	RequestsPresigned uint64
	// ChunkChains counts chunk signature chains seeded by SignChunked.
	ChunkChains uint64
	// ChunksSigned counts individual chunk signatures, terminal markers
	// included.
	ChunksSigned uint64
	// SigningErrors counts failed signing operations.
	SigningErrors uint64
	// KeyDerivations counts signing key requests; KeyCacheHits counts how
	// many were served from an attached KeyDeriver without re-deriving.
	KeyDerivations uint64
	KeyCacheHits   uint64
}

// Stats snapshots the signer's counters. Counters are updated atomically,
// so snapshots are safe to take while signing operations run.
func (s *Signer) Stats() SignerStats {
	return SignerStats{
		RequestsSigned:    s.stats.signed.Load(),
		RequestsPresigned: s.stats.presigned.Load(),
		ChunkChains:       s.stats.chains.Load(),
		ChunksSigned:      s.stats.chunks.Load(),
		SigningErrors:     s.stats.errors.Load(),
		KeyDerivations:    s.stats.keyDerivations.Load(),
		KeyCacheHits:      s.stats.keyCacheHits.Load(),
	}
}
