package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	sigv4 "github.com/wpnpeiris/aws-sigv4"
)

const (
	namespace       = "sigv4"
	signerSubsystem = "signer"
	keySubsystem    = "signing_key"
)

// SignerCollector exports a Signer's counters as Prometheus metrics.
type SignerCollector struct {
	signer *sigv4.Signer

	signedDesc    *prometheus.Desc
	presignedDesc *prometheus.Desc
	chainsDesc    *prometheus.Desc
	chunksDesc    *prometheus.Desc
	errorsDesc    *prometheus.Desc

	derivationsDesc *prometheus.Desc
	cacheHitsDesc   *prometheus.Desc
}

func NewSignerCollector(signer *sigv4.Signer) *SignerCollector {
	return &SignerCollector{
		signer: signer,

		signedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, signerSubsystem, "requests_signed_total"),
			"The total number of requests signed with an Authorization header.",
			nil,
			nil,
		),
		presignedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, signerSubsystem, "requests_presigned_total"),
			"The total number of presigned URLs produced.",
			nil,
			nil,
		),
		chainsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, signerSubsystem, "chunk_chains_total"),
			"The total number of chunk signature chains started.",
			nil,
			nil,
		),
		chunksDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, signerSubsystem, "chunks_signed_total"),
			"The total number of chunk signatures, terminal markers included.",
			nil,
			nil,
		),
		errorsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, signerSubsystem, "errors_total"),
			"The total number of failed signing operations.",
			nil,
			nil,
		),
		derivationsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, keySubsystem, "derivations_total"),
			"The total number of signing key requests.",
			nil,
			nil,
		),
		cacheHitsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, keySubsystem, "cache_hits_total"),
			"The total number of signing key requests served from cache.",
			nil,
			nil,
		),
	}
}

// Describe implements the prometheus.Collector interface.
func (c SignerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.signedDesc
	ch <- c.presignedDesc
	ch <- c.chainsDesc
	ch <- c.chunksDesc
	ch <- c.errorsDesc
	ch <- c.derivationsDesc
	ch <- c.cacheHitsDesc
}

// Collect implements the prometheus.Collector interface.
func (c SignerCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.signer.Stats()

	ch <- prometheus.MustNewConstMetric(
		c.signedDesc,
		prometheus.CounterValue,
		float64(stats.RequestsSigned),
	)
	ch <- prometheus.MustNewConstMetric(
		c.presignedDesc,
		prometheus.CounterValue,
		float64(stats.RequestsPresigned),
	)
	ch <- prometheus.MustNewConstMetric(
		c.chainsDesc,
		prometheus.CounterValue,
		float64(stats.ChunkChains),
	)
	ch <- prometheus.MustNewConstMetric(
		c.chunksDesc,
		prometheus.CounterValue,
		float64(stats.ChunksSigned),
	)
	ch <- prometheus.MustNewConstMetric(
		c.errorsDesc,
		prometheus.CounterValue,
		float64(stats.SigningErrors),
	)
	ch <- prometheus.MustNewConstMetric(
		c.derivationsDesc,
		prometheus.CounterValue,
		float64(stats.KeyDerivations),
	)
	ch <- prometheus.MustNewConstMetric(
		c.cacheHitsDesc,
		prometheus.CounterValue,
		float64(stats.KeyCacheHits),
	)
}
