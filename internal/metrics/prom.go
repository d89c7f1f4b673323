package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tiercache/tiercache/pkg/types"
)

// PromCollector adapts a stats snapshot function to a prometheus.Collector
// so the engine can be scraped without exposing its internals.
type PromCollector struct {
	snapshot func() types.Stats

	hitsDesc        *prometheus.Desc
	missesDesc      *prometheus.Desc
	evictionsDesc   *prometheus.Desc
	entriesDesc     *prometheus.Desc
	sizeDesc        *prometheus.Desc
	utilizationDesc *prometheus.Desc
	hitRateDesc     *prometheus.Desc
	simHitsDesc     *prometheus.Desc
	ratioDesc       *prometheus.Desc
	healthDesc      *prometheus.Desc
}

// NewPromCollector creates a collector that calls snapshot on every scrape.
func NewPromCollector(namespace string, snapshot func() types.Stats) *PromCollector {
	tierLabels := []string{"tier"}
	return &PromCollector{
		snapshot: snapshot,
		hitsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "tier", "hits_total"),
			"Reads served by this tier.", tierLabels, nil),
		missesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "tier", "misses_total"),
			"Reads this tier could not serve.", tierLabels, nil),
		evictionsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "tier", "evictions_total"),
			"Entries evicted from this tier.", tierLabels, nil),
		entriesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "tier", "entries"),
			"Entries currently held by this tier.", tierLabels, nil),
		sizeDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "tier", "size_bytes"),
			"Physical bytes currently stored by this tier.", tierLabels, nil),
		utilizationDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "tier", "utilization"),
			"Fraction of this tier's budget in use.", tierLabels, nil),
		hitRateDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "hit_rate"),
			"Overall hit rate across tiers.", nil, nil),
		simHitsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "similarity_hits_total"),
			"Misses resolved through the similarity index.", nil, nil),
		ratioDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "compression_ratio"),
			"Compressed/original byte ratio across cold-tier entries.", nil, nil),
		healthDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "health_score"),
			"Derived 0-100 health score.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (p *PromCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.hitsDesc
	ch <- p.missesDesc
	ch <- p.evictionsDesc
	ch <- p.entriesDesc
	ch <- p.sizeDesc
	ch <- p.utilizationDesc
	ch <- p.hitRateDesc
	ch <- p.simHitsDesc
	ch <- p.ratioDesc
	ch <- p.healthDesc
}

// Collect implements prometheus.Collector.
func (p *PromCollector) Collect(ch chan<- prometheus.Metric) {
	stats := p.snapshot()

	for name, ts := range stats.Tiers {
		label := string(name)
		ch <- prometheus.MustNewConstMetric(p.hitsDesc, prometheus.CounterValue, float64(ts.Hits), label)
		ch <- prometheus.MustNewConstMetric(p.missesDesc, prometheus.CounterValue, float64(ts.Misses), label)
		ch <- prometheus.MustNewConstMetric(p.evictionsDesc, prometheus.CounterValue, float64(ts.Evictions), label)
		ch <- prometheus.MustNewConstMetric(p.entriesDesc, prometheus.GaugeValue, float64(ts.Entries), label)
		ch <- prometheus.MustNewConstMetric(p.sizeDesc, prometheus.GaugeValue, float64(ts.SizeBytes), label)
		ch <- prometheus.MustNewConstMetric(p.utilizationDesc, prometheus.GaugeValue, ts.Utilization, label)
	}

	ch <- prometheus.MustNewConstMetric(p.hitRateDesc, prometheus.GaugeValue, stats.HitRate)
	ch <- prometheus.MustNewConstMetric(p.simHitsDesc, prometheus.CounterValue, float64(stats.SimilarityHits))
	ch <- prometheus.MustNewConstMetric(p.ratioDesc, prometheus.GaugeValue, stats.CompressionRatio)
	ch <- prometheus.MustNewConstMetric(p.healthDesc, prometheus.GaugeValue, stats.HealthScore)
}
