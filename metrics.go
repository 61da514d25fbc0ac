package raster

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "raster"
)

// Metrics counts cache traffic and chunk I/O. A nil *Metrics records
// nothing.
type Metrics struct {
	cacheRequests  *prometheus.CounterVec
	cacheEvictions prometheus.Counter
	chunksWritten  prometheus.Counter
	bytesWritten   prometheus.Counter
	chunksRead     prometheus.Counter
	deflateLevels  *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "meta_cache",
				Name:      "requests_total",
				Help:      "Metadata cache lookups. Broken down by table kind and hit or miss.",
			},
			[]string{"table", "result"},
		),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "meta_cache",
			Name:      "evictions_total",
			Help:      "Region entries evicted from the metadata cache.",
		}),
		chunksWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_written_total",
			Help:      "Chunks written to the backend.",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_bytes_written_total",
			Help:      "Uncompressed chunk bytes written to the backend.",
		}),
		chunksRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_read_total",
			Help:      "Chunks read from the backend.",
		}),
		deflateLevels: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "region_deflate_level_total",
				Help:      "Regions written. Broken down by the deflate level selected for them.",
			},
			[]string{"level"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.cacheRequests, m.cacheEvictions, m.chunksWritten, m.bytesWritten, m.chunksRead, m.deflateLevels)
	}
	return m
}

func (m *Metrics) cacheLookup(table string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(table, result).Inc()
}

func (m *Metrics) cacheEviction() {
	if m == nil {
		return
	}
	m.cacheEvictions.Inc()
}

func (m *Metrics) chunkWritten(n int) {
	if m == nil {
		return
	}
	m.chunksWritten.Inc()
	m.bytesWritten.Add(float64(n))
}

func (m *Metrics) chunkRead() {
	if m == nil {
		return
	}
	m.chunksRead.Inc()
}

func (m *Metrics) regionLevel(level int) {
	if m == nil {
		return
	}
	m.deflateLevels.WithLabelValues(strconv.Itoa(level)).Inc()
}
