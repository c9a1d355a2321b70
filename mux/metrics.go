package mux

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters and gauges a Muxer reports to, if configured.
// A nil *Metrics is valid everywhere a Metrics is accepted — every method is
// nil-safe, so callers that don't care about observability can simply omit
// it from Options.
type Metrics struct {
	ClustersOpened   prometheus.Counter
	CuesWritten      prometheus.Counter
	BytesWritten     prometheus.Counter
	SeekHeadNearFull prometheus.Counter
}

// NewMetrics builds a Metrics registered against reg with the given
// constant labels (e.g. a stream or job name), following the corpus's
// pattern of one counter family per muxer instance rather than a bare
// global registry.
func NewMetrics(reg prometheus.Registerer, constLabels prometheus.Labels) *Metrics {
	m := &Metrics{
		ClustersOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mkvmux_clusters_opened_total",
			Help:        "Number of Cluster elements opened.",
			ConstLabels: constLabels,
		}),
		CuesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mkvmux_cues_written_total",
			Help:        "Number of cue entries appended.",
			ConstLabels: constLabels,
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mkvmux_bytes_written_total",
			Help:        "Packet payload bytes written into SimpleBlock/Block elements.",
			ConstLabels: constLabels,
		}),
		SeekHeadNearFull: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "mkvmux_seekhead_near_full_total",
			Help:        "Times an entry was rejected because the seek-head reservation was full.",
			ConstLabels: constLabels,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ClustersOpened, m.CuesWritten, m.BytesWritten, m.SeekHeadNearFull)
	}
	return m
}

func (m *Metrics) clusterOpened() {
	if m == nil {
		return
	}
	m.ClustersOpened.Inc()
}

func (m *Metrics) cueWritten() {
	if m == nil {
		return
	}
	m.CuesWritten.Inc()
}

func (m *Metrics) bytesWritten(n int) {
	if m == nil {
		return
	}
	m.BytesWritten.Add(float64(n))
}

func (m *Metrics) seekHeadNearFull() {
	if m == nil {
		return
	}
	m.SeekHeadNearFull.Inc()
}
