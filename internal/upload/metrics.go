package upload

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK             = "ok"
	OutcomeTransferError  = "transfer_error"
	OutcomeReferenceError = "reference_error"
	OutcomeWriteError     = "write_error"
	OutcomeMetadataError  = "metadata_error"
	OutcomeBlobError      = "blob_error"
)

// Metrics holds the upload counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	uploads     *prometheus.CounterVec
	uploadBytes prometheus.Counter
	deletes     *prometheus.CounterVec
}

// NewMetrics creates the upload metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timecapsule_uploads_total",
				Help: "Total number of finalized uploads by outcome.",
			},
			[]string{"outcome"},
		),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timecapsule_upload_bytes_total",
			Help: "Total number of bytes of successfully persisted uploads.",
		}),
		deletes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timecapsule_deletes_total",
				Help: "Total number of attachment deletes by outcome.",
			},
			[]string{"outcome"},
		),
	}

	for _, c := range []prometheus.Collector{m.uploads, m.uploadBytes, m.deletes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) upload(outcome string, size int64) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK && size > 0 {
		m.uploadBytes.Add(float64(size))
	}
}

func (m *Metrics) delete(outcome string) {
	if m == nil {
		return
	}
	m.deletes.WithLabelValues(outcome).Inc()
}
