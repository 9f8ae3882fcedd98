// Package prometheus provides the Prometheus-backed implementation of
// observer.Recorder, grounded on the promauto.With(reg) construction
// pattern used throughout the wider Prometheus wiring in this repository.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/sessionfsd/pkg/observer"
)

// Recorder implements observer.Recorder against a Prometheus registry.
type Recorder struct {
	sessionsTotal     prometheus.Counter
	incarnationsTotal *prometheus.CounterVec
	snapshotDuration  prometheus.Histogram
	commitDuration    prometheus.Histogram
}

// NewRecorder builds a Recorder registered against the registry returned by
// observer.GetRegistry. Returns nil if
// metrics are not enabled (observer.InitRegistry was never called), so
// callers can pass the result straight through to observer.NewTree with
// zero overhead when metrics are off.
func NewRecorder() observer.Recorder {
	if !observer.IsEnabled() {
		return nil
	}

	reg := observer.GetRegistry()

	r := &Recorder{
		sessionsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sessionfsd_sessions_admitted_total",
			Help: "Total sessions admitted into the registry.",
		}),
		incarnationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sessionfsd_incarnations_total",
			Help: "Total incarnations created and closed, by direction.",
		}, []string{"direction"}),
		snapshotDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "sessionfsd_snapshot_duration_seconds",
			Help:    "Time spent copying an original into a new incarnation.",
			Buckets: prometheus.DefBuckets,
		}),
		commitDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "sessionfsd_commit_duration_seconds",
			Help:    "Time spent copying an incarnation back into its original.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	return r
}

func (r *Recorder) SessionAdmitted() { r.sessionsTotal.Inc() }

func (r *Recorder) SessionRemoved() {}

func (r *Recorder) IncarnationAdded() { r.incarnationsTotal.WithLabelValues("created").Inc() }

func (r *Recorder) IncarnationRemoved() { r.incarnationsTotal.WithLabelValues("closed").Inc() }

func (r *Recorder) SnapshotDuration(d time.Duration) { r.snapshotDuration.Observe(d.Seconds()) }

func (r *Recorder) CommitDuration(d time.Duration) { r.commitDuration.Observe(d.Seconds()) }
