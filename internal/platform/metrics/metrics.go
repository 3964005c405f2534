package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the court service.
type Metrics struct {
	CasesOpen        prometheus.Gauge
	CasesFiled       prometheus.Counter
	CasesClosed      prometheus.Counter
	MotionsFiled     *prometheus.CounterVec
	MotionsResolved  *prometheus.CounterVec
	VotesCast        prometheus.Counter
	JuryInvitesSent  prometheus.Counter
	JurorsSeated     prometheus.Counter
	WarrantsIssued   prometheus.Counter
	WarrantsReleased prometheus.Counter
	PrisonersBooked  prometheus.Gauge
	HeartbeatSeconds prometheus.Histogram
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers against an explicit registerer so tests can isolate.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CasesOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "court_cases_open",
			Help: "Number of cases currently in the active registry.",
		}),
		CasesFiled: factory.NewCounter(prometheus.CounterOpts{
			Name: "court_cases_filed_total",
			Help: "Total cases filed.",
		}),
		CasesClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "court_cases_closed_total",
			Help: "Total cases closed and archived.",
		}),
		MotionsFiled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "court_motions_filed_total",
			Help: "Total motions filed, by kind.",
		}, []string{"kind"}),
		MotionsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "court_motions_resolved_total",
			Help: "Total motions resolved, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		VotesCast: factory.NewCounter(prometheus.CounterOpts{
			Name: "court_votes_cast_total",
			Help: "Total juror votes cast.",
		}),
		JuryInvitesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "court_jury_invites_sent_total",
			Help: "Total jury invitations sent.",
		}),
		JurorsSeated: factory.NewCounter(prometheus.CounterOpts{
			Name: "court_jurors_seated_total",
			Help: "Total jurors seated across all cases.",
		}),
		WarrantsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "court_warrants_issued_total",
			Help: "Total warrants issued by the warden.",
		}),
		WarrantsReleased: factory.NewCounter(prometheus.CounterOpts{
			Name: "court_warrants_released_total",
			Help: "Total warrants released before or at expiry.",
		}),
		PrisonersBooked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "court_prisoners_booked",
			Help: "Number of users currently booked (muted) by the warden.",
		}),
		HeartbeatSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "court_heartbeat_duration_seconds",
			Help:    "Duration of a full scheduler tick across all aggregates.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
