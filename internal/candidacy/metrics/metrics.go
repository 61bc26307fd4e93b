// Package metrics holds the candidacy engine's Prometheus instruments. The
// struct is passed into services explicitly; nothing registers globally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the engine's externally interesting outcomes.
type Metrics struct {
	checkpointsScheduled prometheus.Counter
	candidatesConfirmed  prometheus.Counter
	checkpointsDismissed prometheus.Counter
	evaluationFailures   prometheus.Counter
	eventsPublished      prometheus.Counter
	publishFailures      prometheus.Counter
	outdatedClosed       prometheus.Counter
	exceptionsCreated    prometheus.Counter
	notApplicableCreated prometheus.Counter
}

// New registers the candidacy metrics against the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		checkpointsScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "dialogmotekandidat_checkpoints_scheduled_total",
			Help: "Planned checkpoints created by the scheduler",
		}),
		candidatesConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "dialogmotekandidat_candidates_confirmed_total",
			Help: "Checkpoints that confirmed candidacy and emitted an event",
		}),
		checkpointsDismissed: factory.NewCounter(prometheus.CounterOpts{
			Name: "dialogmotekandidat_checkpoints_dismissed_total",
			Help: "Checkpoints evaluated to not-candidate without an event",
		}),
		evaluationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dialogmotekandidat_evaluation_failures_total",
			Help: "Checkpoint evaluations that failed and were left for retry",
		}),
		eventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "dialogmotekandidat_events_published_total",
			Help: "Candidacy events delivered to the outbound stream",
		}),
		publishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dialogmotekandidat_publish_failures_total",
			Help: "Outbox relay delivery failures",
		}),
		outdatedClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "dialogmotekandidat_outdated_closed_total",
			Help: "Stale candidacies closed by the cleanup sweep",
		}),
		exceptionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "dialogmotekandidat_exceptions_created_total",
			Help: "Case-worker exceptions recorded",
		}),
		notApplicableCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "dialogmotekandidat_not_applicable_created_total",
			Help: "Not-applicable closures recorded",
		}),
	}
}

func (m *Metrics) CheckpointScheduled()  { m.checkpointsScheduled.Inc() }
func (m *Metrics) CandidateConfirmed()   { m.candidatesConfirmed.Inc() }
func (m *Metrics) CheckpointDismissed()  { m.checkpointsDismissed.Inc() }
func (m *Metrics) EvaluationFailed()     { m.evaluationFailures.Inc() }
func (m *Metrics) EventPublished()       { m.eventsPublished.Inc() }
func (m *Metrics) PublishFailed()        { m.publishFailures.Inc() }
func (m *Metrics) OutdatedClosed()       { m.outdatedClosed.Inc() }
func (m *Metrics) ExceptionCreated()     { m.exceptionsCreated.Inc() }
func (m *Metrics) NotApplicableCreated() { m.notApplicableCreated.Inc() }
