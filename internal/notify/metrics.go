package notify

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeSent    = "sent"
	outcomeFailed  = "failed"
	outcomeDropped = "dropped"
	outcomeQueued  = "queued"

	// kindSubmission labels events about a whole submission rather than one email.
	kindSubmission = "submission"
)

// notifications counts notification events by kind and outcome.
var notifications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lead_notifications_total",
		Help: "Lead notification events by kind (prospect|internal|submission) and outcome.",
	},
	[]string{"kind", "outcome"},
)

func init() {
	prometheus.MustRegister(notifications)
}
