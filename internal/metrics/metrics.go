package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/emilythestrangee/ai-forum/backend/internal/voting"
)

// Recorder owns the forum's prometheus collectors and satisfies
// voting.Observer.
type Recorder struct {
	Registry *prometheus.Registry

	votes          *prometheus.CounterVec
	reputationFail *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		Registry: reg,
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forum",
			Name:      "votes_total",
			Help:      "Applied votes by entity kind and state transition.",
		}, []string{"kind", "transition"}),
		reputationFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forum",
			Name:      "reputation_write_failures_total",
			Help:      "Vote transactions rolled back because a score increment failed.",
		}, []string{"kind"}),
	}
	reg.MustRegister(r.votes, r.reputationFail)
	return r
}

func (r *Recorder) VoteApplied(kind voting.Kind, t voting.Transition) {
	r.votes.WithLabelValues(string(kind), string(t)).Inc()
}

func (r *Recorder) ReputationWriteFailed(kind voting.Kind) {
	r.reputationFail.WithLabelValues(string(kind)).Inc()
}
