package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts engine activity for the /metrics endpoint.
type Metrics struct {
	Actions     prometheus.Counter
	LocalSaves  prometheus.Counter
	RemoteSaves prometheus.Counter
	Conflicts   prometheus.Counter
	Polls       prometheus.Counter
	Adoptions   prometheus.Counter
}

// NewMetrics registers the engine counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Actions: factory.NewCounter(prometheus.CounterOpts{
			Name: "headnotes_sync_actions_total",
			Help: "Mutations applied to the in-memory document.",
		}),
		LocalSaves: factory.NewCounter(prometheus.CounterOpts{
			Name: "headnotes_sync_local_saves_total",
			Help: "Successful writes to the local cache.",
		}),
		RemoteSaves: factory.NewCounter(prometheus.CounterOpts{
			Name: "headnotes_sync_remote_saves_total",
			Help: "Successful conditional writes to the remote store.",
		}),
		Conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "headnotes_sync_conflicts_total",
			Help: "Conditional writes rejected by the remote store.",
		}),
		Polls: factory.NewCounter(prometheus.CounterOpts{
			Name: "headnotes_sync_polls_total",
			Help: "Remote document fetches from the poll loop.",
		}),
		Adoptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "headnotes_sync_adoptions_total",
			Help: "Remote snapshots adopted over the local copy.",
		}),
	}
}
