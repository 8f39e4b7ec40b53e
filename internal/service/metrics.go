package service

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	mutationDirect     = "direct"
	mutationPropagated = "propagated"
	mutationCascade    = "cascade"
)

var (
	confidenceMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_confidence_mutations_total",
		Help: "Confidence writes by entity type and kind (direct, propagated, cascade)",
	}, []string{"entity", "kind"})

	propagationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_propagation_failures_total",
		Help: "Propagation or cascade targets skipped after a failed write",
	}, []string{"entity"})

	noteVotes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_note_votes_total",
		Help: "Community note votes cast",
	}, []string{"helpful"})

	noteDisplayTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_note_display_transitions_total",
		Help: "Community note display flag changes",
	}, []string{"displayed"})

	clusterAssignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_cluster_assignments_total",
		Help: "Cluster assignments by action (joined, created)",
	}, []string{"action"})
)

func boolLabel(b bool) string {
	return strconv.FormatBool(b)
}
