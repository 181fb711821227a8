// Package services – pipeline metrics.
//
// Counters for the ingestion and dispatch path. Labels are kept to small
// closed sets (feed source, dispatch outcome) so cardinality stays bounded.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// telegramsReceived counts telegrams entering the pipeline per feed.
	telegramsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quake_telegrams_received_total",
			Help: "Telegrams received from the provider, by feed.",
		},
		[]string{"source"},
	)

	// eventsAccepted counts events the dedup log accepted for processing.
	eventsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quake_events_accepted_total",
			Help: "Events accepted by the dedup log, by feed.",
		},
		[]string{"source"},
	)

	// eventsDuplicate counts dedup rejections. Non-zero values are normal:
	// both feeds observing the same telegram is the steady state.
	eventsDuplicate = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quake_events_duplicate_total",
			Help: "Events rejected as already accepted, by feed.",
		},
		[]string{"source"},
	)

	// dispatches counts per-workspace dispatch outcomes.
	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quake_dispatch_total",
			Help: "Per-workspace dispatch outcomes.",
		},
		[]string{"outcome"}, // sent|skipped|failed
	)

	// unrecordedSends counts Slack sends whose ledger row could not be
	// persisted. Every increment needs manual reconciliation.
	unrecordedSends = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quake_dispatch_unrecorded_total",
			Help: "Confirmed Slack sends with no persisted dispatch record.",
		},
	)
)

func init() {
	prometheus.MustRegister(telegramsReceived, eventsAccepted, eventsDuplicate, dispatches, unrecordedSends)
}

const (
	outcomeSent    = "sent"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)
