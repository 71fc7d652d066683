// Package metrics exposes Prometheus counters for the event coordinator and
// the undo/redo history.
package metrics

import (
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Prefix is shared by every metric this package registers.
const Prefix = "blockevents_"

var (
	EventsFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockevents_events_fired_total",
		Help: "Total number of event records delivered to listeners, by kind",
	}, []string{"kind"})

	FireCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockevents_fire_cycles_total",
		Help: "Total number of top-level fire cycles that delivered at least one event",
	})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockevents_diagnostics_total",
		Help: "Total number of coordinator protocol diagnostics, by code",
	}, []string{"code"})

	HistoryOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockevents_history_ops_total",
		Help: "Total number of undo/redo requests, by operation and result",
	}, []string{"op", "result"})

	GroupsCommittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockevents_groups_committed_total",
		Help: "Total number of event groups committed to the undo stack",
	})
)

// History op results.
const (
	ResultOK     = "ok"
	ResultEmpty  = "empty"
	ResultFailed = "failed"
)

// IncEventFired records one event delivered to the listener set.
func IncEventFired(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	EventsFiredTotal.WithLabelValues(kind).Inc()
}

// IncFireCycle records a completed top-level fire cycle.
func IncFireCycle() {
	FireCyclesTotal.Inc()
}

// IncDiagnostic records a reported protocol diagnostic.
func IncDiagnostic(code string) {
	if code == "" {
		code = "unknown"
	}
	DiagnosticsTotal.WithLabelValues(code).Inc()
}

// IncHistoryOp records an undo or redo request outcome.
func IncHistoryOp(op, result string) {
	HistoryOpsTotal.WithLabelValues(op, result).Inc()
}

// IncGroupCommitted records a group pushed onto the undo stack.
func IncGroupCommitted() {
	GroupsCommittedTotal.Inc()
}

// WriteText gathers from g and writes the blockevents families in the
// Prometheus text exposition format. Runtime and process collectors
// registered on the same gatherer are left out.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), Prefix) {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
