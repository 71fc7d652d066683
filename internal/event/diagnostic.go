package event

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/blockevents/internal/log"
)

// DiagCode classifies a coordinator protocol diagnostic.
type DiagCode string

// Diagnostic codes.
const (
	// DiagGroupViolation: a different group was pushed while another was open.
	DiagGroupViolation DiagCode = "group_violation"

	// DiagEmptyPop: PopGroup was called with an empty group stack.
	DiagEmptyPop DiagCode = "empty_pop"

	// DiagEmptyGroupID: PushGroup was called with the none group.
	DiagEmptyGroupID DiagCode = "empty_group_id"

	// DiagNilEvent: AddPendingEvent was called with a nil record.
	DiagNilEvent DiagCode = "nil_event"

	// DiagStaleGroups: groups were still open when the coordinator was reset.
	DiagStaleGroups DiagCode = "stale_groups"

	// DiagStalePending: records were still queued when the coordinator was reset.
	DiagStalePending DiagCode = "stale_pending"
)

// Diagnostic describes a grouping protocol problem. Diagnostics are local:
// the operation that produced one always completes.
type Diagnostic struct {
	Code      DiagCode
	Message   string
	Current   string // group on top of the stack when reported
	Requested string // group passed to PushGroup, if any
	Depth     int    // group stack depth when reported
}

// Error implements error so a Diagnostic can be panicked or wrapped.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("event coordinator: %s: %s", d.Code, d.Message)
}

// Reporter receives coordinator diagnostics.
type Reporter interface {
	Report(d Diagnostic)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(d Diagnostic)

// Report implements Reporter.
func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// AssertReporter panics on every diagnostic. Use it in development builds and
// tests where a protocol violation should stop the program.
type AssertReporter struct{}

// Report panics with d.
func (AssertReporter) Report(d Diagnostic) {
	panic(d)
}

// LogReporter writes diagnostics as warnings and lets the caller proceed.
type LogReporter struct {
	logger zerolog.Logger
}

// NewLogReporter returns a LogReporter writing to l.
func NewLogReporter(l zerolog.Logger) *LogReporter {
	return &LogReporter{logger: l}
}

// DefaultReporter returns the production reporter on the coordinator logger.
func DefaultReporter() Reporter {
	return NewLogReporter(log.WithComponent("coordinator"))
}

// Report implements Reporter.
func (r *LogReporter) Report(d Diagnostic) {
	r.logger.Warn().
		Str(log.FieldDiagnostic, string(d.Code)).
		Str(log.FieldGroupID, d.Current).
		Str(log.FieldRequested, d.Requested).
		Int(log.FieldDepth, d.Depth).
		Msg(d.Message)
}

// RecordingReporter keeps every diagnostic it sees and optionally forwards it.
type RecordingReporter struct {
	mu    sync.Mutex
	next  Reporter
	diags []Diagnostic
}

// NewRecordingReporter returns a RecordingReporter forwarding to next, which
// may be nil.
func NewRecordingReporter(next Reporter) *RecordingReporter {
	return &RecordingReporter{next: next}
}

// Report implements Reporter.
func (r *RecordingReporter) Report(d Diagnostic) {
	r.mu.Lock()
	r.diags = append(r.diags, d)
	next := r.next
	r.mu.Unlock()

	if next != nil {
		next.Report(d)
	}
}

// Diagnostics returns a copy of the recorded diagnostics.
func (r *RecordingReporter) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	return out
}

// Count returns how many diagnostics with code were recorded.
func (r *RecordingReporter) Count(code DiagCode) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.diags {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Reset forgets all recorded diagnostics.
func (r *RecordingReporter) Reset() {
	r.mu.Lock()
	r.diags = nil
	r.mu.Unlock()
}
