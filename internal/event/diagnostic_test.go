package event

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/blockevents/internal/log"
)

func TestDiagnostic_Error(t *testing.T) {
	d := Diagnostic{Code: DiagEmptyPop, Message: "popped an empty group stack"}
	assert.Equal(t, "event coordinator: empty_pop: popped an empty group stack", d.Error())
}

func TestLogReporter_WritesWarning(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(zerolog.New(&buf))

	r.Report(Diagnostic{Code: DiagGroupViolation, Message: "bad push", Current: "A", Requested: "B", Depth: 2})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "group_violation", entry[log.FieldDiagnostic])
	assert.Equal(t, "A", entry[log.FieldGroupID])
	assert.Equal(t, "B", entry[log.FieldRequested])
	assert.Equal(t, "bad push", entry["message"])
}

func TestLogReporter_ProceedsOnViolation(t *testing.T) {
	var buf bytes.Buffer
	c := New(WithReporter(NewLogReporter(zerolog.New(&buf))), WithMetrics(false))

	c.PushGroup("A")
	c.PushGroup("B")

	assert.Equal(t, 2, c.GroupDepth())
	assert.Contains(t, buf.String(), "group_violation")
}

func TestRecordingReporter_Forwards(t *testing.T) {
	var forwarded []DiagCode
	next := ReporterFunc(func(d Diagnostic) { forwarded = append(forwarded, d.Code) })
	r := NewRecordingReporter(next)

	r.Report(Diagnostic{Code: DiagEmptyPop})
	r.Report(Diagnostic{Code: DiagNilEvent})
	r.Report(Diagnostic{Code: DiagEmptyPop})

	assert.Equal(t, []DiagCode{DiagEmptyPop, DiagNilEvent, DiagEmptyPop}, forwarded)
	assert.Equal(t, 2, r.Count(DiagEmptyPop))
	assert.Len(t, r.Diagnostics(), 3)

	r.Reset()
	assert.Empty(t, r.Diagnostics())
}

func TestAssertReporter_Panics(t *testing.T) {
	assert.Panics(t, func() {
		AssertReporter{}.Report(Diagnostic{Code: DiagEmptyPop})
	})
}
