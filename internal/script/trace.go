package script

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/blockevents/internal/history"
)

// Trace is the observable outcome of a run.
type Trace struct {
	Script    string         `json:"script"`
	Workspace string         `json:"workspace"`
	Steps     []StepResult   `json:"steps"`
	Blocks    []string       `json:"blocks"`
	Undo      []GroupSummary `json:"undo"`
	Redo      []GroupSummary `json:"redo"`
}

// StepResult records one executed step.
type StepResult struct {
	Index  int    `json:"index"`
	Op     string `json:"op"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`

	// Fired holds the records delivered during the step, encoded by the
	// record codec without timestamps.
	Fired []json.RawMessage `json:"fired,omitempty"`

	// Diagnostics lists the codes reported during the step.
	Diagnostics []string `json:"diagnostics,omitempty"`

	UndoCount int `json:"undo"`
	RedoCount int `json:"redo"`
}

// GroupSummary describes one history entry.
type GroupSummary struct {
	ID    string   `json:"id"`
	Kinds []string `json:"kinds"`
}

func summarize(infos []history.GroupInfo) []GroupSummary {
	out := make([]GroupSummary, 0, len(infos))
	for _, info := range infos {
		kinds := make([]string, len(info.Kinds))
		for i, k := range info.Kinds {
			kinds[i] = string(k)
		}
		out = append(out, GroupSummary{ID: info.ID, Kinds: kinds})
	}
	return out
}

// JSON returns the indented JSON form of t.
func (t *Trace) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode trace: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteJSON writes the JSON form of t to w.
func (t *Trace) WriteJSON(w io.Writer) error {
	data, err := t.JSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteText writes a human-readable rendering of t to w.
func (t *Trace) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "script %s (workspace %s)\n", orDash(t.Script), t.Workspace)
	for _, st := range t.Steps {
		head := st.Op
		if st.Result != "" {
			head += " " + st.Result
		}
		fmt.Fprintf(&b, "%3d  %-40s undo=%d redo=%d\n", st.Index, head, st.UndoCount, st.RedoCount)
		for _, raw := range st.Fired {
			fmt.Fprintf(&b, "       %s\n", describeFired(raw))
		}
		for _, code := range st.Diagnostics {
			fmt.Fprintf(&b, "       ! %s\n", code)
		}
		if st.Error != "" {
			fmt.Fprintf(&b, "       error: %s\n", st.Error)
		}
	}
	fmt.Fprintf(&b, "blocks: %s\n", strings.Join(t.Blocks, " "))
	fmt.Fprintf(&b, "undo:   %s\n", describeGroups(t.Undo))
	fmt.Fprintf(&b, "redo:   %s\n", describeGroups(t.Redo))

	_, err := io.WriteString(w, b.String())
	return err
}

func describeFired(raw json.RawMessage) string {
	res := gjson.GetManyBytes(raw, "kind", "block", "group", "replay")
	s := fmt.Sprintf("%s %s group=%s", res[0].String(), res[1].String(), orDash(res[2].String()))
	if res[3].Bool() {
		s += " (replay)"
	}
	return s
}

func describeGroups(groups []GroupSummary) string {
	if len(groups) == 0 {
		return "-"
	}
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = fmt.Sprintf("%s[%s]", orDash(g.ID), strings.Join(g.Kinds, ","))
	}
	return strings.Join(parts, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
