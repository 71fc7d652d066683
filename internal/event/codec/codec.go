// Package codec serializes event records to JSON and back.
//
// A record is encoded as a flat object with the base fields and one nested
// object for the variant payload:
//
//	{"kind":"change","workspace":"ws","block":"b1","group":"g1","grouped":true,
//	 "time":"2024-01-02T03:04:05Z","change":{"element":"field","name":"NUM",
//	 "old":"1","new":"2"}}
package codec

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/blockevents/internal/event"
	"github.com/dshills/blockevents/internal/event/events"
)

var (
	ErrMalformed   = errors.New("malformed record")
	ErrUnknownKind = errors.New("unknown record kind")
)

// Marshal encodes r.
func Marshal(r event.Record) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("marshal: %w: nil record", ErrMalformed)
	}

	b := &builder{data: []byte(`{}`)}
	b.set("kind", string(r.Kind()))
	b.set("workspace", r.WorkspaceID())
	b.set("block", r.BlockID())
	b.set("group", r.GroupID())
	b.set("grouped", r.GroupAssigned())
	b.set("time", r.Timestamp().UTC().Format(time.RFC3339Nano))

	switch rec := r.(type) {
	case *events.Create:
		b.setState("create", rec.State)
	case *events.Delete:
		b.setState("delete", rec.OldState)
	case *events.Move:
		b.set("move.old.parent", rec.OldParentID)
		b.set("move.old.input", rec.OldInputName)
		b.set("move.old.x", rec.OldPosition.X)
		b.set("move.old.y", rec.OldPosition.Y)
		b.set("move.new.parent", rec.NewParentID)
		b.set("move.new.input", rec.NewInputName)
		b.set("move.new.x", rec.NewPosition.X)
		b.set("move.new.y", rec.NewPosition.Y)
	case *events.Change:
		b.set("change.element", rec.Element)
		b.set("change.name", rec.Name)
		b.set("change.old", rec.OldValue)
		b.set("change.new", rec.NewValue)
	case *events.Mutate:
		b.set("mutate.old", rec.OldMutation)
		b.set("mutate.new", rec.NewMutation)
	case *events.Custom:
		b.set("payload", stringMap(rec.Payload))
	default:
		return nil, fmt.Errorf("marshal %s: %w", r.Kind(), ErrUnknownKind)
	}

	if b.err != nil {
		return nil, fmt.Errorf("marshal %s: %w", r.Kind(), b.err)
	}
	return b.data, nil
}

// Unmarshal decodes a record produced by Marshal. The group tag is restored
// as it was: a record that was already enqueued keeps its group.
func Unmarshal(data []byte) (event.Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("unmarshal: %w: invalid JSON", ErrMalformed)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("unmarshal: %w: not an object", ErrMalformed)
	}

	kind := event.Kind(doc.Get("kind").String())
	if kind == "" {
		return nil, fmt.Errorf("unmarshal: %w: missing kind", ErrUnknownKind)
	}

	var ts time.Time
	if raw := doc.Get("time").String(); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w: time: %v", kind, ErrMalformed, err)
		}
		ts = parsed
	}

	base := event.RestoreBase(
		kind,
		doc.Get("workspace").String(),
		doc.Get("block").String(),
		doc.Get("group").String(),
		doc.Get("grouped").Bool(),
		ts,
	)

	switch kind {
	case event.KindCreate:
		return &events.Create{Base: base, State: getState(doc.Get("create"))}, nil
	case event.KindDelete:
		return &events.Delete{Base: base, OldState: getState(doc.Get("delete"))}, nil
	case event.KindMove:
		m := doc.Get("move")
		return &events.Move{
			Base:         base,
			OldParentID:  m.Get("old.parent").String(),
			OldInputName: m.Get("old.input").String(),
			OldPosition:  events.Position{X: int(m.Get("old.x").Int()), Y: int(m.Get("old.y").Int())},
			NewParentID:  m.Get("new.parent").String(),
			NewInputName: m.Get("new.input").String(),
			NewPosition:  events.Position{X: int(m.Get("new.x").Int()), Y: int(m.Get("new.y").Int())},
		}, nil
	case event.KindChange:
		c := doc.Get("change")
		return &events.Change{
			Base:     base,
			Element:  c.Get("element").String(),
			Name:     c.Get("name").String(),
			OldValue: c.Get("old").String(),
			NewValue: c.Get("new").String(),
		}, nil
	case event.KindMutate:
		m := doc.Get("mutate")
		return &events.Mutate{
			Base:        base,
			OldMutation: m.Get("old").String(),
			NewMutation: m.Get("new").String(),
		}, nil
	default:
		return &events.Custom{Base: base, Payload: getStringMap(doc.Get("payload"))}, nil
	}
}

// builder accumulates sjson writes and keeps the first error.
type builder struct {
	data []byte
	err  error
}

func (b *builder) set(path string, value any) {
	if b.err != nil {
		return
	}
	b.data, b.err = sjson.SetBytes(b.data, path, value)
}

func (b *builder) setState(prefix string, s events.BlockState) {
	b.set(prefix+".id", s.ID)
	b.set(prefix+".type", s.Type)
	b.set(prefix+".parent", s.ParentID)
	b.set(prefix+".input", s.InputName)
	b.set(prefix+".x", s.Position.X)
	b.set(prefix+".y", s.Position.Y)
	b.set(prefix+".fields", stringMap(s.Fields))
	b.set(prefix+".mutation", s.Mutation)
	b.set(prefix+".comment", s.Comment)
	b.set(prefix+".collapsed", s.Collapsed)
	b.set(prefix+".disabled", s.Disabled)
}

func getState(v gjson.Result) events.BlockState {
	return events.BlockState{
		ID:        v.Get("id").String(),
		Type:      v.Get("type").String(),
		ParentID:  v.Get("parent").String(),
		InputName: v.Get("input").String(),
		Position:  events.Position{X: int(v.Get("x").Int()), Y: int(v.Get("y").Int())},
		Fields:    getStringMap(v.Get("fields")),
		Mutation:  v.Get("mutation").String(),
		Comment:   v.Get("comment").String(),
		Collapsed: v.Get("collapsed").Bool(),
		Disabled:  v.Get("disabled").Bool(),
	}
}

// stringMap returns m, or an empty map so the JSON is always an object.
func stringMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func getStringMap(v gjson.Result) map[string]string {
	if !v.IsObject() {
		return nil
	}
	var out map[string]string
	v.ForEach(func(key, value gjson.Result) bool {
		if out == nil {
			out = make(map[string]string)
		}
		out[key.String()] = value.String()
		return true
	})
	return out
}
