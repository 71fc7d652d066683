package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Ops understood by the runner.
const (
	OpPushGroup    = "push_group"
	OpPushNewGroup = "push_new_group"
	OpPopGroup     = "pop_group"
	OpCreate       = "create"
	OpDelete       = "delete"
	OpMove         = "move"
	OpSetField     = "set_field"
	OpSetMutation  = "set_mutation"
	OpFire         = "fire"
	OpUndo         = "undo"
	OpRedo         = "redo"
	OpExpect       = "expect"
)

var (
	// ErrInvalidScript reports a script that fails validation.
	ErrInvalidScript = errors.New("invalid script")

	// ErrExpectation reports an expect step that did not hold.
	ErrExpectation = errors.New("expectation failed")
)

// Script is one editing session.
type Script struct {
	// Name identifies the script in traces and golden files.
	Name string `yaml:"name"`

	// Workspace is the id of the workspace the session edits.
	Workspace string `yaml:"workspace"`

	// MaxEntries overrides the history limit when non-zero.
	MaxEntries int `yaml:"max_entries,omitempty"`

	// Listeners are Lua listeners attached after the history stack, in
	// order.
	Listeners []ListenerSpec `yaml:"listeners,omitempty"`

	Steps []Step `yaml:"steps"`
}

// ListenerSpec is one Lua listener. See package luabind for the API the
// source can use.
type ListenerSpec struct {
	Name string `yaml:"name,omitempty"`
	Lua  string `yaml:"lua"`
}

// Step is a single op. Which fields apply depends on Op.
type Step struct {
	Op string `yaml:"op"`

	// ID is the group id for push_group.
	ID string `yaml:"id,omitempty"`

	// Block mutator arguments.
	Block    string            `yaml:"block,omitempty"`
	Type     string            `yaml:"type,omitempty"`
	Parent   string            `yaml:"parent,omitempty"`
	Input    string            `yaml:"input,omitempty"`
	X        int               `yaml:"x,omitempty"`
	Y        int               `yaml:"y,omitempty"`
	Fields   map[string]string `yaml:"fields,omitempty"`
	Name     string            `yaml:"name,omitempty"`
	Value    string            `yaml:"value,omitempty"`
	Mutation string            `yaml:"mutation,omitempty"`

	// WantError makes the step expect a failure whose message contains
	// the given text.
	WantError string `yaml:"want_error,omitempty"`

	// Expectations, checked by expect. Unset fields are not checked.
	Undo    *int              `yaml:"undo,omitempty"`
	Redo    *int              `yaml:"redo,omitempty"`
	Blocks  *int              `yaml:"blocks,omitempty"`
	Pending *int              `yaml:"pending,omitempty"`
	Depth   *int              `yaml:"depth,omitempty"`
	Group   *string           `yaml:"group,omitempty"`
	Exists  []string          `yaml:"exists,omitempty"`
	Absent  []string          `yaml:"absent,omitempty"`
	Field   *FieldExpectation `yaml:"field,omitempty"`
}

// FieldExpectation checks one field value of one block.
type FieldExpectation struct {
	Block string `yaml:"block"`
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Load reads and validates a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a script. Unknown keys are rejected.
func Parse(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidScript)
		}
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every step names a known op with its required
// arguments.
func (s *Script) Validate() error {
	var problems []string
	if s.Workspace == "" {
		problems = append(problems, "workspace is required")
	}
	if s.MaxEntries < 0 {
		problems = append(problems, "max_entries must not be negative")
	}
	for i, l := range s.Listeners {
		if strings.TrimSpace(l.Lua) == "" {
			problems = append(problems, fmt.Sprintf("listener %d: lua is required", i))
		}
	}
	for i, st := range s.Steps {
		if msg := st.validate(); msg != "" {
			problems = append(problems, fmt.Sprintf("step %d (%s): %s", i, st.Op, msg))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidScript, strings.Join(problems, "; "))
	}
	return nil
}

func (st Step) validate() string {
	switch st.Op {
	case OpPushGroup:
		// An empty id is allowed: it exercises the empty group diagnostic.
	case OpPushNewGroup, OpPopGroup, OpFire, OpUndo, OpRedo:
	case OpCreate:
		if st.Block == "" || st.Type == "" {
			return "block and type are required"
		}
	case OpDelete, OpMove, OpSetMutation:
		if st.Block == "" {
			return "block is required"
		}
	case OpSetField:
		if st.Block == "" || st.Name == "" {
			return "block and name are required"
		}
	case OpExpect:
		if st.Field != nil && (st.Field.Block == "" || st.Field.Name == "") {
			return "field.block and field.name are required"
		}
	case "":
		return "op is required"
	default:
		return "unknown op"
	}
	return ""
}
