package event

import (
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/blockevents/internal/log"
	"github.com/dshills/blockevents/internal/metrics"
)

// Coordinator queues, groups, and fires event records.
//
// One Coordinator exists per editor session. It is constructed at startup and
// passed by reference to every mutator and listener. It is not safe for
// concurrent use: all calls must come from the same goroutine.
type Coordinator struct {
	pending   []Record
	groups    []string
	listeners []Listener

	// depth is the FirePendingEvents recursion depth.
	depth int

	reporter Reporter
	logger   zerolog.Logger
	newID    func() string
	metrics  bool
}

// New creates a Coordinator with the given options.
func New(opts ...Option) *Coordinator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.reporter == nil {
		cfg.reporter = NewLogReporter(cfg.logger)
	}
	return &Coordinator{
		reporter: cfg.reporter,
		logger:   cfg.logger,
		newID:    cfg.newID,
		metrics:  cfg.metrics,
	}
}

// AddPendingEvent enqueues r for the next fire cycle.
// If r has no group yet it joins CurrentGroupID, which may be the none group.
// Listeners are never invoked from here.
func (c *Coordinator) AddPendingEvent(r Record) {
	if r == nil {
		c.report(Diagnostic{Code: DiagNilEvent, Message: "nil record ignored"})
		return
	}
	r.base().assignGroup(c.CurrentGroupID())
	c.pending = append(c.pending, r)
}

// FirePendingEvents delivers every queued record to every listener.
//
// The queue is swapped out before iteration, so listeners may enqueue more
// records and call FirePendingEvents again. A nested call drains whatever has
// been queued since the swap before the outer call resumes. When the
// outermost call finishes, every CycleListener is told the cycle ended.
func (c *Coordinator) FirePendingEvents() {
	if len(c.pending) == 0 {
		return
	}
	c.drain()
	if c.depth == 0 {
		c.endCycle()
	}
}

// TryFirePendingEvents is FirePendingEvents for callers that must not
// unwind: a listener panic is returned as a *PanicError. Unseen records are
// requeued as usual, and cycle listeners are not told the cycle ended.
func (c *Coordinator) TryFirePendingEvents() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: string(debug.Stack())}
			c.logger.Error().Err(err).Int(log.FieldPending, len(c.pending)).Msg("listener panicked")
		}
	}()
	c.FirePendingEvents()
	return nil
}

func (c *Coordinator) drain() {
	batch := c.pending
	c.pending = nil
	c.depth++

	next := 0
	defer func() {
		c.depth--
		if next < len(batch) {
			// A listener panicked. Requeue the records nobody has seen yet.
			rest := make([]Record, 0, len(batch)-next+len(c.pending))
			rest = append(rest, batch[next:]...)
			c.pending = append(rest, c.pending...)
		}
	}()

	for next < len(batch) {
		r := batch[next]
		next++
		c.logger.Debug().
			Str(log.FieldEventKind, r.Kind().String()).
			Str(log.FieldBlockID, r.BlockID()).
			Str(log.FieldGroupID, r.GroupID()).
			Int(log.FieldDepth, c.depth).
			Msg("firing record")
		for _, l := range c.snapshot() {
			l.Notify(c, r)
		}
		if c.metrics {
			metrics.IncEventFired(r.Kind().String())
		}
	}
}

func (c *Coordinator) endCycle() {
	c.logger.Debug().Int(log.FieldPending, len(c.pending)).Msg("fire cycle ended")
	if c.metrics {
		metrics.IncFireCycle()
	}
	for _, l := range c.snapshot() {
		if cl, ok := l.(CycleListener); ok {
			cl.FireCycleEnded(c)
		}
	}
}

// PushNewGroup pushes a freshly generated group id and returns it.
func (c *Coordinator) PushNewGroup() string {
	id := c.newID()
	c.PushGroup(id)
	return id
}

// PushGroup pushes id onto the group stack.
//
// Pushing the id already on top is allowed and must be balanced by its own
// PopGroup. Pushing a different id while the stack is non-empty is reported
// as DiagGroupViolation; the push happens regardless.
func (c *Coordinator) PushGroup(id string) {
	current, open := c.top()
	c.groups = append(c.groups, id)

	if id == "" {
		c.report(Diagnostic{
			Code:    DiagEmptyGroupID,
			Message: "pushed the none group",
			Current: current,
			Depth:   len(c.groups),
		})
	}
	if open && current != id {
		c.report(Diagnostic{
			Code:      DiagGroupViolation,
			Message:   "pushed a different group while another group is open",
			Current:   current,
			Requested: id,
			Depth:     len(c.groups),
		})
	}
}

// PopGroup removes and returns the top group id.
// On an empty stack it reports DiagEmptyPop and returns false.
func (c *Coordinator) PopGroup() (string, bool) {
	id, ok := c.top()
	if !ok {
		c.report(Diagnostic{Code: DiagEmptyPop, Message: "popped an empty group stack"})
		return "", false
	}
	c.groups = c.groups[:len(c.groups)-1]
	return id, true
}

// CurrentGroupID returns the top of the group stack, or "" if it is empty.
func (c *Coordinator) CurrentGroupID() string {
	id, _ := c.top()
	return id
}

// GroupDepth returns the number of entries on the group stack.
func (c *Coordinator) GroupDepth() int {
	return len(c.groups)
}

// PendingCount returns the number of queued records.
func (c *Coordinator) PendingCount() int {
	return len(c.pending)
}

// FireDepth returns how many FirePendingEvents calls are on the call stack.
func (c *Coordinator) FireDepth() int {
	return c.depth
}

// IsFiring reports whether a fire cycle is in progress.
func (c *Coordinator) IsFiring() bool {
	return c.depth > 0
}

// AddListener registers l. Registering the same listener twice is a no-op.
func (c *Coordinator) AddListener(l Listener) {
	if l == nil || c.indexOf(l) >= 0 {
		return
	}
	c.listeners = append(c.listeners, l)
}

// RemoveListener unregisters l. Removing an unknown listener is a no-op.
// A listener removed during a fire cycle still sees the record being
// delivered but none after it.
func (c *Coordinator) RemoveListener(l Listener) {
	i := c.indexOf(l)
	if i < 0 {
		return
	}
	listeners := make([]Listener, 0, len(c.listeners)-1)
	listeners = append(listeners, c.listeners[:i]...)
	c.listeners = append(listeners, c.listeners[i+1:]...)
}

// ListenerCount returns the number of registered listeners.
func (c *Coordinator) ListenerCount() int {
	return len(c.listeners)
}

// Reset discards queued records and open groups. It is meant for session
// teardown; leftovers are reported as stale since both should be empty
// between user actions.
func (c *Coordinator) Reset() {
	if n := len(c.groups); n > 0 {
		current, _ := c.top()
		c.groups = nil
		c.report(Diagnostic{
			Code:    DiagStaleGroups,
			Message: "group stack not empty at reset",
			Current: current,
			Depth:   n,
		})
	}
	if n := len(c.pending); n > 0 {
		c.pending = nil
		c.report(Diagnostic{
			Code:    DiagStalePending,
			Message: "pending queue not empty at reset",
			Depth:   n,
		})
	}
}

func (c *Coordinator) top() (string, bool) {
	if len(c.groups) == 0 {
		return "", false
	}
	return c.groups[len(c.groups)-1], true
}

func (c *Coordinator) indexOf(l Listener) int {
	for i, existing := range c.listeners {
		if existing == l {
			return i
		}
	}
	return -1
}

// snapshot returns the listener list as of now. RemoveListener copies on
// write, so the returned slice is never mutated underneath the caller.
func (c *Coordinator) snapshot() []Listener {
	return c.listeners[:len(c.listeners):len(c.listeners)]
}

func (c *Coordinator) report(d Diagnostic) {
	if c.metrics {
		metrics.IncDiagnostic(string(d.Code))
	}
	c.reporter.Report(d)
}

func newGroupID() string {
	return uuid.NewString()
}
