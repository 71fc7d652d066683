package event

// Listener observes fired records.
//
// Notify is called once per (record, listener) pair per fire cycle, on the
// goroutine that called FirePendingEvents. Implementations may call back into
// the coordinator: push or pop groups, enqueue records, and fire again.
//
// Listeners are registered by identity, so the dynamic type must be
// comparable. Wrap closures with ListenerFunc.
type Listener interface {
	Notify(c *Coordinator, r Record)
}

// CycleListener is implemented by listeners that want to know when the
// outermost FirePendingEvents call is about to return.
type CycleListener interface {
	Listener
	FireCycleEnded(c *Coordinator)
}

// FuncListener adapts a function to the Listener interface.
type FuncListener struct {
	fn func(c *Coordinator, r Record)
}

// ListenerFunc wraps fn in a comparable Listener.
func ListenerFunc(fn func(c *Coordinator, r Record)) *FuncListener {
	return &FuncListener{fn: fn}
}

// Notify implements Listener.
func (f *FuncListener) Notify(c *Coordinator, r Record) {
	if f.fn != nil {
		f.fn(c, r)
	}
}
