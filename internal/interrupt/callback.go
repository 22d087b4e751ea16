package interrupt

// Category is the kind of engine event a subscription receives.
type Category int

const (
	// CategorySingleStep delivers one event per executed statement.
	CategorySingleStep Category = iota
	// CategoryNewScript delivers one event per loaded script.
	CategoryNewScript
	// CategoryCallExecute delivers function call and execution events.
	CategoryCallExecute
	// CategoryBreakpoint delivers trap hits for one breakpoint.
	CategoryBreakpoint

	categoryCount
)

// String returns a human-readable category name.
func (c Category) String() string {
	switch c {
	case CategorySingleStep:
		return "single-step"
	case CategoryNewScript:
		return "new-script"
	case CategoryCallExecute:
		return "call-execute"
	case CategoryBreakpoint:
		return "breakpoint"
	default:
		return "unknown"
	}
}

// Subscriber callbacks. The info value is shared between every subscriber of
// one event and must not be retained after the call returns.
type (
	// StepFunc receives single-step and breakpoint events.
	StepFunc func(info *InterruptInfo)

	// ScriptFunc receives new-script events.
	ScriptFunc func(info *ScriptInfo)

	// CallFunc receives call/execute events.
	CallFunc func(info *CallInfo)
)

// entry is one registered callback. Each concrete type carries the callback
// shape of its category.
type entry interface {
	connection() *Connection
}

type stepEntry struct {
	conn *Connection
	fn   StepFunc
}

type scriptEntry struct {
	conn *Connection
	fn   ScriptFunc
}

type callEntry struct {
	conn *Connection
	fn   CallFunc
}

func (e *stepEntry) connection() *Connection   { return e.conn }
func (e *scriptEntry) connection() *Connection { return e.conn }
func (e *callEntry) connection() *Connection   { return e.conn }

// callbackList keeps the entries of one category in subscription order.
type callbackList struct {
	entries []entry
}

// add appends an entry.
func (l *callbackList) add(e entry) {
	l.entries = append(l.entries, e)
}

// remove drops the entry owned by conn and reports whether it was present.
func (l *callbackList) remove(conn *Connection) bool {
	for i, e := range l.entries {
		if e.connection() == conn {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot returns the current entries. Subscriptions changed while a
// snapshot is being dispatched take effect on the next event.
func (l *callbackList) snapshot() []entry {
	if len(l.entries) == 0 {
		return nil
	}
	out := make([]entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// len returns the number of entries.
func (l *callbackList) len() int {
	return len(l.entries)
}

// dispatch calls every entry with the payload matching its category.
func dispatch(entries []entry, step *InterruptInfo, script *ScriptInfo, call *CallInfo) {
	for _, e := range entries {
		switch e := e.(type) {
		case *stepEntry:
			e.fn(step)
		case *scriptEntry:
			e.fn(script)
		case *callEntry:
			e.fn(call)
		}
	}
}
