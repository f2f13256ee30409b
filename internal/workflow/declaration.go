package workflow

import "github.com/vk/datajob/internal/task"

// Declaration is a fluent edge builder:
//
//	s.From(a).Then(b, c).Then(d).End()
//
// Passing several tasks to From or Then forms a Group. The first error
// sticks; later calls are no-ops.
type Declaration struct {
	s    *Session
	last any
	err  error
}

// From starts a declaration at the given task(s).
func (s *Session) From(ts ...task.Task) *Declaration {
	d := &Declaration{s: s}
	d.last, d.err = operandOf(ts)
	if d.err != nil {
		s.record(d.err)
	}
	return d
}

// Then declares that the current operand precedes ts and moves on to ts.
func (d *Declaration) Then(ts ...task.Task) *Declaration {
	if d.err != nil {
		return d
	}
	next, err := operandOf(ts)
	if err != nil {
		d.err = err
		d.s.record(err)
		return d
	}
	if d.err = d.s.Declare(d.last, next); d.err == nil {
		d.last = next
	}
	return d
}

// FanOut is Then with an explicit group, even for a single task.
func (d *Declaration) FanOut(ts ...task.Task) *Declaration {
	if d.err != nil {
		return d
	}
	if d.err = d.s.Declare(d.last, Group(ts)); d.err == nil {
		d.last = Group(ts)
	}
	return d
}

// End marks the current operand as the end of its branch.
func (d *Declaration) End() error {
	if d.err != nil {
		return d.err
	}
	d.err = d.s.Declare(d.last, End)
	return d.err
}

// Err returns the first error hit by the declaration.
func (d *Declaration) Err() error { return d.err }

func operandOf(ts []task.Task) (any, error) {
	switch len(ts) {
	case 0:
		return nil, malformedf("no tasks given")
	case 1:
		if ts[0] == nil {
			return nil, malformedf("task is nil")
		}
		return ts[0], nil
	default:
		return Group(ts), nil
	}
}

func (s *Session) record(err error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateOpen {
		s.declErrs = append(s.declErrs, err)
	}
}
