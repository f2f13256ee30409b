package workflow

import (
	"errors"
	"fmt"

	"github.com/vk/datajob/internal/dag"
)

var (
	ErrNoActiveWorkflow    = errors.New("no active workflow")
	ErrMalformedEdge       = errors.New("malformed edge")
	ErrInvalidSessionState = errors.New("invalid workflow session state")
	ErrNestedWorkflow      = errors.New("nested workflow")
	ErrCyclicDependency    = dag.ErrCyclicDependency
)

// CyclicDependencyError names the tasks that could not be ordered.
type CyclicDependencyError = dag.CyclicDependencyError

// NoActiveWorkflowError is returned when a declaration is made through a
// context that carries no workflow session.
type NoActiveWorkflowError struct{}

func (e *NoActiveWorkflowError) Error() string {
	return ErrNoActiveWorkflow.Error() + ": declare edges inside workflow.Run or a context from workflow.Open"
}

func (e *NoActiveWorkflowError) Unwrap() error { return ErrNoActiveWorkflow }

// MalformedEdgeError is returned for edges that cannot be interpreted.
type MalformedEdgeError struct {
	Reason string
}

func (e *MalformedEdgeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedEdge, e.Reason)
}

func (e *MalformedEdgeError) Unwrap() error { return ErrMalformedEdge }

func malformedf(format string, args ...any) error {
	return &MalformedEdgeError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidSessionStateError is returned when an operation does not fit the
// session's current state, such as declaring an edge after close.
type InvalidSessionStateError struct {
	Workflow string
	State    SessionState
	Op       string
}

func (e *InvalidSessionStateError) Error() string {
	return fmt.Sprintf("%s: cannot %s workflow %q in state %s", ErrInvalidSessionState, e.Op, e.Workflow, e.State)
}

func (e *InvalidSessionStateError) Unwrap() error { return ErrInvalidSessionState }

// NestedWorkflowError is returned when a session is opened while another
// one is still open in the same context.
type NestedWorkflowError struct {
	Outer string
	Inner string
}

func (e *NestedWorkflowError) Error() string {
	return fmt.Sprintf("%s: cannot open %q while %q is open", ErrNestedWorkflow, e.Inner, e.Outer)
}

func (e *NestedWorkflowError) Unwrap() error { return ErrNestedWorkflow }
