package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidGraph     = errors.New("invalid task graph")
	ErrCyclicDependency = errors.New("cyclic dependency")
	ErrUnknownTask      = errors.New("unknown task")
)

// GraphError wraps graph validation failures.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

// CyclicDependencyError is returned when the graph cannot be sorted. Nodes
// lists every task that could not be placed in a level, sorted by name.
type CyclicDependencyError struct {
	Nodes []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("%s between tasks: %s", ErrCyclicDependency, strings.Join(e.Nodes, ", "))
}

func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDependency }
