// Package workflow collects task dependencies declared inside a workflow
// session and compiles them into an execution chain when the session closes.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/datajob/internal/asl"
	"github.com/vk/datajob/internal/chain"
	"github.com/vk/datajob/internal/ctxlog"
	"github.com/vk/datajob/internal/dag"
)

// SessionState is the lifecycle state of a Session.
type SessionState int

const (
	StateOpen SessionState = iota
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Session owns the dependency graph of one workflow. Edges are declared
// while it is open; Close compiles them into a chain exactly once.
type Session struct {
	mu       sync.Mutex
	name     string
	state    SessionState
	graph    *dag.Graph
	target   chain.NotificationTarget
	comment  string
	renderer *chain.Renderer

	declErrs []error
	chain    *chain.Chain
	err      error
}

// Option configures a Session.
type Option func(*Session)

// WithNotification wraps the compiled chain in a notification envelope
// publishing to target. A nil target leaves the chain unwrapped.
func WithNotification(target chain.NotificationTarget) Option {
	return func(s *Session) { s.target = target }
}

// WithComment sets the comment of the rendered state machine definition.
func WithComment(comment string) Option {
	return func(s *Session) { s.comment = comment }
}

// WithRenderer replaces the default chain renderer.
func WithRenderer(r *chain.Renderer) Option {
	return func(s *Session) {
		if r != nil {
			s.renderer = r
		}
	}
}

// New returns an open session.
func New(name string, opts ...Option) *Session {
	s := &Session{
		name:     name,
		state:    StateOpen,
		graph:    dag.New(),
		renderer: chain.NewRenderer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the workflow name.
func (s *Session) Name() string { return s.name }

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Declare records that `from` precedes `to`. Each side may be a task.Task,
// a Group (or []task.Task) and `to` may be End. A Group on both sides is
// rejected. Errors other than a closed session are also reported by Close.
func (s *Session) Declare(from, to any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return &InvalidSessionStateError{Workflow: s.name, State: s.state, Op: "declare edges in"}
	}
	if err := s.declare(from, to); err != nil {
		s.declErrs = append(s.declErrs, err)
		return err
	}
	return nil
}

func (s *Session) declare(from, to any) error {
	left, err := resolve(from)
	if err != nil {
		return err
	}
	right, err := resolve(to)
	if err != nil {
		return err
	}
	switch {
	case left.end:
		return malformedf("end marker cannot precede a task")
	case left.group && right.group:
		return malformedf("group on both sides of an edge is ambiguous")
	}

	if right.end {
		for _, t := range left.tasks {
			if err := s.graph.AddNode(t); err != nil {
				return malformedf("%v", err)
			}
		}
		return nil
	}
	for _, l := range left.tasks {
		for _, r := range right.tasks {
			if err := s.graph.AddEdge(l, r); err != nil {
				return malformedf("%v", err)
			}
		}
	}
	return nil
}

// Close moves the session to CLOSED and compiles the declared graph. A
// failed compilation still closes the session but leaves it without a
// chain. Closing twice is an error.
func (s *Session) Close(ctx context.Context) (*chain.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return nil, &InvalidSessionStateError{Workflow: s.name, State: s.state, Op: "close"}
	}
	s.state = StateClosed
	logger := ctxlog.FromContext(ctx).With("workflow", s.name)

	if len(s.declErrs) > 0 {
		s.err = fmt.Errorf("workflow %q: %w", s.name, errors.Join(s.declErrs...))
		logger.Error("Workflow has malformed declarations.", "error", s.err)
		return nil, s.err
	}

	levels, err := s.graph.Levels()
	if err != nil {
		s.err = fmt.Errorf("workflow %q: %w", s.name, err)
		logger.Error("Failed to compile workflow.", "error", err)
		return nil, s.err
	}
	logger.Debug("Computed levels.", "levels", len(levels), "tasks", s.graph.Len())

	s.chain = s.renderer.Render(ctx, levels, s.target)
	logger.Info("Workflow compiled.", "stages", s.chain.Len(), "notification", s.chain.Wrapped())
	return s.chain, nil
}

// Chain returns the compiled chain of a closed session.
func (s *Session) Chain() (*chain.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateClosed {
		return nil, &InvalidSessionStateError{Workflow: s.name, State: s.state, Op: "read the chain of"}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.chain, nil
}

// Definition renders the compiled chain as a state machine definition.
func (s *Session) Definition() (*asl.Definition, error) {
	c, err := s.Chain()
	if err != nil {
		return nil, err
	}
	def, err := c.Definition(s.comment)
	if err != nil {
		return nil, fmt.Errorf("workflow %q: %w", s.name, err)
	}
	return def, nil
}

// Graph returns the underlying dependency graph.
func (s *Session) Graph() *dag.Graph { return s.graph }
