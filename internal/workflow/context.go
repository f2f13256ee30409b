package workflow

import (
	"context"
	"errors"

	"github.com/vk/datajob/internal/ctxlog"
	"github.com/vk/datajob/internal/task"
)

type sessionKey struct{}

// Open starts a session and returns a context carrying it. Opening inside a
// context whose session is still open fails with NestedWorkflowError.
func Open(ctx context.Context, name string, opts ...Option) (context.Context, *Session, error) {
	if outer, ok := ctx.Value(sessionKey{}).(*Session); ok && outer.State() == StateOpen {
		return ctx, nil, &NestedWorkflowError{Outer: outer.Name(), Inner: name}
	}
	s := New(name, opts...)
	ctxlog.FromContext(ctx).Info("Opened workflow session.", "workflow", name)
	return context.WithValue(ctx, sessionKey{}, s), s, nil
}

// FromContext returns the session carried by ctx.
func FromContext(ctx context.Context) (*Session, error) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	if !ok || s == nil {
		return nil, &NoActiveWorkflowError{}
	}
	return s, nil
}

// Declare records an edge on the session carried by ctx.
func Declare(ctx context.Context, from, to any) error {
	s, err := FromContext(ctx)
	if err != nil {
		return err
	}
	return s.Declare(from, to)
}

// From starts a fluent declaration on the session carried by ctx.
func From(ctx context.Context, ts ...task.Task) *Declaration {
	s, err := FromContext(ctx)
	if err != nil {
		return &Declaration{err: err}
	}
	return s.From(ts...)
}

// Run opens a session, calls fn with a context carrying it and closes the
// session afterwards, even when fn fails or panics. The session is
// returned closed; its chain is available when the error is nil.
func Run(ctx context.Context, name string, fn func(ctx context.Context) error, opts ...Option) (s *Session, err error) {
	sctx, s, err := Open(ctx, name, opts...)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			if s.State() == StateOpen {
				_, _ = s.Close(ctx)
			}
			panic(r)
		}
	}()

	fnErr := fn(sctx)
	if s.State() != StateOpen {
		return s, fnErr
	}
	_, closeErr := s.Close(ctx)
	if fnErr != nil {
		return s, errors.Join(fnErr, closeErr)
	}
	return s, closeErr
}
