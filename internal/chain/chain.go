// Package chain renders sorted task levels into an ordered chain of stages
// and converts that chain into a state machine definition.
package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vk/datajob/internal/asl"
	"github.com/vk/datajob/internal/ctxlog"
	"github.com/vk/datajob/internal/task"
)

// State names and messages of the notification envelope.
const (
	NotificationState        = "notification"
	SuccessNotificationState = "SuccessNotification"
	FailureNotificationState = "FailureNotification"

	SuccessMessage = "the execution of the workflow succeeded"
	FailureMessage = "the execution of the workflow failed"

	// SNSPublishResource is the service integration used by the envelope.
	SNSPublishResource = "arn:aws:states:::sns:publish"
)

// NotificationTarget is where the envelope publishes its messages.
type NotificationTarget interface {
	TopicReference() string
}

// Chain is an ordered list of stages, optionally wrapped by a notification
// envelope. A Chain is immutable once rendered.
type Chain struct {
	stages []Stage
	target NotificationTarget
}

// Stages returns a copy of the stages in execution order.
func (c *Chain) Stages() []Stage {
	if c == nil {
		return nil
	}
	return append([]Stage(nil), c.stages...)
}

// Len returns the number of stages.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stages)
}

// Wrapped reports whether the chain carries a notification envelope.
func (c *Chain) Wrapped() bool { return c != nil && c.target != nil }

// Target returns the notification target, or nil.
func (c *Chain) Target() NotificationTarget {
	if c == nil {
		return nil
	}
	return c.target
}

func (c *Chain) String() string {
	if c == nil {
		return ""
	}
	parts := make([]string, len(c.stages))
	for i, s := range c.stages {
		parts[i] = s.String()
	}
	out := strings.Join(parts, " >> ")
	if c.target != nil {
		out = fmt.Sprintf("notify(%s)", out)
	}
	return out
}

// Renderer turns levels into chains.
type Renderer struct {
	namer func() string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithStateNamer sets the function naming parallel stages.
func WithStateNamer(fn func() string) Option {
	return func(r *Renderer) {
		if fn != nil {
			r.namer = fn
		}
	}
}

// NewRenderer returns a Renderer. Parallel stages get random hex names by
// default.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		namer: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render maps each level onto a stage. A level with one task becomes a
// single stage, larger levels become parallel stages with one branch per
// task. If target is non-nil the chain is wrapped by the notification
// envelope.
func (r *Renderer) Render(ctx context.Context, levels [][]task.Task, target NotificationTarget) *Chain {
	logger := ctxlog.FromContext(ctx)

	c := &Chain{stages: make([]Stage, 0, len(levels))}
	for i, level := range levels {
		switch len(level) {
		case 0:
			continue
		case 1:
			c.stages = append(c.stages, Stage{kind: StageSingle, tasks: []task.Task{level[0]}})
		default:
			c.stages = append(c.stages, Stage{
				kind:  StageParallel,
				id:    r.namer(),
				tasks: append([]task.Task(nil), level...),
			})
		}
		logger.Debug("Rendered stage.", "index", i, "stage", c.stages[len(c.stages)-1].String())
	}

	if target != nil {
		c.target = target
		logger.Debug("Applied notification envelope.", "topic", target.TopicReference())
	}
	return c
}

// Definition converts the chain into a state machine definition. Stages are
// linked with Next; the last one ends the machine.
func (c *Chain) Definition(comment string) (*asl.Definition, error) {
	if c.Len() == 0 {
		return nil, asl.ErrNoStartState
	}

	startAt, states, err := c.link()
	if err != nil {
		return nil, err
	}
	def := &asl.Definition{Comment: comment, StartAt: startAt, States: states}

	if c.target != nil {
		def = c.wrap(def)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("rendered definition is invalid: %w", err)
	}
	return def, nil
}

func (c *Chain) link() (string, map[string]*asl.State, error) {
	states := make(map[string]*asl.State, len(c.stages))
	names := make([]string, len(c.stages))

	for i, s := range c.stages {
		name := s.ID()
		if _, dup := states[name]; dup {
			return "", nil, fmt.Errorf("duplicate state name %q", name)
		}
		names[i] = name

		switch s.kind {
		case StageSingle:
			states[name] = s.tasks[0].Step()
		case StageParallel:
			st := &asl.State{Type: asl.TypeParallel}
			for _, t := range s.tasks {
				step := t.Step()
				step.Next = ""
				step.End = true
				st.Branches = append(st.Branches, asl.Branch{
					StartAt: t.Name(),
					States:  map[string]*asl.State{t.Name(): step},
				})
			}
			states[name] = st
		}
	}

	for i, name := range names {
		st := states[name]
		if i+1 < len(names) {
			st.Next = names[i+1]
			st.End = false
		} else {
			st.Next = ""
			st.End = true
		}
	}
	return names[0], states, nil
}

func (c *Chain) wrap(inner *asl.Definition) *asl.Definition {
	topic := c.target.TopicReference()
	publish := func(message string) *asl.State {
		return &asl.State{
			Type:     asl.TypeTask,
			Resource: SNSPublishResource,
			Parameters: map[string]any{
				"TopicArn": topic,
				"Message":  message,
			},
			End: true,
		}
	}

	return &asl.Definition{
		Comment: inner.Comment,
		StartAt: NotificationState,
		States: map[string]*asl.State{
			NotificationState: {
				Type:     asl.TypeParallel,
				Branches: []asl.Branch{{StartAt: inner.StartAt, States: inner.States}},
				Catch: []asl.Catcher{{
					ErrorEquals: []string{asl.ErrorAll},
					Next:        FailureNotificationState,
				}},
				Next: SuccessNotificationState,
			},
			SuccessNotificationState: publish(SuccessMessage),
			FailureNotificationState: publish(FailureMessage),
		},
	}
}
