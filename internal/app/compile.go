package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/datajob/internal/asl"
	"github.com/vk/datajob/internal/config"
	"github.com/vk/datajob/internal/ctxlog"
	"github.com/vk/datajob/internal/execinput"
	"github.com/vk/datajob/internal/notify"
	"github.com/vk/datajob/internal/registry"
	"github.com/vk/datajob/internal/task"
	"github.com/vk/datajob/internal/workflow"
)

// Project is a compiled stack.
type Project struct {
	Stack     *config.Stack
	Inputs    *execinput.Schema
	Tasks     map[string]task.Task
	Workflows []*CompiledWorkflow
}

// CompiledWorkflow is one workflow after its session has been closed.
type CompiledWorkflow struct {
	Name       string
	UniqueName string
	RoleArn    string
	Topic      *notify.Topic
	Session    *workflow.Session
	// Definition is nil for a workflow that declares no edges.
	Definition *asl.Definition
}

// Compile loads the stack files, builds every task and compiles every
// workflow.
func (a *App) Compile(ctx context.Context) (p *Project, err error) {
	ctx = a.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)
	start := time.Now()
	defer func() {
		a.metrics.duration.Observe(time.Since(start).Seconds())
		if err != nil {
			a.metrics.compiles.WithLabelValues("failure").Inc()
			return
		}
		a.metrics.compiles.WithLabelValues("success").Inc()
		a.metrics.workflows.Set(float64(len(p.Workflows)))
	}()

	model, conv, err := a.loader.Load(ctx, a.config.Paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded.", "tasks", len(model.Tasks), "workflows", len(model.Workflows))

	p = &Project{
		Stack:  model.Stack,
		Inputs: execinput.NewSchema(),
		Tasks:  make(map[string]task.Task, len(model.Tasks)),
	}
	bc := &registry.BuildContext{Stack: model.Stack, Inputs: p.Inputs}
	for _, t := range model.Tasks {
		built, err := a.registry.Build(ctx, bc, conv, t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.DeclRange, err)
		}
		p.Tasks[t.Name] = built
	}

	referenced := make(map[string]bool)
	var errs []error
	for _, wf := range model.Workflows {
		cw, err := a.compileWorkflow(ctx, model.Stack, p.Tasks, wf)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, name := range task.Names(cw.Session.Graph().Nodes()) {
			referenced[name] = true
		}
		p.Workflows = append(p.Workflows, cw)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	for _, t := range model.Tasks {
		if !referenced[t.Name] {
			logger.Warn("Task is not part of any workflow.", "task", t.Name, "range", t.DeclRange.String())
		}
	}
	logger.Info("Stack compiled.", "stack", model.Stack.UniqueName(""), "workflows", len(p.Workflows), "execution_inputs", p.Inputs.Len())
	return p, nil
}

func (a *App) compileWorkflow(ctx context.Context, stack *config.Stack, tasks map[string]task.Task, wf *config.Workflow) (*CompiledWorkflow, error) {
	logger := ctxlog.FromContext(ctx).With("workflow", wf.Name)
	cw := &CompiledWorkflow{
		Name:       wf.Name,
		UniqueName: stack.UniqueName(wf.Name),
		RoleArn:    wf.RoleArn,
	}

	var opts []workflow.Option
	if wf.Comment != "" {
		opts = append(opts, workflow.WithComment(wf.Comment))
	}
	if len(wf.Notification) > 0 {
		topic, err := notify.NewTopic(cw.UniqueName, stack.Region, stack.Account, wf.Notification...)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: %w", wf.Name, err)
		}
		cw.Topic = topic
		opts = append(opts, workflow.WithNotification(topic))
	}

	s, err := workflow.Run(ctx, wf.Name, func(ctx context.Context) error {
		for _, e := range wf.Edges {
			from, err := operand(tasks, e.From)
			if err != nil {
				return fmt.Errorf("%s: %w", e.DeclRange, err)
			}
			to, err := operand(tasks, e.To)
			if err != nil {
				return fmt.Errorf("%s: %w", e.DeclRange, err)
			}
			// The session keeps declaration errors and reports all of them on close.
			if err := workflow.Declare(ctx, from, to); err != nil {
				logger.Error("Invalid edge.", "range", e.DeclRange.String(), "error", err)
			}
		}
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	cw.Session = s

	def, err := s.Definition()
	switch {
	case errors.Is(err, asl.ErrNoStartState):
		logger.Warn("Workflow declares no tasks, no state machine will be emitted.")
	case err != nil:
		return nil, err
	default:
		cw.Definition = def
	}
	return cw, nil
}

func operand(tasks map[string]task.Task, o config.Operand) (any, error) {
	if o.End {
		return workflow.End, nil
	}
	resolved := make([]task.Task, 0, len(o.Tasks))
	for _, name := range o.Tasks {
		t, ok := tasks[name]
		if !ok {
			return nil, fmt.Errorf("unknown task %q", name)
		}
		resolved = append(resolved, t)
	}
	if o.Group {
		return workflow.Group(resolved), nil
	}
	if len(resolved) != 1 {
		return nil, fmt.Errorf("expected one task, got %d", len(resolved))
	}
	return resolved[0], nil
}
