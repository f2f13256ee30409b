// Package glue provides the "glue" task kind: a Glue job run that the state
// machine waits on.
package glue

import (
	"context"

	"github.com/vk/datajob/internal/asl"
	"github.com/vk/datajob/internal/ctxlog"
	"github.com/vk/datajob/internal/registry"
	"github.com/vk/datajob/internal/task"
)

// Resource is the service integration starting a Glue job run.
const Resource = "arn:aws:states:::glue:startJobRun.sync"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	// JobName defaults to the stack-scoped name of the task.
	JobName   string            `datajob:"job_name,optional"`
	Arguments map[string]string `datajob:"arguments,optional"`
	Timeout   int               `datajob:"timeout,optional"`
}

// Build creates the Glue task.
func Build(ctx context.Context, bc *registry.BuildContext, name string, input *Input) (task.Task, error) {
	jobName := input.JobName
	if jobName == "" {
		jobName = bc.UniqueName(name)
	}
	ctxlog.FromContext(ctx).Debug("Creating a step for a glue job.", "job_name", jobName)

	params := map[string]any{"JobName": jobName}
	if len(input.Arguments) > 0 {
		args := make(map[string]any, len(input.Arguments))
		for k, v := range input.Arguments {
			args[k] = v
		}
		params["Arguments"] = args
	}
	if input.Timeout > 0 {
		params["Timeout"] = input.Timeout
	}

	return task.NewJob("glue", name, asl.State{
		Type:       asl.TypeTask,
		Resource:   Resource,
		Parameters: params,
	}), nil
}

// Register registers the task kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTaskKind("glue", &registry.Factory{
		NewInput: func() any { return new(Input) },
		Build: func(ctx context.Context, bc *registry.BuildContext, name string, input any) (task.Task, error) {
			return Build(ctx, bc, name, input.(*Input))
		},
	})
}
