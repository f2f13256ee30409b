// Package lambda provides the "lambda" task kind: a synchronous Lambda
// function invocation.
package lambda

import (
	"context"

	"github.com/vk/datajob/internal/asl"
	"github.com/vk/datajob/internal/registry"
	"github.com/vk/datajob/internal/task"
)

// Resource is the service integration invoking a Lambda function.
const Resource = "arn:aws:states:::lambda:invoke"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	FunctionName string         `datajob:"function_name,optional"`
	Payload      map[string]any `datajob:"payload,optional"`
	Qualifier    string         `datajob:"qualifier,optional"`
}

// Build creates the Lambda task.
func Build(_ context.Context, bc *registry.BuildContext, name string, input *Input) (task.Task, error) {
	fn := input.FunctionName
	if fn == "" {
		fn = bc.UniqueName(name)
	}
	params := map[string]any{"FunctionName": fn}
	if input.Qualifier != "" {
		params["Qualifier"] = input.Qualifier
	}
	if input.Payload != nil {
		params["Payload"] = input.Payload
	}
	return task.NewJob("lambda", name, asl.State{
		Type:       asl.TypeTask,
		Resource:   Resource,
		Parameters: params,
	}), nil
}

// Register registers the task kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTaskKind("lambda", &registry.Factory{
		NewInput: func() any { return new(Input) },
		Build: func(ctx context.Context, bc *registry.BuildContext, name string, input any) (task.Task, error) {
			return Build(ctx, bc, name, input.(*Input))
		},
	})
}
