// Package pass provides the "pass" task kind, a Pass state that does no
// work. It is useful as a join point or placeholder.
package pass

import (
	"context"

	"github.com/vk/datajob/internal/asl"
	"github.com/vk/datajob/internal/registry"
	"github.com/vk/datajob/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Comment    string         `datajob:"comment,optional"`
	Result     map[string]any `datajob:"result,optional"`
	ResultPath string         `datajob:"result_path,optional"`
}

// Register registers the task kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTaskKind("pass", &registry.Factory{
		NewInput: func() any { return new(Input) },
		Build: func(_ context.Context, _ *registry.BuildContext, name string, input any) (task.Task, error) {
			in := input.(*Input)
			return task.NewJob("pass", name, asl.State{
				Type:       asl.TypePass,
				Comment:    in.Comment,
				Result:     in.Result,
				ResultPath: in.ResultPath,
			}), nil
		},
	})
}
