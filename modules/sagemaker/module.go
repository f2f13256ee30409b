// Package sagemaker provides the "sagemaker" task kind: a SageMaker
// training job the state machine waits on.
package sagemaker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/datajob/internal/asl"
	"github.com/vk/datajob/internal/registry"
	"github.com/vk/datajob/internal/task"
)

// Resource is the service integration creating a training job.
const Resource = "arn:aws:states:::sagemaker:createTrainingJob.sync"

// Defaults applied to unset arguments.
const (
	DefaultInstanceType  = "ml.m5.large"
	DefaultInstanceCount = 1
	DefaultVolumeSize    = 30
	DefaultMaxRuntime    = 86400
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	TrainingImage   string            `datajob:"training_image"`
	OutputPath      string            `datajob:"output_path"`
	RoleArn         string            `datajob:"role_arn,optional"`
	JobName         string            `datajob:"job_name,optional"`
	InstanceType    string            `datajob:"instance_type,optional"`
	InstanceCount   int               `datajob:"instance_count,optional"`
	VolumeSize      int               `datajob:"volume_size,optional"`
	MaxRuntime      int               `datajob:"max_runtime,optional"`
	Hyperparameters map[string]string `datajob:"hyperparameters,optional"`
	InputData       map[string]string `datajob:"input_data,optional"`
}

// Build creates the training task. Training job names must be unique per
// run, so when job_name is not set the name is read from the execution
// input under the stack-scoped task name.
func Build(ctx context.Context, bc *registry.BuildContext, name string, input *Input) (task.Task, error) {
	if input.TrainingImage == "" {
		return nil, errors.New("training_image is required")
	}

	params := map[string]any{
		"AlgorithmSpecification": map[string]any{
			"TrainingImage":     input.TrainingImage,
			"TrainingInputMode": "File",
		},
		"OutputDataConfig": map[string]any{"S3OutputPath": input.OutputPath},
		"ResourceConfig": map[string]any{
			"InstanceCount":  orDefault(input.InstanceCount, DefaultInstanceCount),
			"InstanceType":   orDefaultString(input.InstanceType, DefaultInstanceType),
			"VolumeSizeInGB": orDefault(input.VolumeSize, DefaultVolumeSize),
		},
		"StoppingCondition": map[string]any{
			"MaxRuntimeInSeconds": orDefault(input.MaxRuntime, DefaultMaxRuntime),
		},
	}
	if input.RoleArn != "" {
		params["RoleArn"] = input.RoleArn
	}
	if len(input.Hyperparameters) > 0 {
		hp := make(map[string]any, len(input.Hyperparameters))
		for k, v := range input.Hyperparameters {
			hp[k] = v
		}
		params["HyperParameters"] = hp
	}
	if len(input.InputData) > 0 {
		params["InputDataConfig"] = inputDataConfig(input.InputData)
	}

	jobName := input.JobName
	if jobName == "" {
		if bc == nil || bc.Inputs == nil {
			return nil, errors.New("job_name is required when no execution input is available")
		}
		var err error
		jobName, err = bc.Inputs.Resolve(ctx, "", bc.UniqueName(name))
		if err != nil {
			return nil, fmt.Errorf("registering execution input: %w", err)
		}
	}
	if strings.HasPrefix(jobName, "$") {
		params["TrainingJobName.$"] = jobName
	} else {
		params["TrainingJobName"] = jobName
	}

	return task.NewJob("sagemaker", name, asl.State{
		Type:       asl.TypeTask,
		Resource:   Resource,
		Parameters: params,
	}), nil
}

func inputDataConfig(channels map[string]string) []any {
	names := make([]string, 0, len(channels))
	for n := range channels {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]any, 0, len(names))
	for _, n := range names {
		out = append(out, map[string]any{
			"ChannelName": n,
			"DataSource": map[string]any{
				"S3DataSource": map[string]any{
					"S3DataType":             "S3Prefix",
					"S3Uri":                  channels[n],
					"S3DataDistributionType": "FullyReplicated",
				},
			},
		})
	}
	return out
}

func orDefault(v, d int) int {
	if v == 0 {
		return d
	}
	return v
}

func orDefaultString(v, d string) string {
	if v == "" {
		return d
	}
	return v
}

// Register registers the task kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTaskKind("sagemaker", &registry.Factory{
		NewInput: func() any { return new(Input) },
		Build: func(ctx context.Context, bc *registry.BuildContext, name string, input any) (task.Task, error) {
			return Build(ctx, bc, name, input.(*Input))
		},
	})
}
