package integration_tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/datajob/internal/app"
	"github.com/vk/datajob/internal/asl"
	"github.com/vk/datajob/internal/cfn"
	"github.com/vk/datajob/internal/chain"
	"github.com/vk/datajob/internal/execinput"
	"github.com/vk/datajob/internal/testutil"
)

const stackHeader = `
stack "pipeline" {
  stage   = "dev"
  region  = "eu-west-1"
  account = "123456789012"
}
`

const passTasks = `
task "pass" "a" {}
task "pass" "b" {}
task "pass" "c" {}
task "pass" "d" {}
task "pass" "e" {}
`

func TestPipeline_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		edges string
		want  [][]string
	}{
		{
			name: "sequential",
			edges: `
  edge {
    from = task.a
    to   = task.b
  }
  edge {
    from = task.b
    to   = task.c
  }
  edge {
    from = task.c
    to   = end
  }`,
			want: [][]string{{"a"}, {"b"}, {"c"}},
		},
		{
			name: "diamond",
			edges: `
  edge {
    from = task.a
    to   = [task.b, task.c]
  }
  edge {
    from = [task.b, task.c]
    to   = task.d
  }
  edge {
    from = task.d
    to   = end
  }`,
			want: [][]string{{"a"}, {"b", "c"}, {"d"}},
		},
		{
			name: "uneven branches",
			edges: `
  edge {
    from = task.a
    to   = task.b
  }
  edge {
    from = task.b
    to   = task.c
  }
  edge {
    from = task.a
    to   = task.d
  }
  edge {
    from = [task.c, task.d]
    to   = task.e
  }
  edge {
    from = task.e
    to   = end
  }`,
			want: [][]string{{"a"}, {"b", "d"}, {"c"}, {"e"}},
		},
		{
			name: "independent tasks",
			edges: `
  edge {
    from = [task.a, task.b]
    to   = end
  }`,
			want: [][]string{{"a", "b"}},
		},
		{
			name: "single task",
			edges: `
  edge {
    from = task.a
    to   = end
  }`,
			want: [][]string{{"a"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			files := map[string]string{
				"stack.hcl":          stackHeader + passTasks,
				"workflows/main.hcl": "workflow \"main\" {" + tc.edges + "\n}\n",
			}

			// --- Act ---
			result := testutil.RunIntegrationTest(t, files)

			// --- Assert ---
			require.NoError(t, result.Err)
			testutil.AssertStages(t, result, "main", tc.want...)

			def := testutil.Workflow(t, result, "main").Definition
			require.NotNil(t, def)
			require.NoError(t, def.Validate())
		})
	}
}

func TestPipeline_SingleTaskDefinition(t *testing.T) {
	files := map[string]string{
		"stack.hcl": stackHeader + `
task "glue" "extract" {}
workflow "main" {
  edge {
    from = task.extract
    to   = end
  }
}
`,
	}

	result := testutil.RunIntegrationTest(t, files)

	def := testutil.Workflow(t, result, "main").Definition
	require.NotNil(t, def)
	assert.Equal(t, "extract", def.StartAt)
	require.Len(t, def.States, 1)
	state := def.States["extract"]
	assert.True(t, state.End)
	assert.Equal(t, "arn:aws:states:::glue:startJobRun.sync", state.Resource)
	assert.Equal(t, "pipeline-dev-extract", state.Parameters["JobName"])
}

func TestPipeline_NotificationEnvelope(t *testing.T) {
	files := map[string]string{
		"stack.hcl": stackHeader + passTasks + `
workflow "main" {
  notification = ["ops@example.com", "data@example.com"]
  edge {
    from = task.a
    to   = task.b
  }
  edge {
    from = task.b
    to   = end
  }
}
`,
	}

	result := testutil.RunIntegrationTest(t, files)

	def := testutil.Workflow(t, result, "main").Definition
	require.NotNil(t, def)
	assert.Equal(t, chain.NotificationState, def.StartAt)
	require.Len(t, def.States, 3)

	envelope := def.States[chain.NotificationState]
	assert.Equal(t, asl.TypeParallel, envelope.Type)
	assert.Equal(t, chain.SuccessNotificationState, envelope.Next)
	require.Len(t, envelope.Catch, 1)
	assert.Equal(t, []string{asl.ErrorAll}, envelope.Catch[0].ErrorEquals)
	assert.Equal(t, chain.FailureNotificationState, envelope.Catch[0].Next)
	require.Len(t, envelope.Branches, 1)
	assert.Equal(t, "a", envelope.Branches[0].StartAt)

	topic := "arn:aws:sns:eu-west-1:123456789012:pipeline-dev-main"
	assert.Equal(t, topic, def.States[chain.SuccessNotificationState].Parameters["TopicArn"])
	assert.Equal(t, topic, def.States[chain.FailureNotificationState].Parameters["TopicArn"])
}

func TestPipeline_ExecutionInputFromSageMaker(t *testing.T) {
	files := map[string]string{
		"stack.hcl": stackHeader + `
task "sagemaker" "train" {
  arguments {
    training_image = "img"
    output_path    = "s3://bucket/out"
  }
}
task "sagemaker" "tune" {
  arguments {
    training_image = "img"
    output_path    = "s3://bucket/out"
    job_name       = "fixed-name"
  }
}
workflow "main" {
  edge {
    from = task.train
    to   = task.tune
  }
  edge {
    from = task.tune
    to   = end
  }
}
`,
	}

	var synthesized *cfn.Template
	result := testutil.RunIntegrationTestWithContext(context.Background(), t, files, app.Config{}, func(ctx context.Context, a *app.App) error {
		p, err := a.Compile(ctx)
		if err != nil {
			return err
		}
		synthesized, err = a.Template(p)
		return err
	})
	require.NoError(t, result.Err)

	assert.Equal(t, []string{"pipeline-dev-train"}, result.Project.Inputs.Keys())

	def := testutil.Workflow(t, result, "main").Definition
	assert.Equal(t, execinput.Placeholder("pipeline-dev-train"), def.States["train"].Parameters["TrainingJobName.$"])
	assert.Equal(t, "fixed-name", def.States["tune"].Parameters["TrainingJobName"])

	require.NotNil(t, synthesized)
	keys, err := execinput.ParseKeys(synthesized.Outputs[execinput.OutputKey].Value.(string))
	require.NoError(t, err)
	assert.Equal(t, []string{"pipeline-dev-train"}, keys)
}

func TestPipeline_GlobPathsAndEnv(t *testing.T) {
	files := map[string]string{
		"stacks/stack.hcl": `stack "pipeline" {}` + passTasks,
		"stacks/flows/nightly.hcl": `
workflow "nightly" {
  comment = "run by ${env.OWNER}"
  edge {
    from = task.a
    to   = end
  }
}
`,
		"stacks/flows/notes.txt": "not a stack file",
	}
	root := testutil.WriteFiles(t, files)

	result := testutil.RunIntegrationTestWithContext(context.Background(), t, nil, app.Config{
		Paths: []string{root + "/stacks/**/*.hcl"},
		Stage: "prod",
		Env:   map[string]string{"OWNER": "data-team"},
	}, nil)

	require.NoError(t, result.Err)
	cw := testutil.Workflow(t, result, "nightly")
	assert.Equal(t, "pipeline-prod-nightly", cw.UniqueName)
	assert.Equal(t, "run by data-team", cw.Definition.Comment)
	testutil.AssertLogged(t, result, "task=b", "Task is not part of any workflow.")
}
