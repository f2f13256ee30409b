package glue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/datajob/internal/asl"
	"github.com/vk/datajob/internal/config"
	"github.com/vk/datajob/internal/ctxlog"
	"github.com/vk/datajob/internal/registry"
)

func TestBuild(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	bc := &registry.BuildContext{Stack: &config.Stack{Name: "pipeline", Stage: "dev"}}

	t.Run("default job name", func(t *testing.T) {
		tk, err := Build(ctx, bc, "extract", &Input{})
		require.NoError(t, err)
		assert.Equal(t, "extract", tk.Name())

		step := tk.Step()
		assert.Equal(t, asl.TypeTask, step.Type)
		assert.Equal(t, Resource, step.Resource)
		assert.Equal(t, map[string]any{"JobName": "pipeline-dev-extract"}, step.Parameters)
	})

	t.Run("explicit settings", func(t *testing.T) {
		tk, err := Build(ctx, bc, "extract", &Input{
			JobName:   "existing-job",
			Arguments: map[string]string{"--day": "2021-04-12"},
			Timeout:   30,
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"JobName":   "existing-job",
			"Arguments": map[string]any{"--day": "2021-04-12"},
			"Timeout":   30,
		}, tk.Step().Parameters)
	})
}

func TestRegister(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)
	assert.Equal(t, []string{"glue"}, r.Kinds())
	assert.NoError(t, r.ValidateRegistry(ctxlog.Discard(context.Background())))
}
