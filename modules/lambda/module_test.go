package lambda

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/datajob/internal/config"
	"github.com/vk/datajob/internal/registry"
)

func TestBuild(t *testing.T) {
	bc := &registry.BuildContext{Stack: &config.Stack{Name: "pipeline"}}

	tk, err := Build(context.Background(), bc, "notify", &Input{})
	require.NoError(t, err)
	assert.Equal(t, Resource, tk.Step().Resource)
	assert.Equal(t, map[string]any{"FunctionName": "pipeline-notify"}, tk.Step().Parameters)

	tk, err = Build(context.Background(), bc, "notify", &Input{
		FunctionName: "fn",
		Qualifier:    "live",
		Payload:      map[string]any{"day": "today"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"FunctionName": "fn",
		"Qualifier":    "live",
		"Payload":      map[string]any{"day": "today"},
	}, tk.Step().Parameters)
}
