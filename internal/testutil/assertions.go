package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/datajob/internal/app"
	"github.com/vk/datajob/internal/task"
)

// Workflow returns the compiled workflow called name.
func Workflow(t *testing.T, result *HarnessResult, name string) *app.CompiledWorkflow {
	t.Helper()
	require.NoError(t, result.Err)
	require.NotNil(t, result.Project)
	for _, cw := range result.Project.Workflows {
		if cw.Name == name {
			return cw
		}
	}
	require.Failf(t, "workflow not found", "no compiled workflow %q", name)
	return nil
}

// AssertStages checks the task names of every stage of a workflow, in order.
// Names within a parallel stage are compared in declaration order.
func AssertStages(t *testing.T, result *HarnessResult, workflow string, want ...[]string) {
	t.Helper()
	c, err := Workflow(t, result, workflow).Session.Chain()
	require.NoError(t, err)

	got := make([][]string, 0, c.Len())
	for _, st := range c.Stages() {
		got = append(got, task.Names(st.Tasks()))
	}
	if len(want) == 0 {
		want = [][]string{}
	}
	assert.Equal(t, want, got, "stages of workflow %q", workflow)
}

// AssertLogged checks that the log output contains every substring.
func AssertLogged(t *testing.T, result *HarnessResult, substrings ...string) {
	t.Helper()
	for _, s := range substrings {
		assert.True(t, strings.Contains(result.LogOutput, s), "expected log output to contain %q", s)
	}
}
