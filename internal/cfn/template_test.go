package cfn

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/datajob/internal/asl"
	"github.com/vk/datajob/internal/notify"
)

func simpleDefinition() *asl.Definition {
	return &asl.Definition{
		StartAt: "a",
		States: map[string]*asl.State{
			"a": {Type: asl.TypePass, End: true},
		},
	}
}

func TestLogicalID(t *testing.T) {
	tests := map[string]string{
		"pipeline-dev-nightly": "PipelineDevNightly",
		"my_stack.v2":          "MyStackV2",
		"already":              "Already",
		"ünïcode-name":         "NCodeName",
		"":                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, LogicalID(in), in)
	}
}

func TestAddStateMachine_WithRole(t *testing.T) {
	tpl := New("datajob stack")
	id, err := tpl.AddStateMachine(StateMachine{
		Name:       "pipeline-dev-nightly",
		RoleArn:    "arn:aws:iam::123456789012:role/sfn",
		Definition: simpleDefinition(),
	})
	require.NoError(t, err)
	assert.Equal(t, "PipelineDevNightly", id)
	require.Len(t, tpl.Resources, 1)

	res := tpl.Resources[id]
	assert.Equal(t, TypeStateMachine, res.Type)
	assert.Equal(t, "pipeline-dev-nightly", res.Properties["StateMachineName"])
	assert.Equal(t, "arn:aws:iam::123456789012:role/sfn", res.Properties["RoleArn"])

	var def asl.Definition
	require.NoError(t, sonic.ConfigStd.UnmarshalFromString(res.Properties["DefinitionString"].(string), &def))
	assert.Equal(t, "a", def.StartAt)
}

func TestAddStateMachine_DefaultRole(t *testing.T) {
	tpl := New("")
	id, err := tpl.AddStateMachine(StateMachine{Name: "wf", Definition: simpleDefinition(), DependsOn: []string{"Topic"}})
	require.NoError(t, err)

	role := tpl.Resources["WfRole"]
	require.NotNil(t, role)
	assert.Equal(t, TypeRole, role.Type)
	assert.Equal(t, "wf-role", role.Properties["RoleName"])

	sm := tpl.Resources[id]
	assert.Equal(t, []string{"Topic", "WfRole"}, sm.DependsOn)
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"WfRole", "Arn"}}, sm.Properties["RoleArn"])
}

func TestAddResource_Duplicate(t *testing.T) {
	tpl := New("")
	_, err := tpl.AddStateMachine(StateMachine{Name: "wf", RoleArn: "r", Definition: simpleDefinition()})
	require.NoError(t, err)
	_, err = tpl.AddStateMachine(StateMachine{Name: "wf", RoleArn: "r", Definition: simpleDefinition()})
	assert.ErrorContains(t, err, `duplicate logical id "Wf"`)

	assert.ErrorContains(t, tpl.AddResource("", &Resource{Type: TypeTopic}), "empty logical id")
}

func TestAddTopic(t *testing.T) {
	topic, err := notify.NewTopic("pipeline-dev-nightly", "eu-west-1", "123456789012", "a@example.com", "b@example.com")
	require.NoError(t, err)

	tpl := New("")
	id, err := tpl.AddTopic(topic)
	require.NoError(t, err)
	assert.Equal(t, "PipelineDevNightlyTopic", id)

	res := tpl.Resources[id]
	assert.Equal(t, TypeTopic, res.Type)
	assert.Equal(t, []any{
		map[string]any{"Endpoint": "a@example.com", "Protocol": "email"},
		map[string]any{"Endpoint": "b@example.com", "Protocol": "email"},
	}, res.Properties["Subscription"])
}

func TestRenderAndParse(t *testing.T) {
	tpl := New("datajob stack")
	_, err := tpl.AddStateMachine(StateMachine{Name: "wf", RoleArn: "arn:role", Definition: simpleDefinition()})
	require.NoError(t, err)
	tpl.AddOutput("DatajobExecutionInput", `["a","b"]`, "execution input keys")

	t.Run("yaml", func(t *testing.T) {
		out, err := tpl.YAML()
		require.NoError(t, err)
		assert.Contains(t, string(out), "AWSTemplateFormatVersion:")
		assert.Contains(t, string(out), "2010-09-09")
		assert.Contains(t, string(out), "Type: AWS::StepFunctions::StateMachine")

		parsed, err := Parse(out)
		require.NoError(t, err)
		assert.Equal(t, `["a","b"]`, parsed.Outputs["DatajobExecutionInput"].Value)
		assert.Equal(t, TypeStateMachine, parsed.Resources["Wf"].Type)
	})

	t.Run("json", func(t *testing.T) {
		out, err := tpl.JSON()
		require.NoError(t, err)

		parsed, err := Parse(out)
		require.NoError(t, err)
		assert.Equal(t, "datajob stack", parsed.Description)
		assert.Equal(t, "arn:role", parsed.Resources["Wf"].Properties["RoleArn"])
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Parse([]byte("Resources: [unterminated"))
		assert.ErrorContains(t, err, "parsing template")
	})
}
