// Package cfn writes the CloudFormation template deploying compiled
// workflows: one state machine per workflow, the SNS topics they notify and
// default roles for workflows without one.
package cfn

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/bytedance/sonic"
	"github.com/vk/datajob/internal/asl"
	"github.com/vk/datajob/internal/notify"
	"gopkg.in/yaml.v3"
)

// Resource types written by the template.
const (
	TypeStateMachine = "AWS::StepFunctions::StateMachine"
	TypeTopic        = "AWS::SNS::Topic"
	TypeRole         = "AWS::IAM::Role"
)

const (
	formatVersion          = "2010-09-09"
	administratorPolicy    = "arn:aws:iam::aws:policy/AdministratorAccess"
	statesServicePrincipal = "states.amazonaws.com"
)

// Template is a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string               `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string               `json:"Description,omitempty" yaml:"Description,omitempty"`
	Resources                map[string]*Resource `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]*Output   `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// Resource is a single template resource.
type Resource struct {
	Type       string         `json:"Type" yaml:"Type"`
	DependsOn  []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	Properties map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
}

// Output is a template output.
type Output struct {
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any    `json:"Value" yaml:"Value"`
}

// New returns an empty template.
func New(description string) *Template {
	return &Template{
		AWSTemplateFormatVersion: formatVersion,
		Description:              description,
		Resources:                make(map[string]*Resource),
	}
}

// LogicalID turns a resource name such as "pipeline-dev-nightly" into a
// CloudFormation logical id ("PipelineDevNightly").
func LogicalID(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// AddResource adds r under id. Logical ids must be unique.
func (t *Template) AddResource(id string, r *Resource) error {
	if id == "" {
		return fmt.Errorf("resource of type %s has an empty logical id", r.Type)
	}
	if _, exists := t.Resources[id]; exists {
		return fmt.Errorf("duplicate logical id %q", id)
	}
	t.Resources[id] = r
	return nil
}

// AddOutput sets an output value.
func (t *Template) AddOutput(key string, value any, description string) {
	if t.Outputs == nil {
		t.Outputs = make(map[string]*Output)
	}
	t.Outputs[key] = &Output{Description: description, Value: value}
}

// AddRole adds a role that the given service principal may assume and
// returns its logical id.
func (t *Template) AddRole(name, servicePrincipal string) (string, error) {
	id := LogicalID(name + "-role")
	err := t.AddResource(id, &Resource{
		Type: TypeRole,
		Properties: map[string]any{
			"RoleName": name + "-role",
			"AssumeRolePolicyDocument": map[string]any{
				"Version": "2012-10-17",
				"Statement": []any{map[string]any{
					"Effect":    "Allow",
					"Principal": map[string]any{"Service": servicePrincipal},
					"Action":    "sts:AssumeRole",
				}},
			},
			"ManagedPolicyArns": []any{administratorPolicy},
		},
	})
	return id, err
}

// AddTopic adds the SNS topic with one e-mail subscription per address and
// returns its logical id.
func (t *Template) AddTopic(topic *notify.Topic) (string, error) {
	subs := make([]any, 0, len(topic.Subscriptions()))
	for _, addr := range topic.Subscriptions() {
		subs = append(subs, map[string]any{"Endpoint": addr, "Protocol": "email"})
	}
	id := LogicalID(topic.Name() + "-topic")
	err := t.AddResource(id, &Resource{
		Type: TypeTopic,
		Properties: map[string]any{
			"TopicName":    topic.Name(),
			"DisplayName":  topic.Name(),
			"Subscription": subs,
		},
	})
	return id, err
}

// StateMachine describes a state machine resource.
type StateMachine struct {
	Name       string
	RoleArn    string
	Definition *asl.Definition
	DependsOn  []string
}

// AddStateMachine adds a state machine and returns its logical id. Without
// a role ARN a default role for the states service is added as well.
func (t *Template) AddStateMachine(sm StateMachine) (string, error) {
	body, err := sm.Definition.JSON()
	if err != nil {
		return "", fmt.Errorf("encoding definition of %s: %w", sm.Name, err)
	}

	var role any = sm.RoleArn
	deps := append([]string(nil), sm.DependsOn...)
	if sm.RoleArn == "" {
		roleID, err := t.AddRole(sm.Name, statesServicePrincipal)
		if err != nil {
			return "", err
		}
		role = map[string]any{"Fn::GetAtt": []any{roleID, "Arn"}}
		deps = append(deps, roleID)
	}

	id := LogicalID(sm.Name)
	err = t.AddResource(id, &Resource{
		Type:      TypeStateMachine,
		DependsOn: deps,
		Properties: map[string]any{
			"StateMachineName": sm.Name,
			"DefinitionString": string(body),
			"RoleArn":          role,
		},
	})
	return id, err
}

// YAML renders the template as YAML.
func (t *Template) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSON renders the template as indented JSON.
func (t *Template) JSON() ([]byte, error) {
	out, err := sonic.ConfigStd.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}
	return out, nil
}

// Parse reads a template from YAML or JSON; JSON is a subset of YAML.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	if t.Resources == nil {
		t.Resources = make(map[string]*Resource)
	}
	return &t, nil
}
