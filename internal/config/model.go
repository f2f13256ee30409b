package config

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// Model is the format-agnostic representation of a stack file: the stack
// settings, its tasks and the workflows ordering them.
type Model struct {
	Stack     *Stack
	Tasks     []*Task
	Workflows []*Workflow
}

// Task returns the task with the given name, or nil.
func (m *Model) Task(name string) *Task {
	for _, t := range m.Tasks {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Stack holds the deployment settings shared by every resource.
type Stack struct {
	Name    string
	Stage   string
	Region  string
	Account string
}

// UniqueName prefixes name with the stack name and, when set, the stage.
func (s *Stack) UniqueName(name string) string {
	parts := []string{s.Name}
	if s.Stage != "" {
		parts = append(parts, s.Stage)
	}
	if name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, "-")
}

// Task is a `task` block: a named instance of a task kind.
type Task struct {
	Kind      string
	Name      string
	Arguments map[string]hcl.Expression
	DeclRange hcl.Range
}

// Workflow is a `workflow` block.
type Workflow struct {
	Name         string
	Comment      string
	RoleArn      string
	Notification []string
	Edges        []*Edge
	DeclRange    hcl.Range
}

// Edge is one `edge` block: From precedes To.
type Edge struct {
	From      Operand
	To        Operand
	DeclRange hcl.Range
}

// Operand is one side of an edge. Tasks holds task names; Group is set when
// the side was written as a list. End marks the end-of-chain keyword.
type Operand struct {
	Tasks []string
	Group bool
	End   bool
}
