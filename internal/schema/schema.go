// Package schema holds the gohcl decoding structs of the stack file format.
package schema

import "github.com/hashicorp/hcl/v2"

// File is the set of top-level blocks any stack file may contain.
type File struct {
	Stacks    []*Stack    `hcl:"stack,block"`
	Tasks     []*Task     `hcl:"task,block"`
	Workflows []*Workflow `hcl:"workflow,block"`
	Body      hcl.Body    `hcl:",remain"`
}

// Stack represents the `stack` block. Exactly one is allowed across all
// loaded files.
type Stack struct {
	Name    string `hcl:"name,label"`
	Stage   string `hcl:"stage,optional"`
	Region  string `hcl:"region,optional"`
	Account string `hcl:"account,optional"`
}

// Arguments represents the content of the 'arguments' block within a task.
type Arguments struct {
	Body hcl.Body `hcl:",remain"`
}

// Task represents a `task` block: an instance of a registered task kind.
type Task struct {
	Kind      string     `hcl:"kind,label"`
	Name      string     `hcl:"name,label"`
	Arguments *Arguments `hcl:"arguments,block"`
}

// Workflow represents a `workflow` block.
type Workflow struct {
	Name    string `hcl:"name,label"`
	Comment string `hcl:"comment,optional"`
	RoleArn string `hcl:"role_arn,optional"`
	// Notification is a single address or a list of addresses.
	Notification hcl.Expression `hcl:"notification,optional"`
	Edges        []*Edge        `hcl:"edge,block"`
}

// Edge represents an `edge` block. Both sides are traversals such as
// `task.extract`, a list of them, or the `end` keyword.
type Edge struct {
	From hcl.Expression `hcl:"from"`
	To   hcl.Expression `hcl:"to"`
}
