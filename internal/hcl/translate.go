// This file contains the logic for translating the HCL schema structs into
// the format-agnostic configuration model defined in the config package.

package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/datajob/internal/config"
	"github.com/vk/datajob/internal/notify"
	"github.com/vk/datajob/internal/schema"
)

// translateStack converts the stack block, filling unset settings from the
// loader defaults.
func (l *Loader) translateStack(s *schema.Stack) *config.Stack {
	st := &config.Stack{Name: s.Name, Stage: s.Stage, Region: s.Region, Account: s.Account}
	if st.Stage == "" {
		st.Stage = l.defaults.Stage
	}
	if st.Region == "" {
		st.Region = l.defaults.Region
	}
	if st.Account == "" {
		st.Account = l.defaults.Account
	}
	return st
}

// translateTask converts the HCL-specific task schema into the agnostic model.
func (l *Loader) translateTask(t *schema.Task) *config.Task {
	var args map[string]hcl.Expression
	if t.Arguments != nil {
		args = l.extractBodyAttributes(t.Arguments.Body)
	}
	return &config.Task{
		Kind:      t.Kind,
		Name:      t.Name,
		Arguments: args,
	}
}

// translateWorkflow converts a workflow block. Edge operands must name
// tasks from known.
func (l *Loader) translateWorkflow(w *schema.Workflow, evalCtx *hcl.EvalContext, known map[string]struct{}) (*config.Workflow, error) {
	wf := &config.Workflow{
		Name:    w.Name,
		Comment: w.Comment,
		RoleArn: w.RoleArn,
	}

	if w.Notification != nil {
		val, diags := w.Notification.Value(evalCtx)
		if err := diagError(diags); err != nil {
			return nil, fmt.Errorf("workflow %q: notification: %w", w.Name, err)
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: notification: %w", w.Name, err)
		}
		addrs, err := notify.Addresses(native)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: %w", w.Name, err)
		}
		wf.Notification = addrs
	}

	for _, e := range w.Edges {
		from, err := translateOperand(e.From, known)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: from: %w", w.Name, err)
		}
		to, err := translateOperand(e.To, known)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: to: %w", w.Name, err)
		}
		wf.Edges = append(wf.Edges, &config.Edge{From: from, To: to, DeclRange: e.From.Range()})
	}
	return wf, nil
}

// translateOperand reads `task.<name>`, `end` or a list of task traversals.
func translateOperand(expr hcl.Expression, known map[string]struct{}) (config.Operand, error) {
	if exprs, diags := hcl.ExprList(expr); !diags.HasErrors() {
		op := config.Operand{Group: true}
		for _, e := range exprs {
			name, end, err := traversalOperand(e, known)
			if err != nil {
				return config.Operand{}, err
			}
			if end {
				return config.Operand{}, fmt.Errorf("%s: end cannot be part of a list", e.Range())
			}
			op.Tasks = append(op.Tasks, name)
		}
		return op, nil
	}

	name, end, err := traversalOperand(expr, known)
	if err != nil {
		return config.Operand{}, err
	}
	if end {
		return config.Operand{End: true}, nil
	}
	return config.Operand{Tasks: []string{name}}, nil
}

func traversalOperand(expr hcl.Expression, known map[string]struct{}) (string, bool, error) {
	invalid := fmt.Errorf("%s: edge operand must be task.<name>, a list of them, or end", expr.Range())

	trav, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return "", false, invalid
	}
	switch trav.RootName() {
	case "end":
		if len(trav) != 1 {
			return "", false, invalid
		}
		return "", true, nil
	case "task":
		if len(trav) != 2 {
			return "", false, invalid
		}
		attr, ok := trav[1].(hcl.TraverseAttr)
		if !ok {
			return "", false, invalid
		}
		if _, ok := known[attr.Name]; !ok {
			return "", false, fmt.Errorf("%s: unknown task %q", expr.Range(), attr.Name)
		}
		return attr.Name, false, nil
	default:
		return "", false, invalid
	}
}

func (l *Loader) extractBodyAttributes(body hcl.Body) map[string]hcl.Expression {
	if body == nil {
		return nil
	}
	attrs, _ := body.JustAttributes()
	if attrs == nil {
		return nil
	}
	exprMap := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		exprMap[name] = attr.Expr
	}
	return exprMap
}
