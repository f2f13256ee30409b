package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/vk/datajob/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// baseEvalContext is used while decoding the top-level blocks. It only
// exposes the `env` object.
func (l *Loader) baseEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": l.envValue()},
	}
}

// evalContext is used for task arguments and workflow settings. On top of
// `env` it exposes the resolved `stack` settings.
func (l *Loader) evalContext(s *config.Stack) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": l.envValue(),
			"stack": cty.ObjectVal(map[string]cty.Value{
				"name":        cty.StringVal(s.Name),
				"stage":       cty.StringVal(s.Stage),
				"region":      cty.StringVal(s.Region),
				"account":     cty.StringVal(s.Account),
				"unique_name": cty.StringVal(s.UniqueName("")),
			}),
		},
	}
}

func (l *Loader) envValue() cty.Value {
	if len(l.env) == 0 {
		return cty.EmptyObjectVal
	}
	vals := make(map[string]cty.Value, len(l.env))
	for k, v := range l.env {
		vals[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(vals)
}
