package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/datajob/internal/cfn"
	"github.com/vk/datajob/internal/ctxlog"
	"github.com/vk/datajob/internal/execinput"
)

// Template renders a compiled project as a CloudFormation template.
func (a *App) Template(p *Project) (*cfn.Template, error) {
	tpl := cfn.New(fmt.Sprintf("datajob stack %s", p.Stack.UniqueName("")))
	for _, cw := range p.Workflows {
		if cw.Definition == nil {
			continue
		}
		var deps []string
		if cw.Topic != nil {
			id, err := tpl.AddTopic(cw.Topic)
			if err != nil {
				return nil, fmt.Errorf("workflow %q: %w", cw.Name, err)
			}
			deps = append(deps, id)
		}
		if _, err := tpl.AddStateMachine(cfn.StateMachine{
			Name:       cw.UniqueName,
			RoleArn:    cw.RoleArn,
			Definition: cw.Definition,
			DependsOn:  deps,
		}); err != nil {
			return nil, fmt.Errorf("workflow %q: %w", cw.Name, err)
		}
	}
	if p.Inputs.Len() > 0 {
		keys, err := p.Inputs.JSON()
		if err != nil {
			return nil, err
		}
		tpl.AddOutput(execinput.OutputKey, keys, "Keys expected in the execution input")
	}
	return tpl, nil
}

// Synth compiles the stack and writes its template to the output directory,
// or to the app's writer when none is configured.
func (a *App) Synth(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	p, err := a.Compile(ctx)
	if err != nil {
		return err
	}
	tpl, err := a.Template(p)
	if err != nil {
		return err
	}

	var out []byte
	if a.config.Format == "json" {
		out, err = tpl.JSON()
	} else {
		out, err = tpl.YAML()
	}
	if err != nil {
		return err
	}

	if a.config.OutDir == "" {
		_, err = a.outW.Write(out)
		return err
	}
	if err := os.MkdirAll(a.config.OutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(a.config.OutDir, p.Stack.UniqueName("")+".template."+a.config.Format)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing template: %w", err)
	}
	ctxlog.FromContext(ctx).Info("Template written.", "path", path, "resources", len(tpl.Resources))
	return nil
}
