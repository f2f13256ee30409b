package app

import (
	"context"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/vk/datajob/internal/cfn"
	"github.com/vk/datajob/internal/ctxlog"
	"github.com/vk/datajob/internal/execinput"
)

// ExecutionInput writes an execution input document with a unique name per
// key. Keys come from the synthesized template at templatePath, or from
// compiling the stack when templatePath is empty.
func (a *App) ExecutionInput(ctx context.Context, templatePath string) error {
	ctx = a.withLogger(ctx)
	keys, err := a.inputKeys(ctx, templatePath)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		ctxlog.FromContext(ctx).Warn("Stack expects no execution input.")
	}

	doc := execinput.Generate(keys, a.now())
	out, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding execution input: %w", err)
	}
	_, err = fmt.Fprintln(a.outW, string(out))
	return err
}

func (a *App) inputKeys(ctx context.Context, templatePath string) ([]string, error) {
	if templatePath == "" {
		p, err := a.Compile(ctx)
		if err != nil {
			return nil, err
		}
		return p.Inputs.Keys(), nil
	}

	data, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	tpl, err := cfn.Parse(data)
	if err != nil {
		return nil, err
	}
	out, ok := tpl.Outputs[execinput.OutputKey]
	if !ok {
		return nil, nil
	}
	value, ok := out.Value.(string)
	if !ok {
		return nil, fmt.Errorf("output %s must be a string, got %T", execinput.OutputKey, out.Value)
	}
	return execinput.ParseKeys(value)
}
