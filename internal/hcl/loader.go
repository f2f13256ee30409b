package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/datajob/internal/config"
	"github.com/vk/datajob/internal/ctxlog"
	"github.com/vk/datajob/internal/fsutil"
	"github.com/vk/datajob/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	defaults config.Stack
	env      map[string]string
}

// Option configures a Loader.
type Option func(*Loader)

// WithStackDefaults fills empty stack settings (stage, region, account)
// from d.
func WithStackDefaults(d config.Stack) Option {
	return func(l *Loader) { l.defaults = d }
}

// WithEnv exposes vars to stack files as the `env` object.
func WithEnv(vars map[string]string) Option {
	return func(l *Loader) { l.env = vars }
}

// NewLoader creates a new HCL configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load parses every stack file found under paths (files, directories or
// doublestar patterns) and merges them into a single model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.Expand(paths, ".hcl")
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no .hcl files found in %v", paths)
	}

	parser := hclparse.NewParser()
	baseCtx := l.baseEvalContext()

	var stacks []*schema.Stack
	var tasks []*schema.Task
	var workflows []*schema.Workflow
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root schema.File
		if diags := gohcl.DecodeBody(hclFile.Body, baseCtx, &root); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		stacks = append(stacks, root.Stacks...)
		tasks = append(tasks, root.Tasks...)
		workflows = append(workflows, root.Workflows...)
	}

	if len(stacks) != 1 {
		return nil, nil, fmt.Errorf("expected exactly one stack block, found %d", len(stacks))
	}
	model := &config.Model{Stack: l.translateStack(stacks[0])}
	evalCtx := l.evalContext(model.Stack)

	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if _, dup := seen[t.Name]; dup {
			return nil, nil, fmt.Errorf("duplicate task %q", t.Name)
		}
		seen[t.Name] = struct{}{}
		model.Tasks = append(model.Tasks, l.translateTask(t))
	}

	wfSeen := make(map[string]struct{}, len(workflows))
	for _, w := range workflows {
		if _, dup := wfSeen[w.Name]; dup {
			return nil, nil, fmt.Errorf("duplicate workflow %q", w.Name)
		}
		wfSeen[w.Name] = struct{}{}

		wf, err := l.translateWorkflow(w, evalCtx, seen)
		if err != nil {
			return nil, nil, err
		}
		model.Workflows = append(model.Workflows, wf)
	}

	logger.Debug("HCL loading complete.",
		"stack", model.Stack.Name,
		"tasks", len(model.Tasks),
		"workflows", len(model.Workflows),
	)
	return model, NewConverter(evalCtx), nil
}

func diagError(diags hcl.Diagnostics) error {
	if diags.HasErrors() {
		return diags
	}
	return nil
}
