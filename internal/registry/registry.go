package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/datajob/internal/config"
	"github.com/vk/datajob/internal/ctxlog"
	"github.com/vk/datajob/internal/execinput"
	"github.com/vk/datajob/internal/task"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// BuildContext carries the stack-wide state task factories may need.
type BuildContext struct {
	Stack  *config.Stack
	Inputs *execinput.Schema
}

// UniqueName returns the stack-scoped name of a resource.
func (bc *BuildContext) UniqueName(name string) string {
	if bc == nil || bc.Stack == nil {
		return name
	}
	return bc.Stack.UniqueName(name)
}

// Factory holds the compiled Go parts of a task kind.
type Factory struct {
	// NewInput returns a pointer to the kind's argument struct.
	NewInput func() any
	// Build turns decoded arguments into a task.
	Build func(ctx context.Context, bc *BuildContext, name string, input any) (task.Task, error)
}

// Registry holds the task kinds of a single application instance.
type Registry struct {
	factories map[string]*Factory
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{factories: make(map[string]*Factory)}
}

// RegisterTaskKind registers the factory for a task kind. Registering a kind
// twice is a programming error and panics.
func (r *Registry) RegisterTaskKind(kind string, f *Factory) {
	if _, exists := r.factories[kind]; exists {
		panic(fmt.Sprintf("task kind '%s' already registered", kind))
	}
	if f == nil || f.NewInput == nil || f.Build == nil {
		panic(fmt.Sprintf("task kind '%s' registered with an incomplete factory", kind))
	}
	slog.Debug("Registering task kind.", "kind", kind)
	r.factories[kind] = f
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build decodes the task's arguments with conv and builds it with the
// factory registered for its kind.
func (r *Registry) Build(ctx context.Context, bc *BuildContext, conv config.Converter, t *config.Task) (task.Task, error) {
	logger := ctxlog.FromContext(ctx).With("task", t.Name, "kind", t.Kind)

	f, ok := r.factories[t.Kind]
	if !ok {
		return nil, fmt.Errorf("task %q: unknown kind %q (known: %v)", t.Name, t.Kind, r.Kinds())
	}

	input := f.NewInput()
	if err := conv.DecodeBody(ctx, input, t.Arguments); err != nil {
		return nil, fmt.Errorf("task %q: %w", t.Name, err)
	}
	built, err := f.Build(ctx, bc, t.Name, input)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", t.Name, err)
	}
	logger.Debug("Built task.")
	return built, nil
}
