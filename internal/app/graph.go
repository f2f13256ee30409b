package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/datajob/internal/dag"
	"github.com/vk/datajob/internal/task"
)

// Graph compiles the stack and prints the stages of every workflow.
func (a *App) Graph(ctx context.Context) error {
	p, err := a.Compile(ctx)
	if err != nil {
		return err
	}
	for _, cw := range p.Workflows {
		c, err := cw.Session.Chain()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.outW, "workflow %s (%s)\n", cw.Name, cw.UniqueName)
		if c.Len() == 0 {
			fmt.Fprintln(a.outW, "  (empty)")
			continue
		}
		fmt.Fprintf(a.outW, "  %s\n", c)
		for i, st := range c.Stages() {
			fmt.Fprintf(a.outW, "  %d. %-8s %s\n", i+1, st.Kind(), strings.Join(task.Names(st.Tasks()), ", "))
		}
		g := cw.Session.Graph()
		for _, st := range c.Stages() {
			for _, name := range task.Names(st.Tasks()) {
				line, err := describeTask(g, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.outW, "     %s\n", line)
			}
		}
		if c.Wrapped() {
			fmt.Fprintf(a.outW, "  notify: %s\n", c.Target().TopicReference())
		}
	}
	return nil
}

// describeTask renders the direct neighbours of a task, e.g.
// "train: after extract; before done" or "done: after train; end".
func describeTask(g *dag.Graph, name string) (string, error) {
	deps, err := g.Dependencies(name)
	if err != nil {
		return "", err
	}
	dependents, err := g.Dependents(name)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, 2)
	if len(deps) > 0 {
		parts = append(parts, "after "+strings.Join(deps, ", "))
	}
	if len(dependents) > 0 {
		parts = append(parts, "before "+strings.Join(dependents, ", "))
	} else {
		parts = append(parts, "end")
	}
	return name + ": " + strings.Join(parts, "; "), nil
}
