package dag

import (
	"fmt"
	"sort"

	"github.com/vk/datajob/internal/task"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode registers t as a node without any edge. This is how a task is
// declared as a standalone branch with no successor. Adding a node twice is
// a no-op.
func (g *Graph) AddNode(t task.Task) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	_, err := g.ensure(t)
	return err
}

// AddEdge records that `to` depends on `from`. Both tasks are registered
// when first seen. Duplicate edges are ignored. Self-references are accepted
// here and reported as a cycle by Levels.
func (g *Graph) AddEdge(from, to task.Task) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, err := g.ensure(from)
	if err != nil {
		return err
	}
	toNode, err := g.ensure(to)
	if err != nil {
		return err
	}

	if _, exists := toNode.deps[fromNode.task.Name()]; exists {
		return nil
	}
	toNode.deps[fromNode.task.Name()] = struct{}{}
	toNode.depOrder = append(toNode.depOrder, fromNode.task.Name())
	fromNode.dependents = append(fromNode.dependents, toNode.task.Name())
	return nil
}

// ensure returns the node for t, creating it on first mention.
func (g *Graph) ensure(t task.Task) (*node, error) {
	if t == nil {
		return nil, invalidf("task must not be nil")
	}
	name := t.Name()
	if name == "" {
		return nil, invalidf("task name is required")
	}
	if n, ok := g.nodes[name]; ok {
		return n, nil
	}
	n := &node{
		task: t,
		seq:  len(g.order),
		deps: make(map[string]struct{}),
	}
	g.nodes[name] = n
	g.order = append(g.order, name)
	return n, nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// Nodes returns every task in first-mention order.
func (g *Graph) Nodes() []task.Task {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	out := make([]task.Task, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name].task)
	}
	return out
}

// Dependencies returns the names of the tasks the given task depends on,
// in declaration order.
func (g *Graph) Dependencies(name string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[name]
	if !ok {
		return nil, &GraphError{Kind: ErrUnknownTask, Msg: name}
	}
	return append([]string(nil), n.depOrder...), nil
}

// Dependents returns the names of the tasks that depend on the given task.
func (g *Graph) Dependents(name string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[name]
	if !ok {
		return nil, &GraphError{Kind: ErrUnknownTask, Msg: name}
	}
	return append([]string(nil), n.dependents...), nil
}

// Levels sorts the graph into levels using Kahn's algorithm. Level i holds
// exactly the tasks whose predecessors all sit in levels 0..i-1. Tasks inside
// a level keep their first-mention order. An empty graph yields no levels.
//
// If some tasks can never become ready the graph has a cycle and a
// *CyclicDependencyError naming them is returned.
func (g *Graph) Levels() ([][]task.Task, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	indeg := make(map[string]int, len(g.nodes))
	var ready []*node
	for _, name := range g.order {
		n := g.nodes[name]
		indeg[name] = len(n.deps)
		if indeg[name] == 0 {
			ready = append(ready, n)
		}
	}

	var levels [][]task.Task
	placed := 0
	for len(ready) > 0 {
		level := make([]task.Task, 0, len(ready))
		var next []*node
		for _, n := range ready {
			level = append(level, n.task)
			for _, dep := range n.dependents {
				indeg[dep]--
				if indeg[dep] == 0 {
					next = append(next, g.nodes[dep])
				}
			}
		}
		sort.Slice(next, func(i, j int) bool { return next[i].seq < next[j].seq })

		levels = append(levels, level)
		placed += len(level)
		ready = next
	}

	if placed != len(g.order) {
		var unresolved []string
		for name, d := range indeg {
			if d > 0 {
				unresolved = append(unresolved, name)
			}
		}
		sort.Strings(unresolved)
		return nil, &CyclicDependencyError{Nodes: unresolved}
	}
	return levels, nil
}

// String renders the edges for debugging, one "from -> to" pair per line.
func (g *Graph) String() string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var out string
	for _, name := range g.order {
		n := g.nodes[name]
		if len(n.depOrder) == 0 && len(n.dependents) == 0 {
			out += fmt.Sprintf("%s -> (end)\n", name)
		}
		for _, dep := range n.depOrder {
			out += fmt.Sprintf("%s -> %s\n", dep, name)
		}
	}
	return out
}
