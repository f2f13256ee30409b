package dag

import (
	"sync"

	"github.com/vk/datajob/internal/task"
)

// Graph accumulates "successor depends on predecessor" edges between tasks.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the node table during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by task name.
	nodes map[string]*node
	// order holds node names in first-mention order.
	order []string
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API.
type node struct {
	task task.Task
	// seq is the node's first-mention position, used for deterministic levels.
	seq int
	// deps holds the names of the nodes this node depends on (predecessors).
	deps map[string]struct{}
	// depOrder keeps deps in declaration order.
	depOrder []string
	// dependents holds the names of the nodes that depend on this node.
	dependents []string
}
