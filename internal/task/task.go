// Package task defines the unit of work that takes part in a workflow graph.
package task

import "github.com/vk/datajob/internal/asl"

// Task is anything that can be ordered inside a workflow. The name is the
// node identity: two handles with the same name are the same node.
type Task interface {
	Name() string
	// Step returns the state the task renders to. Callers receive their own
	// copy and may link it freely.
	Step() *asl.State
}

// Job is the Task implementation produced by the task modules.
type Job struct {
	kind  string
	name  string
	state asl.State
}

// NewJob creates a Job of the given kind rendering to step.
func NewJob(kind, name string, step asl.State) *Job {
	return &Job{kind: kind, name: name, state: step}
}

// Name returns the unique task name.
func (j *Job) Name() string { return j.name }

// Kind returns the module kind the job was built by (glue, sagemaker, ...).
func (j *Job) Kind() string { return j.kind }

// Step returns a fresh copy of the job's state.
func (j *Job) Step() *asl.State { return j.state.Clone() }

// String implements fmt.Stringer.
func (j *Job) String() string { return j.kind + "." + j.name }

// Names returns the names of the given tasks in order.
func Names(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Name()
	}
	return out
}
