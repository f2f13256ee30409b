package chain

import (
	"fmt"
	"strings"

	"github.com/vk/datajob/internal/task"
)

// StageKind tells single-task stages apart from parallel groups.
type StageKind int

const (
	StageSingle StageKind = iota
	StageParallel
)

func (k StageKind) String() string {
	switch k {
	case StageSingle:
		return "single"
	case StageParallel:
		return "parallel"
	default:
		return fmt.Sprintf("StageKind(%d)", int(k))
	}
}

// Stage is one step of a chain: either a single task or a set of tasks run
// as parallel branches.
type Stage struct {
	kind  StageKind
	id    string
	tasks []task.Task
}

// Kind returns the stage kind.
func (s Stage) Kind() StageKind { return s.kind }

// ID returns the state name of a parallel stage, or the task name of a
// single stage.
func (s Stage) ID() string {
	if s.kind == StageSingle && len(s.tasks) == 1 {
		return s.tasks[0].Name()
	}
	return s.id
}

// Tasks returns the tasks of the stage in branch order.
func (s Stage) Tasks() []task.Task {
	return append([]task.Task(nil), s.tasks...)
}

func (s Stage) String() string {
	names := task.Names(s.tasks)
	if s.kind == StageSingle {
		return strings.Join(names, "")
	}
	return "[" + strings.Join(names, ", ") + "]"
}
