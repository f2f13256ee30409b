package workflow

import "github.com/vk/datajob/internal/task"

// Group is an ordered set of tasks used as one side of an edge. On the left
// every member precedes the right side; on the right the left side precedes
// every member.
type Group []task.Task

// Terminal is the type of the End marker.
type Terminal struct{}

// End marks the left side of an edge as the last step of its branch.
var End = Terminal{}

type operand struct {
	tasks []task.Task
	group bool
	end   bool
}

func resolve(v any) (operand, error) {
	switch val := v.(type) {
	case nil:
		return operand{}, malformedf("missing operand")
	case Terminal:
		return operand{end: true}, nil
	case Group:
		return resolveGroup(val)
	case []task.Task:
		return resolveGroup(val)
	case task.Task:
		return operand{tasks: []task.Task{val}}, nil
	default:
		return operand{}, malformedf("unsupported operand type %T", v)
	}
}

func resolveGroup(ts []task.Task) (operand, error) {
	if len(ts) == 0 {
		return operand{}, malformedf("empty group")
	}
	for i, t := range ts {
		if t == nil {
			return operand{}, malformedf("group member %d is nil", i)
		}
	}
	return operand{tasks: append([]task.Task(nil), ts...), group: true}, nil
}
