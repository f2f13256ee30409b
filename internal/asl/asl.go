// Package asl models the subset of the Amazon States Language that compiled
// workflows are rendered into: Task, Pass and Parallel states, catch clauses
// and the top-level state machine definition.
package asl

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bytedance/sonic"
)

// State types understood by the renderer.
const (
	TypeTask     = "Task"
	TypePass     = "Pass"
	TypeParallel = "Parallel"
)

// ErrorAll matches every error name in a catch clause.
const ErrorAll = "States.ALL"

// ErrNoStartState is returned when a definition has nothing to start from.
var ErrNoStartState = errors.New("state machine definition has no start state")

// ErrDuplicateState is returned when two states anywhere in a definition
// share a name.
var ErrDuplicateState = errors.New("duplicate state name")

// State is a single state of a state machine or branch.
type State struct {
	Type       string         `json:"Type" yaml:"Type"`
	Comment    string         `json:"Comment,omitempty" yaml:"Comment,omitempty"`
	Resource   string         `json:"Resource,omitempty" yaml:"Resource,omitempty"`
	Parameters map[string]any `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Result     map[string]any `json:"Result,omitempty" yaml:"Result,omitempty"`
	ResultPath string         `json:"ResultPath,omitempty" yaml:"ResultPath,omitempty"`
	Branches   []Branch       `json:"Branches,omitempty" yaml:"Branches,omitempty"`
	Catch      []Catcher      `json:"Catch,omitempty" yaml:"Catch,omitempty"`
	Next       string         `json:"Next,omitempty" yaml:"Next,omitempty"`
	End        bool           `json:"End,omitempty" yaml:"End,omitempty"`
}

// Clone returns a copy of the state that can be linked without touching the
// original. Parameters and Result maps are copied one level deep.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Parameters = copyMap(s.Parameters)
	out.Result = copyMap(s.Result)
	if s.Branches != nil {
		out.Branches = append([]Branch(nil), s.Branches...)
	}
	if s.Catch != nil {
		out.Catch = append([]Catcher(nil), s.Catch...)
	}
	return &out
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Branch is one branch of a Parallel state.
type Branch struct {
	StartAt string            `json:"StartAt" yaml:"StartAt"`
	States  map[string]*State `json:"States" yaml:"States"`
}

// Catcher routes matching errors to a fallback state.
type Catcher struct {
	ErrorEquals []string `json:"ErrorEquals" yaml:"ErrorEquals"`
	Next        string   `json:"Next" yaml:"Next"`
	ResultPath  string   `json:"ResultPath,omitempty" yaml:"ResultPath,omitempty"`
}

// Definition is a complete state machine definition.
type Definition struct {
	Comment string            `json:"Comment,omitempty" yaml:"Comment,omitempty"`
	StartAt string            `json:"StartAt" yaml:"StartAt"`
	States  map[string]*State `json:"States" yaml:"States"`
}

// Validate checks that StartAt and every Next/Catch target name an existing
// state, recursing into parallel branches.
func (d *Definition) Validate() error {
	if d == nil || d.StartAt == "" {
		return ErrNoStartState
	}
	if err := uniqueNames(d.States, make(map[string]bool)); err != nil {
		return err
	}
	return validateStates(d.StartAt, d.States)
}

// uniqueNames checks that no state name repeats anywhere in the machine,
// parallel branches included.
func uniqueNames(states map[string]*State, seen map[string]bool) error {
	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if seen[name] {
			return fmt.Errorf("%w: %q", ErrDuplicateState, name)
		}
		seen[name] = true
		for _, b := range states[name].Branches {
			if err := uniqueNames(b.States, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateStates(startAt string, states map[string]*State) error {
	if _, ok := states[startAt]; !ok {
		return fmt.Errorf("start state %q is not defined", startAt)
	}
	for name, st := range states {
		if st.Next != "" {
			if _, ok := states[st.Next]; !ok {
				return fmt.Errorf("state %q: next state %q is not defined", name, st.Next)
			}
		}
		if st.Next == "" && !st.End {
			return fmt.Errorf("state %q has neither Next nor End", name)
		}
		for _, c := range st.Catch {
			if _, ok := states[c.Next]; !ok {
				return fmt.Errorf("state %q: catch target %q is not defined", name, c.Next)
			}
		}
		for i, b := range st.Branches {
			if err := validateStates(b.StartAt, b.States); err != nil {
				return fmt.Errorf("state %q branch %d: %w", name, i, err)
			}
		}
	}
	return nil
}

// JSON encodes the definition. Map keys are sorted so the output is stable.
func (d *Definition) JSON() ([]byte, error) {
	return sonic.ConfigStd.Marshal(d)
}

// IndentedJSON encodes the definition for humans.
func (d *Definition) IndentedJSON() ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(d, "", "  ")
}
