package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/datajob/internal/asl"
	"github.com/vk/datajob/internal/chain"
	"github.com/vk/datajob/internal/ctxlog"
	"github.com/vk/datajob/internal/task"
)

type fakeTopic string

func (f fakeTopic) TopicReference() string { return string(f) }

func job(name string) task.Task {
	return task.NewJob("glue", name, asl.State{
		Type:       asl.TypeTask,
		Resource:   "arn:aws:states:::glue:startJobRun.sync",
		Parameters: map[string]any{"JobName": name},
	})
}

func stageNames(c *chain.Chain) [][]string {
	var out [][]string
	for _, s := range c.Stages() {
		out = append(out, task.Names(s.Tasks()))
	}
	return out
}

func testCtx() context.Context {
	return ctxlog.Discard(context.Background())
}

func TestRun_Diamond(t *testing.T) {
	a, b, c, d := job("A"), job("B"), job("C"), job("D")

	s, err := Run(testCtx(), "diamond", func(ctx context.Context) error {
		if err := Declare(ctx, a, Group{b, c}); err != nil {
			return err
		}
		return Declare(ctx, Group{b, c}, d)
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, s.State())

	ch, err := s.Chain()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A"}, {"B", "C"}, {"D"}}, stageNames(ch))

	stages := ch.Stages()
	assert.Equal(t, chain.StageSingle, stages[0].Kind())
	assert.Equal(t, chain.StageParallel, stages[1].Kind())
	assert.Equal(t, chain.StageSingle, stages[2].Kind())
}

func TestRun_FluentNotation(t *testing.T) {
	t1, t2, t3, t4, t5 := job("task1"), job("task2"), job("task3"), job("task4"), job("task5")

	s, err := Run(testCtx(), "fluent", func(ctx context.Context) error {
		if err := From(ctx, t1).Then(t2).Then(t4).End(); err != nil {
			return err
		}
		if err := From(ctx, t3, t5).Then(t2).Err(); err != nil {
			return err
		}
		return nil
	})
	require.NoError(t, err)

	ch, err := s.Chain()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"task1", "task3", "task5"}, {"task2"}, {"task4"}}, stageNames(ch))
}

func TestRun_SingleTaskWithEnd(t *testing.T) {
	only := job("only")
	s, err := Run(testCtx(), "single", func(ctx context.Context) error {
		return Declare(ctx, only, End)
	})
	require.NoError(t, err)

	ch, err := s.Chain()
	require.NoError(t, err)
	require.Equal(t, 1, ch.Len())
	assert.Equal(t, chain.StageSingle, ch.Stages()[0].Kind())

	def, err := s.Definition()
	require.NoError(t, err)
	assert.Equal(t, "only", def.StartAt)
	assert.True(t, def.States["only"].End)
}

func TestRun_FanOutThenFanIn(t *testing.T) {
	a, b, c, d := job("a"), job("b"), job("c"), job("d")
	s, err := Run(testCtx(), "fan", func(ctx context.Context) error {
		return From(ctx, a).FanOut(b, c).Then(d).End()
	})
	require.NoError(t, err)

	ch, err := s.Chain()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b", "c"}, {"d"}}, stageNames(ch))
}

func TestRun_EmptyWorkflow(t *testing.T) {
	s, err := Run(testCtx(), "empty", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	ch, err := s.Chain()
	require.NoError(t, err)
	assert.Zero(t, ch.Len())

	_, err = s.Definition()
	assert.ErrorIs(t, err, asl.ErrNoStartState)
}

func TestRun_Cycle(t *testing.T) {
	a, b := job("a"), job("b")
	s, err := Run(testCtx(), "cycle", func(ctx context.Context) error {
		return From(ctx, a).Then(b).Then(a).Err()
	})
	require.ErrorIs(t, err, ErrCyclicDependency)

	var cycleErr *CyclicDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"a", "b"}, cycleErr.Nodes)

	assert.Equal(t, StateClosed, s.State())
	_, err = s.Chain()
	assert.ErrorIs(t, err, ErrCyclicDependency)
}

func TestRun_Notification(t *testing.T) {
	t1, t2 := job("task1"), job("task2")
	topic := fakeTopic("arn:aws:sns:eu-west-1:123456789012:notify")

	s, err := Run(testCtx(), "notified", func(ctx context.Context) error {
		return From(ctx, t1).Then(t2).End()
	}, WithNotification(topic), WithComment("with notification"))
	require.NoError(t, err)

	def, err := s.Definition()
	require.NoError(t, err)
	assert.Equal(t, "with notification", def.Comment)
	assert.Equal(t, chain.NotificationState, def.StartAt)

	wrapper := def.States[chain.NotificationState]
	require.Len(t, wrapper.Branches, 1)
	assert.Equal(t, "task1", wrapper.Branches[0].StartAt)
	assert.Len(t, wrapper.Branches[0].States, 2)
	assert.Equal(t, chain.FailureNotificationState, wrapper.Catch[0].Next)
	assert.Equal(t, chain.SuccessNotificationState, wrapper.Next)
}

func TestDeclare_Malformed(t *testing.T) {
	a, b, c, d := job("a"), job("b"), job("c"), job("d")

	tests := []struct {
		name     string
		from, to any
		reason   string
	}{
		{name: "group on both sides", from: Group{a, b}, to: Group{c, d}, reason: "ambiguous"},
		{name: "end on the left", from: End, to: a, reason: "end marker"},
		{name: "nil left", from: nil, to: a, reason: "missing operand"},
		{name: "nil right", from: a, to: nil, reason: "missing operand"},
		{name: "empty group", from: Group{}, to: a, reason: "empty group"},
		{name: "nil group member", from: a, to: Group{b, nil}, reason: "group member 1 is nil"},
		{name: "unsupported type", from: "a", to: b, reason: "unsupported operand type string"},
		{name: "unnamed task", from: a, to: job(""), reason: "task name is required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New("malformed")
			err := s.Declare(tc.from, tc.to)

			var edgeErr *MalformedEdgeError
			require.ErrorAs(t, err, &edgeErr)
			assert.ErrorIs(t, err, ErrMalformedEdge)
			assert.Contains(t, edgeErr.Reason, tc.reason)

			_, err = s.Close(testCtx())
			assert.ErrorIs(t, err, ErrMalformedEdge, "close must surface the declaration error")
			_, err = s.Chain()
			assert.Error(t, err)
		})
	}
}

func TestDeclaration_StickyError(t *testing.T) {
	a, b, c := job("a"), job("b"), job("c")
	s := New("sticky")

	d := s.From(a).Then().Then(b).Then(c)
	assert.ErrorIs(t, d.Err(), ErrMalformedEdge)
	assert.ErrorIs(t, d.End(), ErrMalformedEdge)
	assert.Zero(t, s.Graph().Len(), "no edge is declared after the first error")
}

func TestDeclare_NoActiveWorkflow(t *testing.T) {
	err := Declare(context.Background(), job("a"), job("b"))
	assert.ErrorIs(t, err, ErrNoActiveWorkflow)

	var noActive *NoActiveWorkflowError
	assert.ErrorAs(t, err, &noActive)

	err = From(context.Background(), job("a")).Then(job("b")).End()
	assert.ErrorIs(t, err, ErrNoActiveWorkflow)

	_, err = FromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveWorkflow)
}

func TestSession_ClosedRejectsDeclarations(t *testing.T) {
	a, b, c := job("a"), job("b"), job("c")
	s := New("closed")
	require.NoError(t, s.Declare(a, b))
	require.NoError(t, s.Declare(b, End))

	before, err := s.Close(testCtx())
	require.NoError(t, err)
	beforeNames := stageNames(before)

	err = s.Declare(b, c)
	var stateErr *InvalidSessionStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, StateClosed, stateErr.State)
	assert.ErrorIs(t, err, ErrInvalidSessionState)

	after, err := s.Chain()
	require.NoError(t, err)
	assert.Equal(t, beforeNames, stageNames(after))

	_, err = s.Close(testCtx())
	assert.ErrorIs(t, err, ErrInvalidSessionState)
}

func TestSession_ChainBeforeClose(t *testing.T) {
	s := New("open")
	_, err := s.Chain()
	assert.ErrorIs(t, err, ErrInvalidSessionState)
	assert.ErrorContains(t, err, "state OPEN")
}

func TestOpen_Nested(t *testing.T) {
	ctx, outer, err := Open(testCtx(), "outer")
	require.NoError(t, err)

	_, _, err = Open(ctx, "inner")
	var nested *NestedWorkflowError
	require.ErrorAs(t, err, &nested)
	assert.Equal(t, "outer", nested.Outer)
	assert.Equal(t, "inner", nested.Inner)

	_, err = outer.Close(ctx)
	require.NoError(t, err)

	// once the outer session is closed a new one may be opened
	_, inner, err := Open(ctx, "inner")
	require.NoError(t, err)
	assert.Equal(t, "inner", inner.Name())
}

func TestRun_ClosesOnError(t *testing.T) {
	boom := errors.New("boom")
	s, err := Run(testCtx(), "failing", func(ctx context.Context) error {
		if err := Declare(ctx, job("a"), End); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, s)
	assert.Equal(t, StateClosed, s.State())
}

func TestRun_ClosesOnPanic(t *testing.T) {
	var captured *Session
	assert.PanicsWithValue(t, "boom", func() {
		_, _ = Run(testCtx(), "panicking", func(ctx context.Context) error {
			captured, _ = FromContext(ctx)
			panic("boom")
		})
	})
	require.NotNil(t, captured)
	assert.Equal(t, StateClosed, captured.State())
}

func TestRun_ConcurrentScopesAreIsolated(t *testing.T) {
	const workers = 8
	var wg sync.WaitGroup
	results := make([]*Session, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			first := job(fmt.Sprintf("w%d-first", i))
			second := job(fmt.Sprintf("w%d-second", i))
			results[i], errs[i] = Run(testCtx(), fmt.Sprintf("wf-%d", i), func(ctx context.Context) error {
				return From(ctx, first).Then(second).End()
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		ch, err := results[i].Chain()
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{fmt.Sprintf("w%d-first", i)},
			{fmt.Sprintf("w%d-second", i)},
		}, stageNames(ch))
	}
}

func TestSessionState_String(t *testing.T) {
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "CLOSED", StateClosed.String())
}
