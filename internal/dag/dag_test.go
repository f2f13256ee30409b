package dag

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/datajob/internal/asl"
	"github.com/vk/datajob/internal/task"
)

func newTasks(names ...string) map[string]task.Task {
	out := make(map[string]task.Task, len(names))
	for _, n := range names {
		out[n] = task.NewJob("pass", n, asl.State{Type: asl.TypePass})
	}
	return out
}

func levelNames(levels [][]task.Task) [][]string {
	out := make([][]string, len(levels))
	for i, l := range levels {
		out[i] = task.Names(l)
	}
	return out
}

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
	assert.Zero(t, g.Len())
}

func TestAddNode(t *testing.T) {
	ts := newTasks("a", "b")
	g := New()

	require.NoError(t, g.AddNode(ts["a"]))
	assert.Equal(t, 1, g.Len())

	require.NoError(t, g.AddNode(ts["a"])) // idempotent
	assert.Equal(t, 1, g.Len())

	require.NoError(t, g.AddNode(ts["b"]))
	assert.Equal(t, []string{"a", "b"}, task.Names(g.Nodes()))
}

func TestAddNode_Invalid(t *testing.T) {
	g := New()

	err := g.AddNode(nil)
	assert.ErrorIs(t, err, ErrInvalidGraph)

	err = g.AddNode(task.NewJob("pass", "", asl.State{}))
	assert.ErrorIs(t, err, ErrInvalidGraph)
	assert.ErrorContains(t, err, "task name is required")
}

func TestAddEdge(t *testing.T) {
	ts := newTasks("a", "b")
	g := New()

	require.NoError(t, g.AddEdge(ts["a"], ts["b"])) // b depends on a
	require.NoError(t, g.AddEdge(ts["a"], ts["b"])) // duplicate ignored

	deps, err := g.Dependencies("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, deps)

	dependents, err := g.Dependents("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, dependents)

	_, err = g.Dependencies("dne")
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestAddEdge_SameNameIsSameNode(t *testing.T) {
	g := New()
	first := task.NewJob("glue", "job", asl.State{Type: asl.TypeTask})
	second := task.NewJob("glue", "job", asl.State{Type: asl.TypeTask})
	other := task.NewJob("glue", "other", asl.State{Type: asl.TypeTask})

	require.NoError(t, g.AddEdge(first, other))
	require.NoError(t, g.AddEdge(second, other))

	assert.Equal(t, 2, g.Len())
	deps, err := g.Dependencies("other")
	require.NoError(t, err)
	assert.Equal(t, []string{"job"}, deps)
}

func TestLevels(t *testing.T) {
	ts := newTasks("task1", "task2", "task3", "task4", "task5", "A", "B", "C", "D")

	tests := []struct {
		name  string
		build func(g *Graph)
		want  [][]string
	}{
		{
			name:  "empty graph has no levels",
			build: func(g *Graph) {},
			want:  nil,
		},
		{
			name: "single terminal task",
			build: func(g *Graph) {
				_ = g.AddNode(ts["task1"])
			},
			want: [][]string{{"task1"}},
		},
		{
			name: "sequential chain",
			build: func(g *Graph) {
				_ = g.AddEdge(ts["task1"], ts["task2"])
				_ = g.AddEdge(ts["task2"], ts["task3"])
			},
			want: [][]string{{"task1"}, {"task2"}, {"task3"}},
		},
		{
			name: "diamond",
			build: func(g *Graph) {
				_ = g.AddEdge(ts["A"], ts["B"])
				_ = g.AddEdge(ts["A"], ts["C"])
				_ = g.AddEdge(ts["B"], ts["D"])
				_ = g.AddEdge(ts["C"], ts["D"])
			},
			want: [][]string{{"A"}, {"B", "C"}, {"D"}},
		},
		{
			name: "fan-in starts with a parallel level",
			build: func(g *Graph) {
				_ = g.AddEdge(ts["task1"], ts["task2"])
				_ = g.AddEdge(ts["task2"], ts["task4"])
				_ = g.AddEdge(ts["task3"], ts["task2"])
				_ = g.AddEdge(ts["task5"], ts["task2"])
			},
			want: [][]string{{"task1", "task3", "task5"}, {"task2"}, {"task4"}},
		},
		{
			name: "independent task joins the first level",
			build: func(g *Graph) {
				_ = g.AddEdge(ts["A"], ts["D"])
				_ = g.AddEdge(ts["B"], ts["D"])
				_ = g.AddNode(ts["C"])
			},
			want: [][]string{{"A", "C", "B"}, {"D"}},
		},
		{
			name: "uneven path lengths",
			build: func(g *Graph) {
				_ = g.AddEdge(ts["A"], ts["B"])
				_ = g.AddEdge(ts["B"], ts["C"])
				_ = g.AddEdge(ts["A"], ts["C"])
				_ = g.AddEdge(ts["D"], ts["C"])
			},
			want: [][]string{{"A", "D"}, {"B"}, {"C"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := New()
			tc.build(g)

			levels, err := g.Levels()
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, levelNames(levels)); diff != "" {
				t.Errorf("levels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLevels_Properties(t *testing.T) {
	ts := newTasks("a", "b", "c", "d", "e", "f", "g")
	edges := [][2]string{
		{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"},
		{"e", "c"}, {"d", "f"}, {"g", "f"}, {"b", "f"},
	}
	g := New()
	for _, e := range edges {
		require.NoError(t, g.AddEdge(ts[e[0]], ts[e[1]]))
	}

	first, err := g.Levels()
	require.NoError(t, err)

	t.Run("idempotent", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			again, err := g.Levels()
			require.NoError(t, err)
			assert.Equal(t, levelNames(first), levelNames(again))
		}
	})

	index := make(map[string]int)
	t.Run("every node exactly once", func(t *testing.T) {
		for i, level := range first {
			for _, tk := range level {
				_, dup := index[tk.Name()]
				assert.False(t, dup, "task %s appears twice", tk.Name())
				index[tk.Name()] = i
			}
		}
		assert.Len(t, index, g.Len())
	})

	t.Run("edges respected", func(t *testing.T) {
		for _, e := range edges {
			assert.Less(t, index[e[0]], index[e[1]], "%s must precede %s", e[0], e[1])
		}
	})
}

func TestLevels_Cycles(t *testing.T) {
	t.Run("direct cycle", func(t *testing.T) {
		ts := newTasks("a", "b")
		g := New()
		require.NoError(t, g.AddEdge(ts["a"], ts["b"]))
		require.NoError(t, g.AddEdge(ts["b"], ts["a"]))

		levels, err := g.Levels()
		assert.Nil(t, levels)
		require.ErrorIs(t, err, ErrCyclicDependency)

		var cycleErr *CyclicDependencyError
		require.True(t, errors.As(err, &cycleErr))
		assert.Equal(t, []string{"a", "b"}, cycleErr.Nodes)
	})

	t.Run("self reference", func(t *testing.T) {
		ts := newTasks("a")
		g := New()
		require.NoError(t, g.AddEdge(ts["a"], ts["a"]))

		_, err := g.Levels()
		assert.ErrorIs(t, err, ErrCyclicDependency)
	})

	t.Run("cycle downstream of valid tasks names only the unresolved ones", func(t *testing.T) {
		ts := newTasks("a", "x", "y", "z")
		g := New()
		require.NoError(t, g.AddEdge(ts["a"], ts["x"]))
		require.NoError(t, g.AddEdge(ts["x"], ts["y"]))
		require.NoError(t, g.AddEdge(ts["y"], ts["z"]))
		require.NoError(t, g.AddEdge(ts["z"], ts["y"]))

		_, err := g.Levels()
		var cycleErr *CyclicDependencyError
		require.ErrorAs(t, err, &cycleErr)
		assert.Equal(t, []string{"y", "z"}, cycleErr.Nodes)
		assert.ErrorContains(t, err, "y, z")
	})
}

func TestString(t *testing.T) {
	ts := newTasks("a", "b", "c")
	g := New()
	require.NoError(t, g.AddEdge(ts["a"], ts["b"]))
	require.NoError(t, g.AddNode(ts["c"]))

	assert.Equal(t, "a -> b\nc -> (end)\n", g.String())
}
