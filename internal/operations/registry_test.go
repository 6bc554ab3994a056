package operations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdgwater/internal/operations"
	"sdgwater/internal/operations/testutil"
)

func stepIDs(steps []operations.Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	return ids
}

func TestRegistry(t *testing.T) {
	registry := operations.NewRegistry()

	assert.Equal(t, 0, registry.Count())
	steps := registry.List()
	assert.NotNil(t, steps, "List() should return empty slice, not nil")
	assert.Empty(t, steps)
}

func TestRegistryRegister(t *testing.T) {
	registry := operations.NewRegistry()

	step1 := testutil.CreateSuccessfulStage("step1", "Step 1")
	step2 := testutil.CreateSuccessfulStage("step2", "Step 2")
	require.NoError(t, registry.Register(step1))
	require.NoError(t, registry.Register(step2))

	assert.Equal(t, 2, registry.Count())
	assert.True(t, registry.Has("step1"))
	assert.False(t, registry.Has("step3"))

	got, err := registry.Get("step1")
	require.NoError(t, err)
	assert.Same(t, step1, got)

	_, err = registry.Get("missing")
	assert.ErrorContains(t, err, "not found")

	assert.Equal(t, []string{"step1", "step2"}, stepIDs(registry.List()))
}

func TestRegistryRegisterErrors(t *testing.T) {
	registry := operations.NewRegistry()

	assert.ErrorContains(t, registry.Register(nil), "nil step")
	assert.ErrorContains(t, registry.Register(&testutil.MockStage{NameValue: "Empty"}), "ID cannot be empty")

	step := testutil.CreateSuccessfulStage("dup", "Duplicate")
	require.NoError(t, registry.Register(step))
	assert.ErrorContains(t, registry.Register(step), "already registered")
}

func TestRegistryGetDependencyOrder(t *testing.T) {
	tests := []struct {
		name    string
		steps   []*testutil.MockStage
		want    []string
		wantErr string
	}{
		{
			name: "pipeline chain registered out of order",
			steps: []*testutil.MockStage{
				testutil.CreateSuccessfulStage("report", "Report", "write"),
				testutil.CreateSuccessfulStage("write", "Write", "derive"),
				testutil.CreateSuccessfulStage("load", "Load"),
				testutil.CreateSuccessfulStage("derive", "Derive", "merge"),
				testutil.CreateSuccessfulStage("merge", "Merge", "load"),
			},
			want: []string{"load", "merge", "derive", "write", "report"},
		},
		{
			name: "independent steps keep registration order",
			steps: []*testutil.MockStage{
				testutil.CreateSuccessfulStage("b", "B"),
				testutil.CreateSuccessfulStage("a", "A"),
				testutil.CreateSuccessfulStage("c", "C", "a", "b"),
			},
			want: []string{"b", "a", "c"},
		},
		{
			name: "missing dependency",
			steps: []*testutil.MockStage{
				testutil.CreateSuccessfulStage("merge", "Merge", "load"),
			},
			wantErr: "non-existent step load",
		},
		{
			name: "cycle",
			steps: []*testutil.MockStage{
				testutil.CreateSuccessfulStage("a", "A", "b"),
				testutil.CreateSuccessfulStage("b", "B", "a"),
			},
			wantErr: "dependency cycle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := operations.NewRegistry()
			for _, s := range tt.steps {
				require.NoError(t, registry.Register(s))
			}

			ordered, err := registry.GetDependencyOrder()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, stepIDs(ordered))
		})
	}
}

func TestRegistryGetDependents(t *testing.T) {
	registry := operations.NewRegistry()
	for _, s := range []*testutil.MockStage{
		testutil.CreateSuccessfulStage("load", "Load"),
		testutil.CreateSuccessfulStage("merge", "Merge", "load"),
		testutil.CreateSuccessfulStage("audit", "Audit"),
		testutil.CreateSuccessfulStage("derive", "Derive", "merge"),
	} {
		require.NoError(t, registry.Register(s))
	}

	assert.Equal(t, []string{"merge", "derive"}, stepIDs(registry.GetDependents("load")))
	assert.Empty(t, registry.GetDependents("derive"))
}
