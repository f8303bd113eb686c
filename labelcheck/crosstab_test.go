package labelcheck

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func labeled(id string, clusters []string, assigned []string) Example {
	ex := Example{ID: id, Text: id}
	for _, c := range clusters {
		ex.ClusterLabels = append(ex.ClusterLabels, Label{ID: c, Score: 1})
	}
	for _, a := range assigned {
		ex.AssignedLabels = append(ex.AssignedLabels, Label{ID: a, Score: 1})
	}
	return ex
}

func TestBuildTableDense(t *testing.T) {
	examples := []Example{
		labeled("1", []string{"A"}, []string{"x"}),
		labeled("2", []string{"A"}, []string{"x"}),
		labeled("3", []string{"B"}, []string{"y"}),
	}
	table := BuildTable(examples, ClusterAxes)

	assert.Equal(t, []string{"A", "B"}, table.Groups())
	assert.Equal(t, []string{"x", "y"}, table.Members())
	assert.Equal(t, Counts{"x": 2, "y": 0}, table.Row("A"))
	assert.Equal(t, Counts{"x": 0, "y": 1}, table.Row("B"))
	assert.Nil(t, table.Row("C"))
	assert.Equal(t, 0, table.Count("C", "x"))
}

func TestBuildTableCartesian(t *testing.T) {
	examples := []Example{
		labeled("1", []string{"A", "B"}, []string{"x", "y"}),
		labeled("2", []string{"A"}, []string{"x"}),
	}
	table := BuildTable(examples, ClusterAxes)

	want := map[string]Counts{
		"A": {"x": 2, "y": 1},
		"B": {"x": 1, "y": 1},
	}
	got := map[string]Counts{}
	for _, g := range table.Groups() {
		got[g] = table.Row(g)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildTableIdempotent(t *testing.T) {
	examples := []Example{
		labeled("1", []string{"0"}, []string{"x"}),
		labeled("2", []string{NoiseCluster}, []string{"y"}),
		labeled("3", []string{"1"}, []string{"x", "z"}),
	}
	first := BuildTable(examples, ClusterAxes)
	second := BuildTable(examples, ClusterAxes)
	assert.True(t, first.Equal(second))

	other := BuildTable(examples[:2], ClusterAxes)
	assert.False(t, first.Equal(other))
}

func TestBuildTableNoiseIsOrdinaryGroup(t *testing.T) {
	examples := []Example{
		labeled("1", []string{"10"}, []string{"x"}),
		labeled("2", []string{NoiseCluster}, []string{"x"}),
		labeled("3", []string{"2"}, []string{"x"}),
	}
	table := BuildTable(examples, ClusterAxes)
	assert.Equal(t, []string{NoiseCluster, "2", "10"}, table.Groups())
	assert.Equal(t, 1, table.Count(NoiseCluster, "x"))
}

func TestBuildTableAssignedAxes(t *testing.T) {
	examples := []Example{
		labeled("1", []string{"0"}, []string{"x"}),
		labeled("2", []string{"1"}, []string{"x"}),
	}
	table := BuildTable(examples, AssignedAxes)
	assert.Equal(t, []string{"x"}, table.Groups())
	assert.Equal(t, []string{"0", "1"}, table.Members())
	assert.Equal(t, Counts{"0": 1, "1": 1}, table.Row("x"))
}

func TestLessID(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want []string
	}{
		{
			name: "numeric before lexical",
			ids:  []string{"b", "10", "a", "-1", "2"},
			want: []string{"-1", "2", "10", "a", "b"},
		},
		{
			name: "same integer spelled differently",
			ids:  []string{"1", "01", "001", "+1", "2"},
			want: []string{"+1", "001", "01", "1", "2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := make(map[string]struct{}, len(tt.ids))
			for _, id := range tt.ids {
				set[id] = struct{}{}
			}
			// Map iteration order varies, so repeat to catch unstable ties.
			for i := 0; i < 50; i++ {
				assert.Equal(t, tt.want, sortedIDs(set))
			}
		})
	}
	assert.False(t, lessID("1", "1"))
	assert.True(t, lessID("01", "1"))
	assert.False(t, lessID("1", "01"))
}

func TestEvaluateOrderStableForPaddedLabels(t *testing.T) {
	batch := []Example{
		labeled("a", []string{"0"}, []string{"1"}),
		labeled("b", []string{"0"}, []string{"01"}),
		labeled("c", []string{"0"}, []string{"001"}),
		labeled("d", []string{"0"}, []string{"+1"}),
	}
	want := []string{"+1", "001", "01", "1"}
	for i := 0; i < 50; i++ {
		out, err := Evaluate(batch)
		assert.NoError(t, err)
		got := make([]string, len(out[0].CandidateLabels))
		for j, c := range out[0].CandidateLabels {
			got[j] = c.ID
		}
		assert.Equal(t, want, got)
	}
}
