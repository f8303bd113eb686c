package labelcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreByFrequency(t *testing.T) {
	tests := []struct {
		name   string
		counts Counts
		want   Scores
	}{
		{
			name:   "mixed row",
			counts: Counts{"a": 3, "b": 1, "c": 2},
			want:   Scores{"a": 0.6, "b": 0, "c": 0.4},
		},
		{
			name:   "all singletons",
			counts: Counts{"a": 1, "b": 1},
			want:   Scores{"a": 0, "b": 0},
		},
		{
			name:   "absent labels score zero",
			counts: Counts{"a": 2, "b": 0},
			want:   Scores{"a": 1, "b": 0},
		},
		{
			name:   "empty row",
			counts: Counts{},
			want:   Scores{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreByFrequency(tt.counts)
			assert.Len(t, got, len(tt.want))
			for id, want := range tt.want {
				assert.InDelta(t, want, got.Get(id), 1e-9, id)
			}
		})
	}
}

func TestScoreByFrequencySumsToOne(t *testing.T) {
	got := ScoreByFrequency(Counts{"a": 5, "b": 2, "c": 1, "d": 7})
	var sum float64
	for _, s := range got {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
		sum += s
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, 0.0, got.Get("c"))
	assert.Equal(t, 0.0, got.Get("unknown"))
}
