package labelcheck

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	tests := []struct {
		name     string
		examples []Example
		wantErr  string
	}{
		{
			name:     "empty batch",
			examples: nil,
		},
		{
			name:     "unique ids",
			examples: []Example{{ID: "a"}, {ID: "b"}},
		},
		{
			name:     "empty id",
			examples: []Example{{ID: "a"}, {ID: ""}},
			wantErr:  "empty id",
		},
		{
			name:     "duplicate id",
			examples: []Example{{ID: "a"}, {ID: "a"}},
			wantErr:  "duplicate id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStore(tt.examples)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.examples), s.Len())
		})
	}
}

func TestStoreKeepsInsertionOrder(t *testing.T) {
	s, err := NewStore([]Example{{ID: "z"}, {ID: "a"}, {ID: "m"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, s.IDs())

	ids := make([]string, 0, s.Len())
	for _, ex := range s.Examples() {
		ids = append(ids, ex.ID)
	}
	assert.Equal(t, []string{"z", "a", "m"}, ids)
}

func TestStoreReturnsCopies(t *testing.T) {
	s, err := NewStore([]Example{{ID: "a", AssignedLabels: []Label{{ID: "x", Score: 1}}}})
	require.NoError(t, err)

	ex, ok := s.Get("a")
	require.True(t, ok)
	ex.AssignedLabels[0].ID = "mutated"

	again, _ := s.Get("a")
	assert.Equal(t, "x", again.AssignedLabels[0].ID)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStoreMap(t *testing.T) {
	s, err := NewStore([]Example{{ID: "a", Text: "one"}, {ID: "b", Text: "two"}})
	require.NoError(t, err)

	mapped, err := s.Map(func(ex Example) (Example, error) {
		return ex.WithEmbedding([]float32{float32(len(ex.Text))}), nil
	})
	require.NoError(t, err)

	a, _ := mapped.Get("a")
	assert.Equal(t, []float32{3}, a.Embedding)
	orig, _ := s.Get("a")
	assert.Nil(t, orig.Embedding, "source store must not change")
	assert.Equal(t, s.IDs(), mapped.IDs())
}

func TestStoreMapErrors(t *testing.T) {
	s, err := NewStore([]Example{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = s.Map(func(ex Example) (Example, error) {
		if ex.ID == "b" {
			return ex, boom
		}
		return ex, nil
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Map(func(ex Example) (Example, error) {
		ex.ID = ex.ID + "!"
		return ex, nil
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExampleWithHelpersDoNotAlias(t *testing.T) {
	labels := []Label{{ID: "0", Score: 0.9}}
	ex := Example{ID: "a"}.WithClusterLabels(labels)
	labels[0].ID = "changed"
	assert.Equal(t, "0", ex.ClusterLabels[0].ID)

	next := ex.WithCandidateLabels([]Label{{ID: "x", Score: 1}})
	assert.Empty(t, ex.CandidateLabels)
	assert.Equal(t, ex.ClusterLabels, next.ClusterLabels)
}
