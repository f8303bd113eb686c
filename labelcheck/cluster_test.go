package labelcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoBlobs has two tight groups and one outlier pointing away from both.
var twoBlobs = [][]float32{
	{1, 0},
	{0.95, 0.05},
	{0, 1},
	{0.05, 0.95},
	{-1, -1},
}

func clusterIDs(as []Assignment) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.ClusterID
	}
	return out
}

func TestInMemoryIndex(t *testing.T) {
	idx := NewInMemoryIndex()
	assert.Empty(t, idx.Within([]float32{1, 0}, 0))
	assert.Equal(t, 0, idx.Size())

	idx.Replace([]VectorItem{
		{ID: "east", Vector: []float32{1, 0}},
		{ID: "north", Vector: []float32{0, 1}},
		{ID: "northeast", Vector: []float32{1, 1}},
	})
	require.Equal(t, 3, idx.Size())

	all := idx.Within([]float32{1, 0.1}, -1)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"east", "north", "northeast"}, []string{all[0].ID, all[1].ID, all[2].ID})

	within := idx.Within([]float32{1, 0}, 0.5)
	require.Len(t, within, 2)
	assert.Equal(t, 0, within[0].Pos)
	assert.Equal(t, 2, within[1].Pos)
}

func TestL2Normalize(t *testing.T) {
	v := []float32{3, 4}
	n := l2Normalize(v)
	assert.InDelta(t, 0.6, n[0], 1e-6)
	assert.InDelta(t, 0.8, n[1], 1e-6)
	assert.Equal(t, []float32{3, 4}, v, "input must not change")
	assert.Equal(t, []float32{0, 0}, l2Normalize([]float32{0, 0}))
}

func TestClusterers(t *testing.T) {
	tests := []struct {
		name      string
		clusterer Clusterer
	}{
		{name: "dbscan", clusterer: &DBSCAN{Threshold: 0.9, MinSamples: 2}},
		{name: "leader", clusterer: &Leader{Threshold: 0.9, MinSamples: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.clusterer.Cluster(twoBlobs)
			require.NoError(t, err)
			assert.Equal(t, []string{"0", "0", "1", "1", NoiseCluster}, clusterIDs(got))
			for _, a := range got[:4] {
				assert.Greater(t, a.Membership, 0.9)
				assert.LessOrEqual(t, a.Membership, 1.0)
			}
			assert.Equal(t, 0.0, got[4].Membership)
		})
	}
}

func TestClusterersRejectBadVectors(t *testing.T) {
	for _, c := range []Clusterer{&DBSCAN{Threshold: 0.5}, &Leader{Threshold: 0.5}} {
		_, err := c.Cluster([][]float32{{1, 0}, {1, 0, 0}})
		assert.ErrorIs(t, err, ErrDimensionMismatch)

		_, err = c.Cluster([][]float32{{1, 0}, {}})
		assert.ErrorIs(t, err, ErrMissingEmbedding)

		got, err := c.Cluster(nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestLeaderDemotesSmallClusters(t *testing.T) {
	got, err := (&Leader{Threshold: 0.9, MinSamples: 3}).Cluster(twoBlobs)
	require.NoError(t, err)
	for _, a := range got {
		assert.Equal(t, NoiseCluster, a.ClusterID)
	}
}

func TestNewClusterer(t *testing.T) {
	c, err := NewClusterer(ClusterConfig{Algorithm: AlgorithmLeader, Threshold: 0.7, MinSamples: 3})
	require.NoError(t, err)
	assert.Equal(t, &Leader{Threshold: 0.7, MinSamples: 3}, c)

	c, err = NewClusterer(ClusterConfig{})
	require.NoError(t, err)
	assert.IsType(t, &DBSCAN{}, c)

	_, err = NewClusterer(ClusterConfig{Algorithm: "kmeans"})
	assert.Error(t, err)
}

func TestClusterStage(t *testing.T) {
	examples := make([]Example, len(twoBlobs))
	for i, v := range twoBlobs {
		examples[i] = Example{ID: string(rune('a' + i)), Embedding: v}
	}
	store, err := NewStore(examples)
	require.NoError(t, err)

	out, err := ClusterStage(store, &DBSCAN{Threshold: 0.9, MinSamples: 2})
	require.NoError(t, err)
	for i, ex := range out.Examples() {
		require.Len(t, ex.ClusterLabels, 1)
		assert.Equal(t, []string{"0", "0", "1", "1", NoiseCluster}[i], ex.ClusterLabels[0].ID)
		assert.Equal(t, twoBlobs[i], ex.Embedding, "earlier stages' fields are kept")
	}

	unembedded, err := NewStore([]Example{{ID: "a", Embedding: []float32{1}}, {ID: "b"}})
	require.NoError(t, err)
	_, err = ClusterStage(unembedded, &DBSCAN{Threshold: 0.9})
	assert.ErrorIs(t, err, ErrMissingEmbedding)
}
