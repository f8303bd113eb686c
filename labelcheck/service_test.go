package labelcheck

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newsEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{
		"stocks rally":     {1, 0},
		"bond yields fall": {0.95, 0.05},
		"cup final":        {0, 1},
		"transfer window":  {0.05, 0.95},
		"derby preview":    {0.1, 0.9},
		"volcano erupts":   {-1, -1},
	}}
}

func newsStore(t *testing.T) *Store {
	t.Helper()
	rows := []struct{ id, text, label string }{
		{"0", "stocks rally", "finance"},
		{"1", "bond yields fall", "finance"},
		{"2", "cup final", "sport"},
		{"3", "transfer window", "sport"},
		{"4", "derby preview", "finance"},
		{"5", "volcano erupts", "sport"},
	}
	examples := make([]Example, len(rows))
	for i, r := range rows {
		examples[i] = Example{ID: r.id, Text: r.text, AssignedLabels: []Label{{ID: r.label, Score: 1}}}
	}
	store, err := NewStore(examples)
	require.NoError(t, err)
	return store
}

func newTestService(t *testing.T, embedder Embedder, opts ...ServiceOption) *Service {
	t.Helper()
	svc, err := NewService(embedder, Config{Cluster: ClusterConfig{Threshold: 0.9}}, opts...)
	require.NoError(t, err)
	return svc
}

func TestServiceRun(t *testing.T) {
	svc := newTestService(t, newsEmbedder())

	out, err := svc.Run(context.Background(), newsStore(t))
	require.NoError(t, err)
	require.Equal(t, []string{"0", "1", "2", "3", "4", "5"}, out.IDs())

	want := map[string]string{"0": "0", "1": "0", "2": "1", "3": "1", "4": "1", "5": NoiseCluster}
	for _, ex := range out.Examples() {
		require.Len(t, ex.ClusterLabels, 1)
		assert.Equal(t, want[ex.ID], ex.ClusterLabels[0].ID, ex.ID)
		assert.NotEmpty(t, ex.Embedding)
		assert.NotEmpty(t, ex.CandidateLabels)
	}

	derby, _ := out.Get("4")
	assert.Equal(t, []Label{{ID: "finance", Score: 0}, {ID: "sport", Score: 1}}, derby.CandidateLabels)
}

func TestServiceAudit(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	embedder := NewCachingEmbedder(newsEmbedder(), NewMemoryCache(), metrics)
	svc := newTestService(t, embedder, WithLogger(logger), WithMetrics(metrics))
	defer svc.Close()

	reviews, summary, err := svc.Audit(context.Background(), newsStore(t))
	require.NoError(t, err)
	require.Len(t, reviews, 6)

	var suspects []string
	for _, r := range reviews {
		if r.Suspect {
			suspects = append(suspects, r.ID)
		}
	}
	assert.Equal(t, []string{"4", "5"}, suspects)
	assert.Equal(t, 2, summary.Suspects)

	assert.Equal(t, 6.0, testutil.ToFloat64(metrics.examples))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.suspects))
	assert.Equal(t, 6.0, testutil.ToFloat64(metrics.cacheMisses))
	assert.Equal(t, 3, testutil.CollectAndCount(metrics.stage))
	assert.Contains(t, logs.String(), "audit finished")
	assert.Contains(t, logs.String(), "suspect label")

	// A second audit is served from the embedding cache.
	_, _, err = svc.Audit(context.Background(), newsStore(t))
	require.NoError(t, err)
	assert.Equal(t, 6.0, testutil.ToFloat64(metrics.cacheHits))
}

func TestServiceRunRejectsUnlabeled(t *testing.T) {
	embedder := newsEmbedder()
	svc := newTestService(t, embedder)

	store, err := NewStore([]Example{
		{ID: "a", Text: "stocks rally", AssignedLabels: []Label{{ID: "finance", Score: 1}}},
		{ID: "b", Text: "cup final"},
	})
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), store)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, embedder.calls, "no model call for an invalid batch")
}

func TestServiceRunEmpty(t *testing.T) {
	svc := newTestService(t, newsEmbedder())
	empty, err := NewStore(nil)
	require.NoError(t, err)

	out, err := svc.Run(context.Background(), empty)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestServiceClusterOnly(t *testing.T) {
	svc := newTestService(t, newsEmbedder())
	examples := SplitLines("stocks rally\ncup final\nvolcano erupts", "doc-")
	store, err := NewStore(examples)
	require.NoError(t, err)

	out, err := svc.ClusterOnly(context.Background(), store)
	require.NoError(t, err)
	for _, ex := range out.Examples() {
		assert.Equal(t, NoiseCluster, ex.ClusterLabels[0].ID)
		assert.Empty(t, ex.CandidateLabels)
	}
}

func TestServiceUpdateConfig(t *testing.T) {
	svc := newTestService(t, newsEmbedder())

	cfg := svc.Config()
	cfg.Cluster.Algorithm = AlgorithmLeader
	cfg = cfg.WithMinScore(0.5)
	require.NoError(t, svc.UpdateConfig(cfg))
	assert.Equal(t, AlgorithmLeader, svc.Config().Cluster.Algorithm)

	_, summary, err := svc.Audit(context.Background(), newsStore(t))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Suspects)

	cfg.Cluster.Algorithm = "spectral"
	assert.Error(t, svc.UpdateConfig(cfg))
	assert.Equal(t, AlgorithmLeader, svc.Config().Cluster.Algorithm)
}

func TestServiceWithClusterer(t *testing.T) {
	svc := newTestService(t, newsEmbedder(), WithClusterer(&Leader{Threshold: 0.99, MinSamples: 10}))
	out, err := svc.ClusterOnly(context.Background(), newsStore(t))
	require.NoError(t, err)
	for _, ex := range out.Examples() {
		assert.Equal(t, NoiseCluster, ex.ClusterLabels[0].ID)
	}

	_, err = NewService(nil, Config{})
	assert.Error(t, err)
}
