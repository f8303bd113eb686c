package labelcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Service runs the embed, cluster and evaluate stages over a batch.
type Service struct {
	embedder  Embedder
	clusterer Clusterer

	cfgMu sync.RWMutex
	cfg   Config

	logger  *slog.Logger
	metrics *Metrics
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger. Without one the service is silent.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithClusterer overrides the clusterer built from the configuration.
func WithClusterer(c Clusterer) ServiceOption {
	return func(s *Service) { s.clusterer = c }
}

// NewService constructs a service with the given embedder and configuration.
func NewService(embedder Embedder, cfg Config, opts ...ServiceOption) (*Service, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	cfg.ApplyDefaults()
	s := &Service{embedder: embedder, cfg: cfg}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.clusterer == nil {
		c, err := NewClusterer(cfg.Cluster)
		if err != nil {
			return nil, err
		}
		s.clusterer = c
	}
	return s, nil
}

// Close releases embedder resources.
func (s *Service) Close() error {
	if s.embedder != nil {
		return s.embedder.Close()
	}
	return nil
}

// Config returns a copy of the current configuration.
func (s *Service) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Clone()
}

// UpdateConfig replaces the configuration. The clusterer is rebuilt from
// the new cluster settings.
func (s *Service) UpdateConfig(cfg Config) error {
	cfg.ApplyDefaults()
	c, err := NewClusterer(cfg.Cluster)
	if err != nil {
		return err
	}
	s.cfgMu.Lock()
	s.cfg = cfg
	s.clusterer = c
	s.cfgMu.Unlock()
	return nil
}

// ClusterOnly embeds and clusters the batch without scoring labels.
func (s *Service) ClusterOnly(ctx context.Context, store *Store) (*Store, error) {
	s.cfgMu.RLock()
	clusterer := s.clusterer
	s.cfgMu.RUnlock()

	start := time.Now()
	embedded, err := EmbedStage(ctx, store, s.embedder)
	if err != nil {
		return nil, err
	}
	s.metrics.observeStage("embed", start)
	s.logger.Info("embedded examples", "count", embedded.Len(), "model", s.embedder.ModelID(), "elapsed", time.Since(start))

	start = time.Now()
	clustered, err := ClusterStage(embedded, clusterer)
	if err != nil {
		return nil, err
	}
	s.metrics.observeStage("cluster", start)
	s.logger.Info("clustered examples", "clusters", countClusters(clustered), "noise", countNoise(clustered))
	return clustered, nil
}

// Run embeds, clusters and evaluates the batch. Every example must carry
// assigned labels; the call fails as a whole otherwise.
func (s *Service) Run(ctx context.Context, store *Store) (*Store, error) {
	if store.Len() == 0 {
		return store, nil
	}
	if err := requireAssigned(store); err != nil {
		return nil, err
	}
	clustered, err := s.ClusterOnly(ctx, store)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	evaluated, err := Evaluate(clustered.Examples())
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	s.metrics.observeStage("evaluate", start)
	s.metrics.evaluated(len(evaluated))
	return NewStore(evaluated)
}

// Audit runs the pipeline and builds reviews with the configured threshold.
func (s *Service) Audit(ctx context.Context, store *Store) ([]Review, Summary, error) {
	evaluated, err := s.Run(ctx, store)
	if err != nil {
		return nil, Summary{}, err
	}
	reviews := BuildReviews(evaluated.Examples(), s.Config().SuspectThreshold())
	summary := Summarize(reviews)
	s.metrics.suspected(summary.Suspects)
	s.logger.Info("audit finished", "examples", summary.Examples, "suspects", summary.Suspects)
	for _, r := range reviews {
		if r.Suspect {
			s.logger.Debug("suspect label", "id", r.ID, "assigned", joinLabelIDs(r.Assigned), "score", r.AssignedScore)
		}
	}
	return reviews, summary, nil
}

// requireAssigned rejects unlabeled examples before any model is called.
func requireAssigned(store *Store) error {
	for i, ex := range store.Examples() {
		if len(ex.AssignedLabels) == 0 {
			return &InputError{Index: i, ID: ex.ID, Reason: "no assigned labels"}
		}
	}
	return nil
}

func countClusters(store *Store) int {
	seen := make(map[string]struct{})
	for _, ex := range store.Examples() {
		for _, l := range ex.ClusterLabels {
			if l.ID != NoiseCluster {
				seen[l.ID] = struct{}{}
			}
		}
	}
	return len(seen)
}

func countNoise(store *Store) int {
	n := 0
	for _, ex := range store.Examples() {
		for _, l := range ex.ClusterLabels {
			if l.ID == NoiseCluster {
				n++
			}
		}
	}
	return n
}
