package labelcheck

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"yashubustudio/labelcheck/emb"
)

// Embedder exposes the minimal surface required by the embedding stage.
// Implementations must be deterministic and produce one dimensionality.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
	ModelID() string
}

// NewEmbedder builds the embedder selected by cfg wrapped in a cache. A
// non-empty CacheDir selects a BadgerDB cache, otherwise vectors are cached
// in memory for the lifetime of the embedder.
func NewEmbedder(cfg EmbedderConfig, metrics *Metrics) (Embedder, error) {
	var inner Embedder
	switch cfg.Backend {
	case BackendORT, "":
		ort, err := NewOrtEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		inner = ort
	case BackendOpenAI:
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("environment variable %s is not set", cfg.APIKeyEnv)
		}
		opts := []OpenAIOption{WithOpenAIModel(cfg.OpenAIModel)}
		if cfg.Dimension > 0 {
			opts = append(opts, WithOpenAIDimension(cfg.Dimension))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(cfg.BaseURL))
		}
		inner = NewOpenAIEmbedder(key, opts...)
	default:
		return nil, fmt.Errorf("unknown embedder backend %q", cfg.Backend)
	}

	var cache VectorCache
	if cfg.CacheDir != "" {
		bc, err := NewBadgerCache(BadgerCacheOptions{Dir: cfg.CacheDir})
		if err != nil {
			_ = inner.Close()
			return nil, err
		}
		cache = bc
	} else {
		cache = NewMemoryCache()
	}
	return NewCachingEmbedder(inner, cache, metrics), nil
}

// OrtEmbedder is a thin wrapper over emb.Encoder.
type OrtEmbedder struct {
	enc *emb.Encoder
	cfg EmbedderConfig
}

// NewOrtEmbedder initializes the encoder.
func NewOrtEmbedder(cfg EmbedderConfig) (*OrtEmbedder, error) {
	if cfg.ModelID == "" && cfg.ModelPath != "" {
		cfg.ModelID = filepath.Base(filepath.Dir(cfg.ModelPath)) + "/" + filepath.Base(cfg.ModelPath)
	}
	encoder := &emb.Encoder{}
	if err := encoder.Init(emb.Config{
		OrtDLL:          cfg.OrtDLL,
		ModelPath:       cfg.ModelPath,
		TokenizerPath:   cfg.TokenizerPath,
		MaxSeqLen:       cfg.MaxSeqLen,
		UseTokenTypeIDs: cfg.UseTokenTypeIDs,
		OutputName:      cfg.OutputName,
	}); err != nil {
		return nil, err
	}
	return &OrtEmbedder{enc: encoder, cfg: cfg}, nil
}

// Close releases ORT resources.
func (o *OrtEmbedder) Close() error {
	if o == nil || o.enc == nil {
		return nil
	}
	o.enc.Close()
	o.enc = nil
	return nil
}

// ModelID returns the identifier used for cache keys.
func (o *OrtEmbedder) ModelID() string {
	return o.cfg.ModelID
}

// EmbedText embeds a single string.
func (o *OrtEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	if o == nil || o.enc == nil {
		return nil, errors.New("embedder is not initialized")
	}
	return o.enc.Encode(NormalizeText(text))
}

// EmbedTexts embeds a slice of strings sequentially.
func (o *OrtEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := o.EmbedText(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// CachingEmbedder memoises another Embedder by model id and normalised text.
type CachingEmbedder struct {
	inner   Embedder
	cache   VectorCache
	metrics *Metrics
}

// NewCachingEmbedder wraps inner with cache. metrics may be nil.
func NewCachingEmbedder(inner Embedder, cache VectorCache, metrics *Metrics) *CachingEmbedder {
	return &CachingEmbedder{inner: inner, cache: cache, metrics: metrics}
}

// ModelID returns the wrapped embedder's model id.
func (c *CachingEmbedder) ModelID() string {
	return c.inner.ModelID()
}

// Close closes the cache and the wrapped embedder.
func (c *CachingEmbedder) Close() error {
	return errors.Join(c.cache.Close(), c.inner.Close())
}

// EmbedText embeds a single string with caching.
func (c *CachingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts serves cached vectors and embeds the rest in one call to the
// wrapped embedder.
func (c *CachingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missing []int
	for i, t := range texts {
		keys[i] = c.cacheKey(t)
		vec, err := c.cache.Get(keys[i])
		switch {
		case err == nil:
			out[i] = vec
			c.metrics.cacheHit()
		case errors.Is(err, ErrCacheMiss):
			missing = append(missing, i)
			c.metrics.cacheMiss()
		default:
			return nil, err
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	pending := make([]string, len(missing))
	for j, i := range missing {
		pending[j] = texts[i]
	}
	vecs, err := c.inner.EmbedTexts(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(pending) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(pending))
	}
	for j, i := range missing {
		out[i] = vecs[j]
		if err := c.cache.Put(keys[i], vecs[j]); err != nil {
			return nil, fmt.Errorf("cache put: %w", err)
		}
	}
	return out, nil
}

func (c *CachingEmbedder) cacheKey(text string) string {
	h := sha1.New()
	_, _ = io.WriteString(h, c.inner.ModelID())
	_, _ = io.WriteString(h, "|")
	_, _ = io.WriteString(h, NormalizeText(text))
	return hex.EncodeToString(h.Sum(nil))
}

// EmbedStage embeds every example's text and returns a new store carrying
// the vectors. All vectors must share one dimensionality.
func EmbedStage(ctx context.Context, store *Store, embedder Embedder) (*Store, error) {
	examples := store.Examples()
	if len(examples) == 0 {
		return store, nil
	}
	texts := make([]string, len(examples))
	for i, ex := range examples {
		texts[i] = ex.Text
	}
	vecs, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed texts: %w", err)
	}
	if len(vecs) != len(examples) {
		return nil, fmt.Errorf("embed texts: got %d vectors for %d texts", len(vecs), len(examples))
	}
	dim := len(vecs[0])
	byID := make(map[string][]float32, len(examples))
	for i, ex := range examples {
		if len(vecs[i]) == 0 || len(vecs[i]) != dim {
			return nil, fmt.Errorf("example %s: %d dims, want %d: %w", ex.ID, len(vecs[i]), dim, ErrDimensionMismatch)
		}
		byID[ex.ID] = vecs[i]
	}
	return store.Map(func(ex Example) (Example, error) {
		return ex.WithEmbedding(byID[ex.ID]), nil
	})
}
