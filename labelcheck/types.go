package labelcheck

import "encoding/json"

// NoiseCluster is the cluster identifier clusterers emit for outliers that
// belong to no cluster.
const NoiseCluster = "-1"

// Label pairs an identifier with a confidence score.
type Label struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Example is one unit of text under analysis. Values are treated as
// immutable: stages return updated copies through the With* helpers.
type Example struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"`
	Embedding       []float32 `json:"embedding,omitempty"`
	AssignedLabels  []Label   `json:"assignedLabels,omitempty"`
	ClusterLabels   []Label   `json:"clusterLabels,omitempty"`
	CandidateLabels []Label   `json:"candidateLabels,omitempty"`
}

// WithEmbedding returns a copy of e carrying vec.
func (e Example) WithEmbedding(vec []float32) Example {
	out := e.clone()
	out.Embedding = cloneVector(vec)
	return out
}

// WithClusterLabels returns a copy of e carrying the given cluster labels.
func (e Example) WithClusterLabels(labels []Label) Example {
	out := e.clone()
	out.ClusterLabels = cloneLabels(labels)
	return out
}

// WithCandidateLabels returns a copy of e carrying the given candidates.
func (e Example) WithCandidateLabels(labels []Label) Example {
	out := e.clone()
	out.CandidateLabels = cloneLabels(labels)
	return out
}

func (e Example) clone() Example {
	out := e
	if e.Embedding != nil {
		out.Embedding = cloneVector(e.Embedding)
	}
	out.AssignedLabels = cloneLabels(e.AssignedLabels)
	out.ClusterLabels = cloneLabels(e.ClusterLabels)
	out.CandidateLabels = cloneLabels(e.CandidateLabels)
	return out
}

func cloneLabels(labels []Label) []Label {
	if labels == nil {
		return nil
	}
	out := make([]Label, len(labels))
	copy(out, labels)
	return out
}

// Counts maps a label identifier to an occurrence count. Missing keys count 0.
type Counts map[string]int

// Get returns the count for id, or 0 when id is absent.
func (c Counts) Get(id string) int {
	return c[id]
}

// Scores maps a label identifier to a score. Missing keys score 0.
type Scores map[string]float64

// Get returns the score for id, or 0 when id is absent.
func (s Scores) Get(id string) float64 {
	return s[id]
}

// EmbedderBackend selects the embedding implementation.
type EmbedderBackend string

const (
	// BackendORT runs a local ONNX sentence encoder.
	BackendORT EmbedderBackend = "ort"
	// BackendOpenAI calls an OpenAI-compatible embeddings endpoint.
	BackendOpenAI EmbedderBackend = "openai"
)

// ClusterAlgorithm selects the clustering implementation.
type ClusterAlgorithm string

const (
	// AlgorithmDBSCAN runs density based clustering with cosine distance.
	AlgorithmDBSCAN ClusterAlgorithm = "dbscan"
	// AlgorithmLeader runs single pass leader clustering.
	AlgorithmLeader ClusterAlgorithm = "leader"
)

// IDScheme controls how ingestion assigns example ids when the input has no
// id column.
type IDScheme string

const (
	// IDSchemeIndex uses the prefix followed by the row or line number.
	IDSchemeIndex IDScheme = "index"
	// IDSchemeUUID uses a name based UUID derived from prefix, row and text.
	IDSchemeUUID IDScheme = "uuid"
)

// EmbedderConfig configures the embedding collaborator and its cache.
type EmbedderConfig struct {
	Backend EmbedderBackend `json:"backend"`

	OrtDLL          string `json:"ortDll"`
	ModelPath       string `json:"modelPath"`
	TokenizerPath   string `json:"tokenizerPath"`
	MaxSeqLen       int    `json:"maxSeqLen"`
	UseTokenTypeIDs bool   `json:"useTokenTypeIds"`
	OutputName      string `json:"outputName"`

	OpenAIModel string `json:"openaiModel"`
	BaseURL     string `json:"baseUrl"`
	APIKeyEnv   string `json:"apiKeyEnv"`
	Dimension   int    `json:"dimension"`

	CacheDir string `json:"cacheDir"`
	ModelID  string `json:"modelId"`
}

// ClusterConfig controls the clustering collaborator.
type ClusterConfig struct {
	Algorithm  ClusterAlgorithm `json:"algorithm"`
	Threshold  float32          `json:"threshold"`
	MinSamples int              `json:"minSamples"`
}

// InputConfig controls ingestion.
type InputConfig struct {
	IDPrefix       string   `json:"idPrefix"`
	IDScheme       IDScheme `json:"idScheme"`
	LabelSeparator string   `json:"labelSeparator"`
	// Columns lists the header names tried when a column is not given
	// explicitly. Empty lists fall back to the built-in candidates.
	Columns ColumnCandidates `json:"columns"`
}

// DefaultMinScore is the suspect threshold used when none is configured.
const DefaultMinScore = 0.1

// Config aggregates runtime settings persisted to config.json or config.yaml.
type Config struct {
	Embedder EmbedderConfig `json:"embedder"`
	Cluster  ClusterConfig  `json:"cluster"`
	Input    InputConfig    `json:"input"`
	// MinScore is the assigned-label score below which an example is
	// reported as a suspected mislabel. nil selects DefaultMinScore; an
	// explicit 0 disables suspect reporting.
	MinScore *float64 `json:"minScore,omitempty"`
}

// SuspectThreshold returns the configured MinScore or DefaultMinScore.
func (c Config) SuspectThreshold() float64 {
	if c.MinScore == nil {
		return DefaultMinScore
	}
	return *c.MinScore
}

// WithMinScore returns a copy of c with MinScore set to v.
func (c Config) WithMinScore(v float64) Config {
	out := c.Clone()
	out.MinScore = &v
	return out
}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	buf, _ := json.Marshal(c)
	var out Config
	_ = json.Unmarshal(buf, &out)
	return out
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Embedder.Backend == "" {
		c.Embedder.Backend = BackendORT
	}
	if c.Embedder.MaxSeqLen == 0 {
		c.Embedder.MaxSeqLen = 256
	}
	if c.Embedder.OutputName == "" {
		c.Embedder.OutputName = "last_hidden_state"
	}
	if c.Embedder.OpenAIModel == "" {
		c.Embedder.OpenAIModel = "text-embedding-3-small"
	}
	if c.Embedder.APIKeyEnv == "" {
		c.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Cluster.Algorithm == "" {
		c.Cluster.Algorithm = AlgorithmDBSCAN
	}
	if c.Cluster.Threshold == 0 {
		c.Cluster.Threshold = 0.5
	}
	if c.Cluster.MinSamples == 0 {
		c.Cluster.MinSamples = 2
	}
	if c.Input.IDScheme == "" {
		c.Input.IDScheme = IDSchemeIndex
	}
	if c.Input.LabelSeparator == "" {
		c.Input.LabelSeparator = "|"
	}
	c.Input.Columns = c.Input.Columns.withDefaults()
	if c.MinScore == nil {
		v := DefaultMinScore
		c.MinScore = &v
	}
}
