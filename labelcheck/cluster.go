package labelcheck

import (
	"fmt"
	"strconv"
)

// Assignment is a clusterer's verdict for one vector.
type Assignment struct {
	ClusterID  string
	Membership float64
}

// Clusterer groups vectors. It returns one assignment per input vector in
// input order; outliers get NoiseCluster.
type Clusterer interface {
	Cluster(vectors [][]float32) ([]Assignment, error)
}

// NewClusterer builds the clusterer selected by cfg.
func NewClusterer(cfg ClusterConfig) (Clusterer, error) {
	switch cfg.Algorithm {
	case AlgorithmDBSCAN, "":
		return &DBSCAN{Threshold: cfg.Threshold, MinSamples: cfg.MinSamples}, nil
	case AlgorithmLeader:
		return &Leader{Threshold: cfg.Threshold, MinSamples: cfg.MinSamples}, nil
	default:
		return nil, fmt.Errorf("unknown cluster algorithm %q", cfg.Algorithm)
	}
}

// ClusterStage clusters the embeddings of every example and returns a new
// store where each example carries exactly one cluster label.
func ClusterStage(store *Store, clusterer Clusterer) (*Store, error) {
	examples := store.Examples()
	vectors := make([][]float32, len(examples))
	for i, ex := range examples {
		if len(ex.Embedding) == 0 {
			return nil, fmt.Errorf("example %s: %w", ex.ID, ErrMissingEmbedding)
		}
		vectors[i] = ex.Embedding
	}
	assignments, err := clusterer.Cluster(vectors)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	if len(assignments) != len(examples) {
		return nil, fmt.Errorf("cluster: got %d assignments for %d vectors", len(assignments), len(examples))
	}
	byID := make(map[string]Assignment, len(examples))
	for i, ex := range examples {
		byID[ex.ID] = assignments[i]
	}
	return store.Map(func(ex Example) (Example, error) {
		a := byID[ex.ID]
		return ex.WithClusterLabels([]Label{{ID: a.ClusterID, Score: a.Membership}}), nil
	})
}

// DBSCAN clusters by density using cosine distance. Two vectors are
// neighbours when their cosine similarity is at least Threshold.
type DBSCAN struct {
	Threshold  float32
	MinSamples int
}

// Cluster implements Clusterer. Cluster ids are "0", "1", ... in discovery
// order. Membership is the cosine similarity to the cluster centroid,
// clamped to [0, 1]; noise has membership 0.
func (d *DBSCAN) Cluster(vectors [][]float32) ([]Assignment, error) {
	normed, err := normalizeAll(vectors)
	if err != nil {
		return nil, err
	}
	if len(normed) == 0 {
		return []Assignment{}, nil
	}
	minPts := d.MinSamples
	if minPts <= 0 {
		minPts = 2
	}

	idx := NewInMemoryIndex()
	items := make([]VectorItem, len(normed))
	for i, v := range normed {
		items[i] = VectorItem{ID: strconv.Itoa(i), Vector: v}
	}
	idx.Replace(items)

	const (
		undefined = 0
		noise     = -1
	)
	labels := make([]int, len(normed))
	clusterID := 0
	for i := range normed {
		if labels[i] != undefined {
			continue
		}
		neighbors := idx.Within(normed[i], d.Threshold)
		if len(neighbors) < minPts {
			labels[i] = noise
			continue
		}
		clusterID++
		labels[i] = clusterID
		seed := make([]int, 0, len(neighbors))
		for _, h := range neighbors {
			if h.Pos != i {
				seed = append(seed, h.Pos)
			}
		}
		for len(seed) > 0 {
			q := seed[0]
			seed = seed[1:]
			if labels[q] == noise {
				labels[q] = clusterID
			}
			if labels[q] != undefined {
				continue
			}
			labels[q] = clusterID
			qNeighbors := idx.Within(normed[q], d.Threshold)
			if len(qNeighbors) >= minPts {
				for _, h := range qNeighbors {
					seed = append(seed, h.Pos)
				}
			}
		}
	}

	groups := make([][]int, clusterID)
	for i, l := range labels {
		if l > 0 {
			groups[l-1] = append(groups[l-1], i)
		}
	}
	out := make([]Assignment, len(normed))
	for i := range out {
		out[i] = Assignment{ClusterID: NoiseCluster}
	}
	for c, members := range groups {
		assignMembers(out, normed, members, strconv.Itoa(c))
	}
	return out, nil
}

// Leader clusters in a single pass: each vector joins the first cluster
// whose centroid is at least Threshold similar, otherwise it starts a new
// cluster. Clusters smaller than MinSamples are demoted to noise.
type Leader struct {
	Threshold  float32
	MinSamples int
}

type leaderCluster struct {
	sum     []float64
	repr    []float32
	members []int
}

// Cluster implements Clusterer.
func (l *Leader) Cluster(vectors [][]float32) ([]Assignment, error) {
	normed, err := normalizeAll(vectors)
	if err != nil {
		return nil, err
	}
	if len(normed) == 0 {
		return []Assignment{}, nil
	}
	clusters := make([]*leaderCluster, 0, len(normed))
	for i, v := range normed {
		var target *leaderCluster
		for _, c := range clusters {
			if cosineSimilarity(v, c.repr) >= l.Threshold {
				target = c
				break
			}
		}
		if target == nil {
			target = &leaderCluster{sum: make([]float64, len(v))}
			clusters = append(clusters, target)
		}
		target.members = append(target.members, i)
		repr := make([]float32, len(v))
		for d := range v {
			target.sum[d] += float64(v[d])
			repr[d] = float32(target.sum[d])
		}
		target.repr = l2Normalize(repr)
	}

	minPts := l.MinSamples
	if minPts <= 0 {
		minPts = 2
	}
	out := make([]Assignment, len(normed))
	for i := range out {
		out[i] = Assignment{ClusterID: NoiseCluster}
	}
	next := 0
	for _, c := range clusters {
		if len(c.members) < minPts {
			continue
		}
		assignMembers(out, normed, c.members, strconv.Itoa(next))
		next++
	}
	return out, nil
}

// assignMembers labels members with id and scores each by its similarity to
// the members' centroid.
func assignMembers(out []Assignment, normed [][]float32, members []int, id string) {
	centroid := make([]float32, len(normed[members[0]]))
	for _, m := range members {
		for d, x := range normed[m] {
			centroid[d] += x
		}
	}
	centroid = l2Normalize(centroid)
	for _, m := range members {
		out[m] = Assignment{
			ClusterID:  id,
			Membership: clamp01(float64(cosineSimilarity(normed[m], centroid))),
		}
	}
}

func normalizeAll(vectors [][]float32) ([][]float32, error) {
	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("vector %d: %w", i, ErrMissingEmbedding)
		}
		if len(v) != len(vectors[0]) {
			return nil, fmt.Errorf("vector %d has %d dims, want %d: %w", i, len(v), len(vectors[0]), ErrDimensionMismatch)
		}
		out[i] = l2Normalize(v)
	}
	return out, nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
