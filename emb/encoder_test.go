package emb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanPoolSkipsMaskedTokens(t *testing.T) {
	hidden := []float32{
		3, 0,
		0, 4,
		100, 100,
	}
	vec := MeanPool(hidden, []int{1, 1, 0}, 2)
	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)
}

func TestMeanPoolIsUnitLength(t *testing.T) {
	hidden := []float32{1, 2, 3, 4, 5, 6}
	vec := MeanPool(hidden, []int{1, 1}, 3)
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestMeanPoolAllMasked(t *testing.T) {
	vec := MeanPool([]float32{1, 1}, []int{0}, 2)
	assert.Equal(t, []float32{0, 0}, vec)
}

func TestTruncate(t *testing.T) {
	ids, mask, types := truncate([]int{1, 2, 3, 4}, nil, nil, 3)
	assert.Equal(t, []int{1, 2, 3}, ids)
	assert.Equal(t, []int{1, 1, 1}, mask)
	assert.Equal(t, []int{0, 0, 0}, types)
}

func TestEncodeWithoutInit(t *testing.T) {
	var e Encoder
	_, err := e.Encode("hello")
	require.Error(t, err)
}

func TestInitRequiresPaths(t *testing.T) {
	var e Encoder
	require.Error(t, e.Init(Config{TokenizerPath: "tokenizer.json"}))
	require.Error(t, e.Init(Config{ModelPath: "model.onnx"}))
}
