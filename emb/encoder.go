// Package emb runs a transformer sentence encoder exported to ONNX.
//
// Text is tokenised with a HuggingFace tokenizer.json, the model's last
// hidden state is mean pooled over the attention mask and the result is L2
// normalised.
package emb

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// Config describes where the runtime, model and tokenizer live.
type Config struct {
	OrtDLL          string
	ModelPath       string
	TokenizerPath   string
	MaxSeqLen       int
	UseTokenTypeIDs bool
	OutputName      string
}

// Encoder turns text into a single embedding vector. It is safe for
// concurrent use; calls into the session are serialised.
type Encoder struct {
	mu      sync.Mutex
	cfg     Config
	tk      *tokenizer.Tokenizer
	session *ort.DynamicAdvancedSession
}

var (
	envMu   sync.Mutex
	envRefs int
)

// Init loads the runtime library, the tokenizer and the model.
func (e *Encoder) Init(cfg Config) error {
	if cfg.ModelPath == "" {
		return errors.New("emb: model path is required")
	}
	if cfg.TokenizerPath == "" {
		return errors.New("emb: tokenizer path is required")
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 256
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "last_hidden_state"
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return fmt.Errorf("emb: load tokenizer: %w", err)
	}
	if err := acquireEnv(cfg.OrtDLL); err != nil {
		return err
	}
	inputs := []string{"input_ids", "attention_mask"}
	if cfg.UseTokenTypeIDs {
		inputs = append(inputs, "token_type_ids")
	}
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputs, []string{cfg.OutputName}, nil)
	if err != nil {
		releaseEnv()
		return fmt.Errorf("emb: create session: %w", err)
	}
	e.cfg = cfg
	e.tk = tk
	e.session = session
	return nil
}

// Close releases the session and, with the last encoder, the runtime.
func (e *Encoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return
	}
	_ = e.session.Destroy()
	e.session = nil
	releaseEnv()
}

// Encode embeds one text.
func (e *Encoder) Encode(text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, errors.New("emb: encoder is not initialized")
	}
	enc, err := e.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("emb: tokenize: %w", err)
	}
	ids, mask, types := truncate(enc.Ids, enc.AttentionMask, enc.TypeIds, e.cfg.MaxSeqLen)
	if len(ids) == 0 {
		return nil, errors.New("emb: empty token sequence")
	}
	shape := ort.NewShape(1, int64(len(ids)))

	values := make([]ort.Value, 0, 3)
	defer func() {
		for _, v := range values {
			_ = v.Destroy()
		}
	}()
	idsT, err := ort.NewTensor(shape, toInt64(ids))
	if err != nil {
		return nil, fmt.Errorf("emb: input_ids tensor: %w", err)
	}
	values = append(values, idsT)
	maskT, err := ort.NewTensor(shape, toInt64(mask))
	if err != nil {
		return nil, fmt.Errorf("emb: attention_mask tensor: %w", err)
	}
	values = append(values, maskT)
	if e.cfg.UseTokenTypeIDs {
		typesT, err := ort.NewTensor(shape, toInt64(types))
		if err != nil {
			return nil, fmt.Errorf("emb: token_type_ids tensor: %w", err)
		}
		values = append(values, typesT)
	}

	outputs := []ort.Value{nil}
	if err := e.session.Run(values, outputs); err != nil {
		return nil, fmt.Errorf("emb: run: %w", err)
	}
	defer outputs[0].Destroy()
	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("emb: unexpected output type %T", outputs[0])
	}
	dims := hidden.GetShape()
	if len(dims) != 3 || dims[1] != int64(len(ids)) {
		return nil, fmt.Errorf("emb: unexpected output shape %v", dims)
	}
	return MeanPool(hidden.GetData(), mask, int(dims[2])), nil
}

// MeanPool averages the token vectors of a [seq, dim] row-major matrix
// where mask is non-zero and returns the L2 normalised result.
func MeanPool(hidden []float32, mask []int, dim int) []float32 {
	out := make([]float32, dim)
	if dim <= 0 {
		return out
	}
	var n float32
	for t, m := range mask {
		if m == 0 || (t+1)*dim > len(hidden) {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for d, x := range row {
			out[d] += x
		}
		n++
	}
	if n == 0 {
		return out
	}
	var sum float64
	for d := range out {
		out[d] /= n
		sum += float64(out[d]) * float64(out[d])
	}
	if norm := math.Sqrt(sum); norm > 0 {
		for d := range out {
			out[d] = float32(float64(out[d]) / norm)
		}
	}
	return out
}

func truncate(ids, mask, types []int, maxLen int) ([]int, []int, []int) {
	if len(mask) != len(ids) {
		mask = make([]int, len(ids))
		for i := range mask {
			mask[i] = 1
		}
	}
	if len(types) != len(ids) {
		types = make([]int, len(ids))
	}
	if maxLen > 0 && len(ids) > maxLen {
		ids, mask, types = ids[:maxLen], mask[:maxLen], types[:maxLen]
	}
	return ids, mask, types
}

func toInt64(v []int) []int64 {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = int64(x)
	}
	return out
}

func acquireEnv(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("emb: initialize onnxruntime: %w", err)
		}
	}
	envRefs++
	return nil
}

func releaseEnv() {
	envMu.Lock()
	defer envMu.Unlock()
	envRefs--
	if envRefs == 0 {
		_ = ort.DestroyEnvironment()
	}
}
