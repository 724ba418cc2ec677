package network

import (
	"fmt"
	"math"

	"leapfrog/config"
	"leapfrog/game"
)

// Kind tags a network architecture. The set is closed.
type Kind string

const (
	KindAlphaZero Kind = config.NetworkAlphaZero
	KindMuZero    Kind = config.NetworkMuZero
)

// Output is a policy over the whole action space and a value in [-1, 1] from
// the perspective of the side to move.
type Output struct {
	Policy []float32
	Value  float32
}

// Network evaluates batches of feature tensors. Each variant maps Evaluate
// onto its own inference protocol.
type Network interface {
	Kind() Kind
	ActionSize() int
	Evaluate(features [][]float32) ([]Output, error)
	Close() error
}

// Shape describes the tensors a network consumes and produces.
type Shape struct {
	Channels   int
	BoardSize  int
	ActionSize int
}

// BoardShape returns the tensor shapes of a size×size leapfrog board.
func BoardShape(size int) Shape {
	return Shape{
		Channels:   game.NumInputPlanes,
		BoardSize:  size,
		ActionSize: game.NumDirections * size * size,
	}
}

// New wraps backend in the variant named by kind. It panics on an unknown kind.
func New(kind Kind, backend Backend, actionSize int) Network {
	switch kind {
	case KindAlphaZero:
		return NewAlphaZero(backend, actionSize)
	case KindMuZero:
		return NewMuZero(backend, actionSize)
	}
	panic(fmt.Sprintf("unsupported network kind %q", kind))
}

// Create builds the network described by cfg. An empty nn_file_name selects
// the uniform backend.
func Create(cfg *config.Config, shape Shape) (Network, error) {
	kind := Kind(cfg.NNTypeName)

	var backend Backend
	if cfg.NNFileName == "" {
		backend = NewUniformBackend(shape.ActionSize)
	} else {
		outputs := []string{PolicyOutput, ValueOutput}
		if kind == KindMuZero {
			outputs = append(outputs, HiddenStateOutput)
		}
		b, err := NewONNXBackend(cfg.NNFileName, cfg.NNOnnxLibraryPath, shape, outputs)
		if err != nil {
			return nil, fmt.Errorf("failed to load network %s: %w", cfg.NNFileName, err)
		}
		backend = b
	}
	return New(kind, backend, shape.ActionSize), nil
}

func softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	probs := make([]float32, len(logits))
	sum := 0.0
	for i, l := range logits {
		e := math.Exp(float64(l - maxLogit))
		probs[i] = float32(e)
		sum += e
	}
	for i := range probs {
		probs[i] = float32(float64(probs[i]) / sum)
	}
	return probs
}

func checkInference(inf Inference, batch, actionSize int) error {
	if len(inf.Logits) != batch || len(inf.Values) != batch {
		return fmt.Errorf("backend returned %d policies and %d values for a batch of %d", len(inf.Logits), len(inf.Values), batch)
	}
	for _, logits := range inf.Logits {
		if len(logits) != actionSize {
			return fmt.Errorf("backend returned a policy of size %d, want %d", len(logits), actionSize)
		}
	}
	if inf.Hidden != nil && len(inf.Hidden) != batch {
		return fmt.Errorf("backend returned %d hidden states for a batch of %d", len(inf.Hidden), batch)
	}
	for i := 0; i < batch; i++ {
		if !finite(inf.Values[i]) {
			return fmt.Errorf("backend returned a non-finite value %v for entry %d", inf.Values[i], i)
		}
		for id, l := range inf.Logits[i] {
			if !finite(l) {
				return fmt.Errorf("backend returned a non-finite logit %v at action %d for entry %d", l, id, i)
			}
		}
	}
	return nil
}

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}
