package network

import "fmt"

// AlphaZero queues feature tensors with PushBack and evaluates the queue in
// one Forward pass.
type AlphaZero struct {
	backend    Backend
	actionSize int
	batch      [][]float32
}

func NewAlphaZero(backend Backend, actionSize int) *AlphaZero {
	return &AlphaZero{backend: backend, actionSize: actionSize}
}

func (n *AlphaZero) Kind() Kind      { return KindAlphaZero }
func (n *AlphaZero) ActionSize() int { return n.actionSize }

// PushBack queues features and returns their index in the next Forward result.
func (n *AlphaZero) PushBack(features []float32) int {
	n.batch = append(n.batch, features)
	return len(n.batch) - 1
}

// Forward evaluates and clears the queue.
func (n *AlphaZero) Forward() ([]Output, error) {
	batch := n.batch
	n.batch = nil
	if len(batch) == 0 {
		return nil, nil
	}

	inf, err := n.backend.Infer(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to run forward pass: %w", err)
	}
	if err := checkInference(inf, len(batch), n.actionSize); err != nil {
		return nil, err
	}

	outputs := make([]Output, len(batch))
	for i := range outputs {
		outputs[i] = Output{Policy: softmax(inf.Logits[i]), Value: inf.Values[i]}
	}
	return outputs, nil
}

func (n *AlphaZero) Evaluate(features [][]float32) ([]Output, error) {
	for _, f := range features {
		n.PushBack(f)
	}
	return n.Forward()
}

func (n *AlphaZero) Close() error {
	return n.backend.Close()
}
