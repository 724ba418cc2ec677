package network

import "fmt"

// MuZeroOutput is the result of an initial inference: policy and value plus the
// hidden state that recurrent inference would continue from.
type MuZeroOutput struct {
	Output
	HiddenState []float32
}

// MuZero evaluates observations through the representation and prediction
// functions. Backends without a hidden state output use the observation itself
// as the hidden state.
type MuZero struct {
	backend    Backend
	actionSize int
	batch      [][]float32
}

func NewMuZero(backend Backend, actionSize int) *MuZero {
	return &MuZero{backend: backend, actionSize: actionSize}
}

func (n *MuZero) Kind() Kind      { return KindMuZero }
func (n *MuZero) ActionSize() int { return n.actionSize }

// PushBackInitialData queues an observation and returns its index in the next
// InitialInference result.
func (n *MuZero) PushBackInitialData(features []float32) int {
	n.batch = append(n.batch, features)
	return len(n.batch) - 1
}

func (n *MuZero) InitialInference() ([]MuZeroOutput, error) {
	batch := n.batch
	n.batch = nil
	if len(batch) == 0 {
		return nil, nil
	}

	inf, err := n.backend.Infer(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to run initial inference: %w", err)
	}
	if err := checkInference(inf, len(batch), n.actionSize); err != nil {
		return nil, err
	}

	outputs := make([]MuZeroOutput, len(batch))
	for i := range outputs {
		hidden := batch[i]
		if inf.Hidden != nil {
			hidden = inf.Hidden[i]
		}
		outputs[i] = MuZeroOutput{
			Output:      Output{Policy: softmax(inf.Logits[i]), Value: inf.Values[i]},
			HiddenState: hidden,
		}
	}
	return outputs, nil
}

func (n *MuZero) Evaluate(features [][]float32) ([]Output, error) {
	for _, f := range features {
		n.PushBackInitialData(f)
	}
	results, err := n.InitialInference()
	if err != nil {
		return nil, err
	}
	outputs := make([]Output, len(results))
	for i, r := range results {
		outputs[i] = r.Output
	}
	return outputs, nil
}

func (n *MuZero) Close() error {
	return n.backend.Close()
}
