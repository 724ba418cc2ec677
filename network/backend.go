package network

// Inference is the raw result of a backend call: one row of policy logits and
// one value per batch entry. Hidden is nil unless the model exports a hidden state.
type Inference struct {
	Logits [][]float32
	Values []float32
	Hidden [][]float32
}

// Backend runs a model over a batch of flattened feature tensors.
type Backend interface {
	Infer(batch [][]float32) (Inference, error)
	Close() error
}

type uniformBackend struct {
	actionSize int
}

// NewUniformBackend returns a backend with zero logits and a zero value for
// every input, i.e. a uniform prior. It lets the engine play without a model.
func NewUniformBackend(actionSize int) Backend {
	return uniformBackend{actionSize: actionSize}
}

func (b uniformBackend) Infer(batch [][]float32) (Inference, error) {
	inf := Inference{
		Logits: make([][]float32, len(batch)),
		Values: make([]float32, len(batch)),
	}
	for i := range batch {
		inf.Logits[i] = make([]float32, b.actionSize)
	}
	return inf, nil
}

func (b uniformBackend) Close() error { return nil }
