package network

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"leapfrog/config"
)

type fakeBackend struct {
	batches [][][]float32
	logits  []float32
	value   float32
	hidden  bool
	err     error
	closed  bool
}

func (b *fakeBackend) Infer(batch [][]float32) (Inference, error) {
	b.batches = append(b.batches, batch)
	if b.err != nil {
		return Inference{}, b.err
	}
	var inf Inference
	for _, f := range batch {
		inf.Logits = append(inf.Logits, append([]float32(nil), b.logits...))
		inf.Values = append(inf.Values, b.value)
		if b.hidden {
			inf.Hidden = append(inf.Hidden, []float32{f[0] * 2})
		}
	}
	return inf, nil
}

func (b *fakeBackend) Close() error {
	b.closed = true
	return nil
}

func TestSoftmax(t *testing.T) {
	probs := softmax([]float32{0, 0, 0, 0})
	for _, p := range probs {
		require.InDelta(t, 0.25, p, 1e-6)
	}

	probs = softmax([]float32{1000, 0})
	require.InDelta(t, 1.0, probs[0], 1e-6, "large logits should not overflow")
	require.InDelta(t, 0.0, probs[1], 1e-6)

	require.Nil(t, softmax(nil))
}

func TestAlphaZero(t *testing.T) {
	t.Run("forward answers every pushed tensor in order", func(t *testing.T) {
		backend := &fakeBackend{logits: []float32{0, 0, 0}, value: 0.5}
		n := NewAlphaZero(backend, 3)

		require.Equal(t, 0, n.PushBack([]float32{1}))
		require.Equal(t, 1, n.PushBack([]float32{2}))
		outputs, err := n.Forward()
		require.NoError(t, err)
		require.Len(t, outputs, 2)
		require.Len(t, backend.batches, 1)
		require.Len(t, backend.batches[0], 2)
		require.InDelta(t, 1.0/3, outputs[1].Policy[2], 1e-6)
		require.Equal(t, float32(0.5), outputs[0].Value)

		require.Equal(t, 0, n.PushBack([]float32{3}), "forward should clear the queue")
	})

	t.Run("empty forward", func(t *testing.T) {
		backend := &fakeBackend{}
		outputs, err := NewAlphaZero(backend, 3).Forward()
		require.NoError(t, err)
		require.Empty(t, outputs)
		require.Empty(t, backend.batches)
	})

	t.Run("backend errors are wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewAlphaZero(&fakeBackend{err: boom}, 3).Evaluate([][]float32{{1}})
		require.ErrorIs(t, err, boom)
	})

	t.Run("policy size mismatch", func(t *testing.T) {
		_, err := NewAlphaZero(&fakeBackend{logits: []float32{0}}, 3).Evaluate([][]float32{{1}})
		require.ErrorContains(t, err, "policy of size 1")
	})
}

func TestMuZero(t *testing.T) {
	t.Run("hidden state falls back to the observation", func(t *testing.T) {
		n := NewMuZero(&fakeBackend{logits: []float32{0, 0}}, 2)
		require.Equal(t, 0, n.PushBackInitialData([]float32{7, 8}))
		outputs, err := n.InitialInference()
		require.NoError(t, err)
		require.Equal(t, []float32{7, 8}, outputs[0].HiddenState)
	})

	t.Run("hidden state from the backend", func(t *testing.T) {
		n := NewMuZero(&fakeBackend{logits: []float32{0, 0}, hidden: true}, 2)
		n.PushBackInitialData([]float32{3})
		outputs, err := n.InitialInference()
		require.NoError(t, err)
		require.Equal(t, []float32{6}, outputs[0].HiddenState)
	})

	t.Run("evaluate drops the hidden state", func(t *testing.T) {
		n := NewMuZero(&fakeBackend{logits: []float32{1, 1}, value: -0.25}, 2)
		outputs, err := n.Evaluate([][]float32{{1}, {2}})
		require.NoError(t, err)
		require.Len(t, outputs, 2)
		require.Equal(t, float32(-0.25), outputs[1].Value)
		require.InDelta(t, 0.5, outputs[1].Policy[0], 1e-6)
	})
}

func TestNonFiniteInference(t *testing.T) {
	t.Run("infinite logits are rejected", func(t *testing.T) {
		backend := &fakeBackend{logits: []float32{0, float32(math.Inf(1)), 0}}
		_, err := NewAlphaZero(backend, 3).Evaluate([][]float32{{1}})
		require.ErrorContains(t, err, "non-finite logit")
	})

	t.Run("NaN values are rejected", func(t *testing.T) {
		backend := &fakeBackend{logits: []float32{0, 0, 0}, value: float32(math.NaN())}
		_, err := NewMuZero(backend, 3).Evaluate([][]float32{{1}})
		require.ErrorContains(t, err, "non-finite value")
	})
}

func TestNew(t *testing.T) {
	backend := &fakeBackend{}
	require.Equal(t, KindAlphaZero, New(KindAlphaZero, backend, 4).Kind())
	require.Equal(t, KindMuZero, New(KindMuZero, backend, 4).Kind())
	require.Equal(t, 4, New(KindMuZero, backend, 4).ActionSize())
	require.Panics(t, func() { New(Kind("resnet"), backend, 4) })

	require.NoError(t, New(KindAlphaZero, backend, 4).Close())
	require.True(t, backend.closed)
}

func TestCreate(t *testing.T) {
	shape := BoardShape(8)
	require.Equal(t, Shape{Channels: 18, BoardSize: 8, ActionSize: 512}, shape)

	t.Run("no model file selects the uniform prior", func(t *testing.T) {
		cfg := config.Default()
		n, err := Create(cfg, shape)
		require.NoError(t, err)
		require.Equal(t, KindAlphaZero, n.Kind())

		outputs, err := n.Evaluate([][]float32{make([]float32, 18*64)})
		require.NoError(t, err)
		require.Len(t, outputs[0].Policy, 512)
		require.InDelta(t, 1.0/512, outputs[0].Policy[100], 1e-6)
		require.Equal(t, float32(0), outputs[0].Value)
	})

	t.Run("muzero kind", func(t *testing.T) {
		cfg := config.Default()
		cfg.NNTypeName = config.NetworkMuZero
		n, err := Create(cfg, shape)
		require.NoError(t, err)
		require.IsType(t, &MuZero{}, n)
	})

	t.Run("missing model file", func(t *testing.T) {
		cfg := config.Default()
		cfg.NNFileName = filepath.Join(t.TempDir(), "missing.onnx")
		_, err := Create(cfg, shape)
		require.ErrorContains(t, err, "missing.onnx")
	})
}
