package network

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Tensor names the exported models use.
const (
	InputName         = "x"
	PolicyOutput      = "policy"
	ValueOutput       = "value"
	HiddenStateOutput = "hidden_state"
)

// onnxruntime keeps one environment per process.
var runtimeMu sync.Mutex

func initRuntime(libraryPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}
	return nil
}

type onnxBackend struct {
	session     *ort.DynamicAdvancedSession
	shape       Shape
	outputNames []string
}

// NewONNXBackend opens a model with a dynamic batch dimension. The input is
// [batch, channels, size, size]; outputs are allocated by the runtime per call.
func NewONNXBackend(path, libraryPath string, shape Shape, outputNames []string) (Backend, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open model: %w", err)
	}
	if err := initRuntime(libraryPath); err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(path, []string{InputName}, outputNames, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &onnxBackend{session: session, shape: shape, outputNames: outputNames}, nil
}

func (b *onnxBackend) Infer(batch [][]float32) (Inference, error) {
	n := len(batch)
	width := b.shape.Channels * b.shape.BoardSize * b.shape.BoardSize
	data := make([]float32, 0, n*width)
	for _, f := range batch {
		if len(f) != width {
			return Inference{}, fmt.Errorf("feature tensor has %d values, want %d", len(f), width)
		}
		data = append(data, f...)
	}

	size := int64(b.shape.BoardSize)
	input, err := ort.NewTensor(ort.NewShape(int64(n), int64(b.shape.Channels), size, size), data)
	if err != nil {
		return Inference{}, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := make([]ort.Value, len(b.outputNames))
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()
	if err := b.session.Run([]ort.Value{input}, outputs); err != nil {
		return Inference{}, fmt.Errorf("failed to run session: %w", err)
	}

	var inf Inference
	if inf.Logits, err = rows(outputs[0], n); err != nil {
		return Inference{}, fmt.Errorf("bad %s output: %w", PolicyOutput, err)
	}
	values, err := rows(outputs[1], n)
	if err != nil {
		return Inference{}, fmt.Errorf("bad %s output: %w", ValueOutput, err)
	}
	inf.Values = make([]float32, n)
	for i, v := range values {
		inf.Values[i] = v[0]
	}
	if len(outputs) > 2 {
		if inf.Hidden, err = rows(outputs[2], n); err != nil {
			return Inference{}, fmt.Errorf("bad %s output: %w", HiddenStateOutput, err)
		}
	}
	return inf, nil
}

func (b *onnxBackend) Close() error {
	return b.session.Destroy()
}

// rows splits a [batch, ...] output tensor into one copied row per batch entry.
func rows(v ort.Value, n int) ([][]float32, error) {
	t, ok := v.(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected tensor type %T", v)
	}
	data := t.GetData()
	if n == 0 || len(data) == 0 || len(data)%n != 0 {
		return nil, fmt.Errorf("cannot split %d values into %d rows", len(data), n)
	}
	width := len(data) / n
	out := make([][]float32, n)
	for i := range out {
		out[i] = append([]float32(nil), data[i*width:(i+1)*width]...)
	}
	return out, nil
}
