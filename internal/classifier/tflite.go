package classifier

import (
	"context"
	"runtime"
	"sync"

	tflite "github.com/mattn/go-tflite"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/fingerspell/internal/features"
)

// TFLite runs an exported TensorFlow Lite classifier. The model takes a
// single [1, 42] float32 input and produces one float32 score per label.
type TFLite struct {
	mu          sync.Mutex
	labels      Labels
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	outputs     int
}

// TFLiteConfig configures NewTFLite.
type TFLiteConfig struct {
	ModelPath string
	Labels    Labels
	// Threads defaults to the number of CPUs.
	Threads int
	Logger  logrus.FieldLogger
}

// NewTFLite loads the model and checks its tensors against the feature
// width and the label count.
func NewTFLite(cfg TFLiteConfig) (*TFLite, error) {
	if cfg.Labels.Len() == 0 {
		return nil, errors.New("tflite classifier needs labels")
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	model := tflite.NewModelFromFile(cfg.ModelPath)
	if model == nil {
		return nil, errors.Errorf("failed to load model %s", cfg.ModelPath)
	}

	options := tflite.NewInterpreterOptions()
	if options == nil {
		model.Delete()
		return nil, errors.New("interpreter options failed to be created")
	}
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, _ interface{}) {
		log.WithField("model", cfg.ModelPath).Warn(msg)
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return nil, errors.New("failed to create interpreter")
	}

	c := &TFLite{
		labels:      cfg.Labels,
		model:       model,
		options:     options,
		interpreter: interpreter,
	}

	if status := interpreter.AllocateTensors(); status != tflite.OK {
		c.Close()
		return nil, errors.New("failed to allocate tensors")
	}
	if err := c.checkTensors(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *TFLite) checkTensors() error {
	input := c.interpreter.GetInputTensor(0)
	if input == nil {
		return errors.New("model has no input tensor")
	}
	if input.Type() != tflite.Float32 {
		return errors.Errorf("input tensor is %s, want float32", input.Type())
	}
	if n := int(input.ByteSize()) / 4; n != features.Width {
		return errors.Errorf("input tensor holds %d values, want %d", n, features.Width)
	}

	if c.interpreter.GetOutputTensorCount() < 1 {
		return errors.New("model has no output tensor")
	}
	output := c.interpreter.GetOutputTensor(0)
	if output.Type() != tflite.Float32 {
		return errors.Errorf("output tensor is %s, want float32", output.Type())
	}
	c.outputs = int(output.ByteSize()) / 4
	if c.outputs != c.labels.Len() {
		return errors.Errorf("model has %d outputs for %d labels", c.outputs, c.labels.Len())
	}
	return nil
}

// Classify implements Classifier.
func (c *TFLite) Classify(ctx context.Context, v features.Vector) (Distribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interpreter == nil {
		return nil, errors.Wrap(ErrAdapterFailure, "classifier closed")
	}

	if status := c.interpreter.GetInputTensor(0).CopyFromBuffer(v.Float32s()); status != tflite.OK {
		return nil, errors.Wrap(ErrAdapterFailure, "copying to buffer failed")
	}
	if status := c.interpreter.Invoke(); status != tflite.OK {
		return nil, errors.Wrap(ErrAdapterFailure, "invoke failed")
	}

	out := make([]float32, c.outputs)
	if status := c.interpreter.GetOutputTensor(0).CopyToBuffer(out); status != tflite.OK {
		return nil, errors.Wrap(ErrAdapterFailure, "copying from buffer failed")
	}

	raw := make([]float64, len(out))
	for i, p := range out {
		raw[i] = float64(p)
	}
	return probabilities(raw), nil
}

// Labels implements Classifier.
func (c *TFLite) Labels() Labels { return c.labels }

// Close releases the interpreter and the model.
func (c *TFLite) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interpreter != nil {
		c.interpreter.Delete()
		c.interpreter = nil
	}
	if c.options != nil {
		c.options.Delete()
		c.options = nil
	}
	if c.model != nil {
		c.model.Delete()
		c.model = nil
	}
	return nil
}
