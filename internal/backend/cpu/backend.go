// Package cpu implements the CPU backend with chunked parallel kernels.
package cpu

import (
	"fmt"

	"github.com/tandem-ml/tandem/internal/parallel"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
// Half precision operands are widened to float32, computed, and narrowed
// back on store, which matches how mixed precision hardware accumulates.
type CPUBackend struct {
	device tensor.Device
	cfg    parallel.Config
}

// New creates a new CPU backend with parallelism sized to the host.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		cfg:    parallel.DefaultConfig(),
	}
}

// NewSequential creates a CPU backend that never spawns worker goroutines.
// Used by tests that need deterministic single-threaded execution.
func NewSequential() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		cfg:    parallel.Config{Enabled: false},
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("add", a, b, opAdd)
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("sub", a, b, opSub)
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("mul", a, b, opMul)
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("div", a, b, opDiv)
}

// binaryOp allocates the result and dispatches to the fast same-shape
// path or the broadcasting path.
func (cpu *CPUBackend) binaryOp(name string, a, b *tensor.RawTensor, op binOp) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}

	if !needsBroadcast && a.Shape().Equal(b.Shape()) {
		cpu.vectorized(name, result, a, b, op)
	} else {
		cpu.withBroadcast(name, result, a, b, outShape, op)
	}

	return result
}
