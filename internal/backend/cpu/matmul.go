package cpu

import (
	"fmt"

	"github.com/tandem-ml/tandem/internal/parallel"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// MatMul performs matrix multiplication.
// For 2D tensors: (M, K) @ (K, N) -> (M, N).
// Rows are distributed across workers; each row is a plain dot product loop.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]

	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	result, err := tensor.NewRaw(tensor.Shape{m, n}, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("matmul: failed to create result tensor: %v", err))
	}

	switch a.DType() {
	case tensor.Float32:
		matmulFloat32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n, cpu.cfg)
	case tensor.Float64:
		matmulFloat64(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n, cpu.cfg)
	case tensor.Float16, tensor.BFloat16:
		// Half inputs accumulate in float32.
		dst := make([]float32, m*n)
		matmulFloat32(dst, a.Float32Values(), b.Float32Values(), m, k, n, cpu.cfg)
		if err := result.SetFloat32Values(dst); err != nil {
			panic(err)
		}
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}

	return result
}

// matmulFloat32 performs matrix multiplication for float32.
// C[i,j] = sum_k A[i,k] * B[k,j]
// TODO: Integrate gonum/blas SGEMM for large matrices.
func matmulFloat32(c, a, b []float32, m, k, n int, cfg parallel.Config) {
	parallel.For(m, func(i int) {
		for j := 0; j < n; j++ {
			sum := float32(0)
			for kIdx := 0; kIdx < k; kIdx++ {
				sum += a[i*k+kIdx] * b[kIdx*n+j]
			}
			c[i*n+j] = sum
		}
	}, cfg)
}

func matmulFloat64(c, a, b []float64, m, k, n int, cfg parallel.Config) {
	parallel.For(m, func(i int) {
		for j := 0; j < n; j++ {
			sum := float64(0)
			for kIdx := 0; kIdx < k; kIdx++ {
				sum += a[i*k+kIdx] * b[kIdx*n+j]
			}
			c[i*n+j] = sum
		}
	}, cfg)
}

// Transpose swaps the two dimensions of a 2D tensor.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor) *tensor.RawTensor {
	shape := t.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("transpose: only 2D tensors supported, got %dD", len(shape)))
	}

	rows, cols := shape[0], shape[1]
	result, err := tensor.NewRaw(tensor.Shape{cols, rows}, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	switch t.DType() {
	case tensor.Float32:
		transposeFloat32(result.AsFloat32(), t.AsFloat32(), rows, cols, cpu.cfg)
	case tensor.Float64:
		src := t.AsFloat64()
		dst := result.AsFloat64()
		parallel.For2D(rows, cols, func(i, j int) {
			dst[j*rows+i] = src[i*cols+j]
		}, cpu.cfg)
	case tensor.Float16, tensor.BFloat16:
		// Raw half words move without decoding.
		src := t.AsUint16()
		dst := result.AsUint16()
		parallel.For2D(rows, cols, func(i, j int) {
			dst[j*rows+i] = src[i*cols+j]
		}, cpu.cfg)
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}

	return result
}

func transposeFloat32(dst, src []float32, rows, cols int, cfg parallel.Config) {
	parallel.For2D(rows, cols, func(i, j int) {
		dst[j*rows+i] = src[i*cols+j]
	}, cfg)
}
