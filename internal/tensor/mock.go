package tensor

import (
	"fmt"
	"math"
)

// Verify that MockBackend implements Backend.
var _ Backend = (*MockBackend)(nil)

// MockBackend is a naive reference backend for tests.
// Every kernel runs element-by-element in float64 with no chunking or
// fast paths, so real backends can be verified against it.
type MockBackend struct{}

// NewMockBackend creates a new MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Name returns the backend name.
func (m *MockBackend) Name() string {
	return "mock"
}

// Device returns the device type.
func (m *MockBackend) Device() Device {
	return CPU
}

// Add performs element-wise addition with broadcasting.
func (m *MockBackend) Add(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (m *MockBackend) Sub(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (m *MockBackend) Mul(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (m *MockBackend) Div(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x / y })
}

// elementWise performs element-wise operations with broadcasting.
func (m *MockBackend) elementWise(a, b *RawTensor, op func(float64, float64) float64) *RawTensor {
	outShape, _, err := BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}

	result, err := NewRaw(outShape, a.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	aData := m.toFloat64Slice(a)
	bData := m.toFloat64Slice(b)
	resultData := make([]float64, outShape.NumElements())

	for i := range resultData {
		aIdx := m.broadcastIndex(i, outShape, a.Shape())
		bIdx := m.broadcastIndex(i, outShape, b.Shape())
		resultData[i] = op(aData[aIdx], bData[bIdx])
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// MatMul performs naive 2D matrix multiplication.
func (m *MockBackend) MatMul(a, b *RawTensor) *RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic("MatMul only supports 2D tensors in mock backend")
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("incompatible shapes for MatMul: %v @ %v", aShape, bShape))
	}

	M, K, N := aShape[0], aShape[1], bShape[1]
	result, err := NewRaw(Shape{M, N}, a.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	aData := m.toFloat64Slice(a)
	bData := m.toFloat64Slice(b)
	resultData := make([]float64, M*N)

	for i := 0; i < M; i++ {
		for j := 0; j < N; j++ {
			sum := 0.0
			for k := 0; k < K; k++ {
				sum += aData[i*K+k] * bData[k*N+j]
			}
			resultData[i*N+j] = sum
		}
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// Transpose swaps the two dimensions of a 2D tensor.
func (m *MockBackend) Transpose(t *RawTensor) *RawTensor {
	shape := t.Shape()
	if len(shape) != 2 {
		panic("Transpose only supports 2D tensors in mock backend")
	}

	rows, cols := shape[0], shape[1]
	result, err := NewRaw(Shape{cols, rows}, t.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	data := m.toFloat64Slice(t)
	resultData := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			resultData[j*rows+i] = data[i*cols+j]
		}
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// MulScalar multiplies every element by alpha.
func (m *MockBackend) MulScalar(x *RawTensor, alpha float64) *RawTensor {
	result, err := NewRaw(x.Shape(), x.DType(), m.Device())
	if err != nil {
		panic(err)
	}
	data := m.toFloat64Slice(x)
	for i := range data {
		data[i] *= alpha
	}
	m.fromFloat64Slice(data, result)
	return result
}

// Sum reduces the tensor to a scalar.
func (m *MockBackend) Sum(x *RawTensor) *RawTensor {
	total := 0.0
	for _, v := range m.toFloat64Slice(x) {
		total += v
	}
	return m.scalarResult(total, x.DType())
}

// Mean reduces the tensor to its scalar mean.
func (m *MockBackend) Mean(x *RawTensor) *RawTensor {
	total := 0.0
	data := m.toFloat64Slice(x)
	for _, v := range data {
		total += v
	}
	return m.scalarResult(total/float64(len(data)), x.DType())
}

// SumDim sums along one dimension.
func (m *MockBackend) SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	shape := x.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("SumDim: dimension %d out of range for shape %v", dim, shape))
	}

	outShape := make(Shape, 0, len(shape))
	for i, d := range shape {
		switch {
		case i != dim:
			outShape = append(outShape, d)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}

	result, err := NewRaw(outShape, x.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	data := m.toFloat64Slice(x)
	resultData := make([]float64, outShape.NumElements())
	strides := shape.ComputeStrides()

	for i, v := range data {
		// Drop the reduced coordinate from the flat index.
		outIdx := 0
		stride := 1
		for d := len(shape) - 1; d >= 0; d-- {
			coord := i / strides[d] % shape[d]
			if d == dim {
				continue
			}
			outIdx += coord * stride
			stride *= shape[d]
		}
		resultData[outIdx] += v
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// Cast converts the tensor to a different element format.
func (m *MockBackend) Cast(x *RawTensor, dtype DataType) *RawTensor {
	result, err := NewRaw(x.Shape(), dtype, m.Device())
	if err != nil {
		panic(err)
	}
	m.fromFloat64Slice(m.toFloat64Slice(x), result)
	return result
}

// Scale multiplies the tensor by alpha in place.
func (m *MockBackend) Scale(t *RawTensor, alpha float64) {
	data := m.toFloat64Slice(t)
	for i := range data {
		data[i] *= alpha
	}
	m.fromFloat64Slice(data, t)
}

// Fill sets every element to value in place.
func (m *MockBackend) Fill(t *RawTensor, value float64) {
	data := make([]float64, t.NumElements())
	for i := range data {
		data[i] = value
	}
	m.fromFloat64Slice(data, t)
}

// Copy writes src's elements into dst, converting formats as needed.
func (m *MockBackend) Copy(dst, src *RawTensor) {
	if !dst.Shape().Equal(src.Shape()) {
		panic(fmt.Sprintf("Copy: shape mismatch %v vs %v", dst.Shape(), src.Shape()))
	}
	m.fromFloat64Slice(m.toFloat64Slice(src), dst)
}

// SumSquares returns the sum of squared elements.
func (m *MockBackend) SumSquares(x *RawTensor) float64 {
	total := 0.0
	for _, v := range m.toFloat64Slice(x) {
		total += v * v
	}
	return total
}

// HasNonFinite reports whether any element is NaN or infinite.
func (m *MockBackend) HasNonFinite(x *RawTensor) bool {
	for _, v := range m.toFloat64Slice(x) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

func (m *MockBackend) scalarResult(value float64, dtype DataType) *RawTensor {
	result, err := NewRaw(Shape{}, dtype, m.Device())
	if err != nil {
		panic(err)
	}
	m.fromFloat64Slice([]float64{value}, result)
	return result
}

// toFloat64Slice copies the tensor's values into a float64 slice.
func (m *MockBackend) toFloat64Slice(t *RawTensor) []float64 {
	out := make([]float64, t.NumElements())
	switch t.DType() {
	case Float64:
		copy(out, t.AsFloat64())
	default:
		for i, v := range t.Float32Values() {
			out[i] = float64(v)
		}
	}
	return out
}

// fromFloat64Slice writes values back into the tensor, narrowing as needed.
func (m *MockBackend) fromFloat64Slice(values []float64, t *RawTensor) {
	if t.DType() == Float64 {
		copy(t.AsFloat64(), values)
		return
	}
	vals32 := make([]float32, len(values))
	for i, v := range values {
		vals32[i] = float32(v)
	}
	if err := t.SetFloat32Values(vals32); err != nil {
		panic(err)
	}
}

// broadcastIndex maps a flat output index onto the (possibly broadcast)
// input tensor's flat index.
func (m *MockBackend) broadcastIndex(flatIdx int, outShape, inShape Shape) int {
	outStrides := outShape.ComputeStrides()
	indices := make([]int, len(outShape))

	temp := flatIdx
	for i := 0; i < len(outShape); i++ {
		indices[i] = temp / outStrides[i]
		temp %= outStrides[i]
	}

	inStrides := inShape.ComputeStrides()
	inIdx := 0

	offset := len(outShape) - len(inShape)
	for i := 0; i < len(inShape); i++ {
		outDimIdx := indices[offset+i]
		if inShape[i] == 1 {
			outDimIdx = 0
		}
		inIdx += outDimIdx * inStrides[i]
	}

	return inIdx
}
