package nn_test

import (
	"math"
	"testing"

	"github.com/tandem-ml/tandem/internal/backend/cpu"
	"github.com/tandem-ml/tandem/internal/nn"
	"github.com/tandem-ml/tandem/internal/tensor"
)

// Helper to check if values are approximately equal.
func floatEqual(a, b, epsilon float32) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < epsilon
}

// TestParameter tests Parameter creation and methods.
func TestParameter(t *testing.T) {
	data := tensor.RawFrom([]float32{1, 2, 3}, tensor.Shape{3}, tensor.Float32)
	param := nn.NewParameter("test_param", data)

	// Test Name
	if param.Name() != "test_param" {
		t.Errorf("Name() = %s, want test_param", param.Name())
	}

	// Test Value
	if param.Value() != data {
		t.Error("Value() should return the original tensor")
	}

	// Test Grad (initially nil)
	if param.Grad() != nil {
		t.Error("Grad() should initially be nil")
	}

	// Test SetGrad
	grad := tensor.RawFrom([]float32{0.1, 0.2, 0.3}, tensor.Shape{3}, tensor.Float32)
	param.SetGrad(grad)
	if param.Grad() != grad {
		t.Error("SetGrad() should set the gradient")
	}

	// Test ZeroGrad
	param.ZeroGrad()
	if param.Grad() != nil {
		t.Error("ZeroGrad() should clear the gradient")
	}

	// New parameters require gradients by default
	if !param.RequiresGrad() {
		t.Error("new parameters should require gradients")
	}
	param.SetRequiresGrad(false)
	if param.RequiresGrad() {
		t.Error("SetRequiresGrad(false) should freeze the parameter")
	}
}

// TestParameter_UniqueIDs tests that parameter identities never collide.
func TestParameter_UniqueIDs(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 100; i++ {
		p := nn.NewParameter("p", tensor.RawZeros(tensor.Shape{1}, tensor.Float32))
		if seen[p.ID()] {
			t.Fatalf("duplicate parameter ID %d", p.ID())
		}
		seen[p.ID()] = true
	}
}

// TestParameter_NewMaster tests float32 master creation from half params.
func TestParameter_NewMaster(t *testing.T) {
	value := tensor.RawFrom([]float32{1.5, -2.0, 0.25}, tensor.Shape{3}, tensor.Float16)
	half := nn.NewParameter("weight", value)
	half.SetParallelMeta(nn.ParallelMeta{TensorParallel: true, PartitionDim: 1, NumPartitions: 4})

	master, err := half.NewMaster()
	if err != nil {
		t.Fatalf("NewMaster failed: %v", err)
	}

	// Master is float32 with the same values.
	if master.Value().DType() != tensor.Float32 {
		t.Errorf("master dtype = %v, want Float32", master.Value().DType())
	}
	got := master.Value().AsFloat32()
	for i, want := range []float32{1.5, -2.0, 0.25} {
		if got[i] != want {
			t.Errorf("master[%d] = %v, want %v", i, got[i], want)
		}
	}

	// Identity is fresh, name and metadata carry over.
	if master.ID() == half.ID() {
		t.Error("master must get its own ID")
	}
	if master.Name() != "weight" {
		t.Errorf("master name = %q, want weight", master.Name())
	}
	if !master.ParallelMeta().TensorParallel || master.ParallelMeta().NumPartitions != 4 {
		t.Errorf("master meta = %+v, want copy of source meta", master.ParallelMeta())
	}

	// Buffers are independent.
	master.Value().AsFloat32()[0] = 99
	if tensor.Float16From(half.Value().AsUint16()[0]) != 1.5 {
		t.Error("master writes must not touch the half parameter")
	}
}

// TestParameter_NewMasterRejectsFloat32 tests the dtype guard.
func TestParameter_NewMasterRejectsFloat32(t *testing.T) {
	p := nn.NewParameter("w", tensor.RawZeros(tensor.Shape{2}, tensor.Float32))
	if _, err := p.NewMaster(); err == nil {
		t.Error("NewMaster on a float32 parameter should fail")
	}
}

// TestParameter_AccumulateGrad tests gradient accumulation across calls.
func TestParameter_AccumulateGrad(t *testing.T) {
	backend := cpu.New()
	param := nn.NewParameter("w", tensor.RawZeros(tensor.Shape{2}, tensor.Float32))

	// First call adopts the gradient directly.
	g1 := tensor.RawFrom([]float32{1, 2}, tensor.Shape{2}, tensor.Float32)
	param.AccumulateGrad(g1, backend)
	if param.Grad() != g1 {
		t.Fatal("first AccumulateGrad should adopt the gradient tensor")
	}

	// Second call sums into the running total.
	g2 := tensor.RawFrom([]float32{3, 4}, tensor.Shape{2}, tensor.Float32)
	param.AccumulateGrad(g2, backend)
	got := param.Grad().AsFloat32()
	if !floatEqual(got[0], 4, 1e-6) || !floatEqual(got[1], 6, 1e-6) {
		t.Errorf("accumulated grad = %v, want [4 6]", got)
	}

	// ZeroGrad resets, so the next call adopts again.
	param.ZeroGrad()
	g3 := tensor.RawFrom([]float32{5, 5}, tensor.Shape{2}, tensor.Float32)
	param.AccumulateGrad(g3, backend)
	if param.Grad() != g3 {
		t.Error("AccumulateGrad after ZeroGrad should adopt the gradient tensor")
	}
}

// TestLinear_Creation tests Linear layer initialization.
func TestLinear_Creation(t *testing.T) {
	backend := cpu.New()

	layer := nn.NewLinear(10, 5, tensor.Float32, backend)

	// Check dimensions
	if layer.InFeatures() != 10 {
		t.Errorf("InFeatures() = %d, want 10", layer.InFeatures())
	}
	if layer.OutFeatures() != 5 {
		t.Errorf("OutFeatures() = %d, want 5", layer.OutFeatures())
	}

	// Check weight shape: [out_features, in_features]
	weight := layer.Weight().Value()
	expectedShape := tensor.Shape{5, 10}
	if !weight.Shape().Equal(expectedShape) {
		t.Errorf("Weight shape = %v, want %v", weight.Shape(), expectedShape)
	}

	// Check bias shape: [out_features]
	bias := layer.Bias().Value()
	expectedBiasShape := tensor.Shape{5}
	if !bias.Shape().Equal(expectedBiasShape) {
		t.Errorf("Bias shape = %v, want %v", bias.Shape(), expectedBiasShape)
	}

	// Check bias is zeros
	for i, v := range bias.AsFloat32() {
		if v != 0 {
			t.Errorf("Bias[%d] = %f, want 0", i, v)
		}
	}

	// Check parameters
	params := layer.Parameters()
	if len(params) != 2 {
		t.Errorf("Parameters() length = %d, want 2", len(params))
	}
}

// TestLinear_HalfPrecision tests that dtype flows into the parameters.
func TestLinear_HalfPrecision(t *testing.T) {
	backend := cpu.New()

	layer := nn.NewLinear(4, 2, tensor.Float16, backend)

	if layer.Weight().Value().DType() != tensor.Float16 {
		t.Errorf("weight dtype = %v, want Float16", layer.Weight().Value().DType())
	}
	if layer.Bias().Value().DType() != tensor.Float16 {
		t.Errorf("bias dtype = %v, want Float16", layer.Bias().Value().DType())
	}

	input := tensor.RawRandn(tensor.Shape{3, 4}, tensor.Float16)
	output := layer.Forward(input)

	if !output.Shape().Equal(tensor.Shape{3, 2}) {
		t.Errorf("output shape = %v, want [3 2]", output.Shape())
	}
	if output.DType() != tensor.Float16 {
		t.Errorf("output dtype = %v, want Float16", output.DType())
	}
}

// TestLinear_Forward tests the forward computation against hand-computed
// values.
func TestLinear_Forward(t *testing.T) {
	backend := cpu.New()

	layer := nn.NewLinear(2, 2, tensor.Float32, backend)

	// Overwrite the random init with known values.
	// W = [[1, 2], [3, 4]], b = [10, 20]
	copy(layer.Weight().Value().AsFloat32(), []float32{1, 2, 3, 4})
	copy(layer.Bias().Value().AsFloat32(), []float32{10, 20})

	// x = [[1, 1]]
	input := tensor.RawFrom([]float32{1, 1}, tensor.Shape{1, 2}, tensor.Float32)

	output := layer.Forward(input)

	// y = x @ W.T + b = [1+2+10, 3+4+20] = [13, 27]
	got := output.AsFloat32()
	if !floatEqual(got[0], 13, 1e-5) || !floatEqual(got[1], 27, 1e-5) {
		t.Errorf("Forward = %v, want [13 27]", got)
	}
}

// TestLinear_ForwardBadInputPanics tests input validation.
func TestLinear_ForwardBadInputPanics(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewLinear(4, 2, tensor.Float32, backend)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Forward with wrong feature count should panic")
		}
	}()
	_ = layer.Forward(tensor.RawZeros(tensor.Shape{3, 5}, tensor.Float32))
}

// TestSequential tests the container module.
func TestSequential(t *testing.T) {
	backend := cpu.New()

	model := nn.NewSequential(
		nn.NewLinear(4, 8, tensor.Float32, backend),
		nn.NewLinear(8, 2, tensor.Float32, backend),
	)

	if model.Len() != 2 {
		t.Errorf("Len() = %d, want 2", model.Len())
	}

	// 2 layers x (weight + bias)
	if len(model.Parameters()) != 4 {
		t.Errorf("Parameters() length = %d, want 4", len(model.Parameters()))
	}

	input := tensor.RawRandn(tensor.Shape{3, 4}, tensor.Float32)
	output := model.Forward(input)

	if !output.Shape().Equal(tensor.Shape{3, 2}) {
		t.Errorf("output shape = %v, want [3 2]", output.Shape())
	}
}

// TestXavier tests the initialization bounds.
func TestXavier(t *testing.T) {
	fanIn, fanOut := 100, 50
	w := nn.Xavier(fanIn, fanOut, tensor.Shape{fanOut, fanIn}, tensor.Float32)

	bound := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
	for i, v := range w.AsFloat32() {
		if v < -bound || v > bound {
			t.Fatalf("Xavier[%d] = %v outside [-%v, %v]", i, v, bound, bound)
		}
	}
}

// TestAssignGrads tests gradient routing by value tensor.
func TestAssignGrads(t *testing.T) {
	backend := cpu.New()
	a := nn.NewParameter("a", tensor.RawZeros(tensor.Shape{2}, tensor.Float32))
	b := nn.NewParameter("b", tensor.RawZeros(tensor.Shape{2}, tensor.Float32))

	ga := tensor.RawFrom([]float32{1, 1}, tensor.Shape{2}, tensor.Float32)
	grads := map[*tensor.RawTensor]*tensor.RawTensor{
		a.Value(): ga,
	}

	nn.AssignGrads([]*nn.Parameter{a, b}, grads, backend)

	if a.Grad() != ga {
		t.Error("gradient for a should be assigned")
	}
	if b.Grad() != nil {
		t.Error("b has no gradient entry and must stay nil")
	}

	// A second backward pass accumulates instead of replacing.
	grads2 := map[*tensor.RawTensor]*tensor.RawTensor{
		a.Value(): tensor.RawFrom([]float32{2, 3}, tensor.Shape{2}, tensor.Float32),
	}
	nn.AssignGrads([]*nn.Parameter{a, b}, grads2, backend)

	got := a.Grad().AsFloat32()
	if !floatEqual(got[0], 3, 1e-6) || !floatEqual(got[1], 4, 1e-6) {
		t.Errorf("accumulated grad for a = %v, want [3 4]", got)
	}
}
