package tensor

import "fmt"

// Float32Values returns a freshly allocated []float32 holding the tensor's
// values widened to float32. Supported for all float formats.
//
// This is the host-side read path for half-precision parameters; bulk
// device conversion goes through Backend.Cast instead.
func (r *RawTensor) Float32Values() []float32 {
	n := r.NumElements()
	out := make([]float32, n)
	switch r.dtype {
	case Float32:
		copy(out, r.AsFloat32())
	case Float64:
		src := r.AsFloat64()
		for i, v := range src {
			out[i] = float32(v)
		}
	case Float16:
		src := r.AsUint16()
		for i, w := range src {
			out[i] = Float16From(w)
		}
	case BFloat16:
		src := r.AsUint16()
		for i, w := range src {
			out[i] = BFloat16From(w)
		}
	default:
		panic(fmt.Sprintf("Float32Values: unsupported dtype %s", r.dtype))
	}
	return out
}

// SetFloat32Values writes vals into the tensor, narrowing to the tensor's
// element format. The length of vals must equal NumElements.
func (r *RawTensor) SetFloat32Values(vals []float32) error {
	if len(vals) != r.NumElements() {
		return fmt.Errorf("value count %d does not match tensor size %d", len(vals), r.NumElements())
	}
	switch r.dtype {
	case Float32:
		copy(r.AsFloat32(), vals)
	case Float64:
		dst := r.AsFloat64()
		for i, v := range vals {
			dst[i] = float64(v)
		}
	case Float16:
		dst := r.AsUint16()
		for i, v := range vals {
			dst[i] = Float16Bits(v)
		}
	case BFloat16:
		dst := r.AsUint16()
		for i, v := range vals {
			dst[i] = BFloat16Bits(v)
		}
	default:
		return fmt.Errorf("SetFloat32Values: unsupported dtype %s", r.dtype)
	}
	return nil
}

// DeepCopy allocates a new buffer and copies the tensor's bytes into it.
// Unlike Clone, the result never shares storage with the receiver; use it
// for snapshots that must survive later in-place writes.
func (r *RawTensor) DeepCopy() *RawTensor {
	out, err := NewRaw(r.shape, r.dtype, r.device)
	if err != nil {
		panic(err) // receiver shape was already validated
	}
	copy(out.Data(), r.Data()[:r.ByteSize()])
	return out
}
