// Package tensor provides the core tensor types for the Tandem training stack.
package tensor

// DType is a constraint for element types that map directly onto Go types.
// The 16-bit float formats have no native Go representation; they are
// created through DataType-driven construction and accessed as raw words.
type DType interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Float64
	Float16
	BFloat16
	Int32
	Int64
)

// Size returns the byte size of one element.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Float16, BFloat16:
		return 2
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Float16:
		return "float16"
	case BFloat16:
		return "bfloat16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	default:
		return "unknown"
	}
}

// IsHalf reports whether dt is one of the 16-bit float formats.
// Half-class parameters are the ones shadowed by float32 masters
// during mixed-precision training.
func (dt DataType) IsHalf() bool {
	return dt == Float16 || dt == BFloat16
}

// IsFloat reports whether dt is a floating-point format.
func (dt DataType) IsFloat() bool {
	switch dt {
	case Float32, Float64, Float16, BFloat16:
		return true
	default:
		return false
	}
}

// inferDataType infers DataType from a generic type T.
func inferDataType[T DType](dummy T) DataType {
	switch any(dummy).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	default:
		panic("unsupported type")
	}
}
