package serialization

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "TNDM"
	FormatVersion   = 1
	PrefixSize      = 16 // magic + version + header size
	HeaderAlignment = 64 // tensor payloads start on 64-byte boundaries
	ChecksumSize    = 32 // SHA-256 trailer
)

// Data type string constants for serialization.
const (
	DTypeFloat32  = "float32"
	DTypeFloat64  = "float64"
	DTypeFloat16  = "float16"
	DTypeBFloat16 = "bfloat16"
	DTypeInt32    = "int32"
	DTypeInt64    = "int64"
)

// Header is the JSON metadata block of a .tndm file.
type Header struct {
	Version       int               `json:"version"`                  // Container format version
	CreatedAt     time.Time         `json:"created_at"`               // When the file was written
	Tensors       []TensorMeta      `json:"tensors"`                  // Tensor directory
	TrainingState json.RawMessage   `json:"training_state,omitempty"` // Embedded training state document
	Metadata      map[string]string `json:"metadata,omitempty"`       // Free-form string metadata
}

// TensorMeta describes one tensor in the container.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "master.0.1")
	DType  string `json:"dtype"`  // Data type (e.g., "float32", "float16")
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Offset in the tensor section, 64-byte aligned
	Size   int64  `json:"size"`   // Payload size in bytes
}

// alignUp rounds n up to the next multiple of HeaderAlignment.
func alignUp(n int64) int64 {
	return (n + HeaderAlignment - 1) / HeaderAlignment * HeaderAlignment
}

// dtypeToString converts tensor.DataType to its serialized name.
func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return DTypeFloat32
	case tensor.Float64:
		return DTypeFloat64
	case tensor.Float16:
		return DTypeFloat16
	case tensor.BFloat16:
		return DTypeBFloat16
	case tensor.Int32:
		return DTypeInt32
	case tensor.Int64:
		return DTypeInt64
	default:
		return "unknown"
	}
}

// stringToDtype converts a serialized name back to tensor.DataType.
func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case DTypeFloat32:
		return tensor.Float32, true
	case DTypeFloat64:
		return tensor.Float64, true
	case DTypeFloat16:
		return tensor.Float16, true
	case DTypeBFloat16:
		return tensor.BFloat16, true
	case DTypeInt32:
		return tensor.Int32, true
	case DTypeInt64:
		return tensor.Int64, true
	default:
		return 0, false
	}
}
