package serialization

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// SafeTensorHeader represents a tensor entry in a SafeTensors header.
type SafeTensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// ExportSafeTensors writes tensors to path in SafeTensors format, the
// interchange format the rest of the ML ecosystem reads. Useful for
// handing a checkpoint's master weights to external tooling.
//
// Format:
//
//	[8 bytes: header_size (uint64 LE)]
//	[header_size bytes: JSON header]
//	[tensor data: raw bytes]
//
// Tensors are written in alphabetical order by name, and the write is
// atomic like WriteFile.
func ExportSafeTensors(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]interface{}, len(tensors)+1)
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}

	var offset int64
	for _, name := range names {
		raw := tensors[name]
		size := int64(raw.ByteSize())

		shape := raw.Shape()
		shapeInt64 := make([]int64, len(shape))
		for i, dim := range shape {
			shapeInt64[i] = int64(dim)
		}

		dtype, err := dtypeToSafeTensors(raw.DType())
		if err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}
		header[name] = SafeTensorHeader{
			DType:       dtype,
			Shape:       shapeInt64,
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := binary.Write(tmp, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fail(fmt.Errorf("failed to write header size: %w", err))
	}
	if _, err := tmp.Write(headerJSON); err != nil {
		return fail(fmt.Errorf("failed to write header: %w", err))
	}
	for _, name := range names {
		if _, err := tmp.Write(tensors[name].Data()); err != nil {
			return fail(fmt.Errorf("failed to write tensor %s: %w", name, err))
		}
	}

	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("failed to sync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// dtypeToSafeTensors converts tensor.DataType to the SafeTensors dtype
// name.
func dtypeToSafeTensors(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.Float32:
		return "F32", nil
	case tensor.Float64:
		return "F64", nil
	case tensor.Float16:
		return "F16", nil
	case tensor.BFloat16:
		return "BF16", nil
	case tensor.Int32:
		return "I32", nil
	case tensor.Int64:
		return "I64", nil
	default:
		return "", fmt.Errorf("dtype %s has no SafeTensors name", dt)
	}
}
