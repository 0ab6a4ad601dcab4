package serialization

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// Reader provides access to a .tndm file. On unix the file is memory
// mapped, so opening a multi-gigabyte checkpoint only touches the header;
// elsewhere, or when mapping fails, the whole file is read into memory.
type Reader struct {
	file       *os.File // nil when the data lives in an ordinary buffer
	data       []byte
	mapped     bool
	size       int64
	header     Header
	dataOffset int64
	dataSize   int64
	checksum   [32]byte
	closed     bool
}

// ReaderOptions configures the behavior of Reader.
type ReaderOptions struct {
	SkipChecksum bool            // Skip trailer verification (faster but less safe)
	Validation   ValidationLevel // Validation strictness level
}

// OpenReader opens a .tndm file with strict validation and checksum
// verification. Always call Close when done.
func OpenReader(path string) (*Reader, error) {
	return OpenReaderWithOptions(path, ReaderOptions{Validation: ValidationStrict})
}

// OpenReaderWithOptions opens a .tndm file with custom options.
func OpenReaderWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	size := stat.Size()
	if size < PrefixSize+ChecksumSize {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, size)
	}

	r := &Reader{size: size}
	if data, err := mmapData(file, size); err == nil {
		r.file = file
		r.data = data
		r.mapped = true
	} else {
		// Fall back to reading the whole file; the handle is no longer
		// needed afterwards.
		data := make([]byte, size)
		if _, err := io.ReadFull(file, data); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		_ = file.Close()
		r.data = data
	}

	if err := r.parse(opts); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) parse(opts ReaderOptions) error {
	if string(r.data[0:4]) != MagicBytes {
		return ErrInvalidMagic
	}

	version := binary.LittleEndian.Uint32(r.data[4:8])
	if version != FormatVersion {
		return fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	headerSize := binary.LittleEndian.Uint64(r.data[8:16])
	if headerSize > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	headerEnd := int64(PrefixSize) + int64(headerSize)
	if headerEnd+ChecksumSize > r.size {
		return fmt.Errorf("%w: header extends beyond file", ErrTruncated)
	}
	if err := json.Unmarshal(r.data[PrefixSize:headerEnd], &r.header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}

	r.dataOffset = alignUp(headerEnd)
	r.dataSize = r.size - ChecksumSize - r.dataOffset
	if r.dataSize < 0 {
		return fmt.Errorf("%w: no room for data section", ErrTruncated)
	}
	copy(r.checksum[:], r.data[r.size-ChecksumSize:])

	if err := ValidateHeader(&r.header, r.dataSize, opts.Validation); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if !opts.SkipChecksum {
		computed := ComputeChecksum(r.data[:r.size-ChecksumSize])
		if err := ValidateChecksum(computed, r.checksum); err != nil {
			return err
		}
	}

	return nil
}

// Close releases the mapping or buffer. The Reader must not be used after.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.mapped && r.data != nil {
		err = munmapData(r.data)
	}
	r.data = nil

	if r.file != nil {
		if closeErr := r.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		r.file = nil
	}
	return err
}

// Header returns the parsed file header.
func (r *Reader) Header() Header {
	return r.header
}

// Checksum returns the SHA-256 trailer.
func (r *Reader) Checksum() [32]byte {
	return r.checksum
}

// TensorNames returns the names of all tensors in the file.
func (r *Reader) TensorNames() []string {
	names := make([]string, len(r.header.Tensors))
	for i, t := range r.header.Tensors {
		names[i] = t.Name
	}
	return names
}

// TensorInfo returns the directory entry for a tensor.
func (r *Reader) TensorInfo(name string) (*TensorMeta, error) {
	for i := range r.header.Tensors {
		if r.header.Tensors[i].Name == name {
			return &r.header.Tensors[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTensorNotFound, name)
}

// TensorData returns a zero-copy view of a tensor's payload. The slice is
// valid only while the reader is open and must not be written to.
func (r *Reader) TensorData(name string) ([]byte, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}

	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	start := r.dataOffset + meta.Offset
	end := start + meta.Size
	if end > r.size-ChecksumSize {
		return nil, fmt.Errorf("%w: tensor %q: offset %d + size %d > data end %d",
			ErrOutOfBounds, name, start, meta.Size, r.size-ChecksumSize)
	}
	return r.data[start:end], nil
}

// LoadTensor reads a tensor into a freshly allocated RawTensor.
func (r *Reader) LoadTensor(name string, backend tensor.Backend) (*tensor.RawTensor, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}

	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	dtype, ok := stringToDtype(meta.DType)
	if !ok {
		return nil, fmt.Errorf("unsupported dtype: %s", meta.DType)
	}

	shape := tensor.Shape(meta.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", name, err)
	}

	raw, err := tensor.NewRaw(shape, dtype, backend.Device())
	if err != nil {
		return nil, fmt.Errorf("failed to create tensor: %w", err)
	}
	if int64(raw.ByteSize()) != meta.Size {
		return nil, fmt.Errorf("tensor %s: shape %v needs %d bytes, directory says %d",
			name, shape, raw.ByteSize(), meta.Size)
	}

	data, err := r.TensorData(name)
	if err != nil {
		return nil, err
	}
	copy(raw.Data(), data)

	return raw, nil
}

// ReadStateDict reads every tensor into a map keyed by name.
func (r *Reader) ReadStateDict(backend tensor.Backend) (map[string]*tensor.RawTensor, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}

	stateDict := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for _, meta := range r.header.Tensors {
		raw, err := r.LoadTensor(meta.Name, backend)
		if err != nil {
			return nil, fmt.Errorf("failed to load tensor %s: %w", meta.Name, err)
		}
		stateDict[meta.Name] = raw
	}
	return stateDict, nil
}
