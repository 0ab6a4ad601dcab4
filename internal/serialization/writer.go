package serialization

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// Write writes a .tndm container to w. The header's Version, CreatedAt and
// Tensors fields are filled in; TrainingState and Metadata pass through
// as given. Tensors are written in name order so identical inputs produce
// identical bytes.
func Write(w io.Writer, tensors map[string]*tensor.RawTensor, header Header) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	// Build the directory with 64-byte aligned payload offsets.
	header.Version = FormatVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	header.Tensors = make([]TensorMeta, 0, len(tensors))

	var offset int64
	for _, name := range names {
		raw := tensors[name]
		size := int64(raw.ByteSize())
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  dtypeToString(raw.DType()),
			Shape:  []int(raw.Shape()),
			Offset: offset,
			Size:   size,
		})
		offset = alignUp(offset + size)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	// Everything before the trailer flows through the hash.
	hash := sha256.New()
	hw := io.MultiWriter(w, hash)

	prefix := make([]byte, PrefixSize)
	copy(prefix[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(prefix[4:8], uint32(FormatVersion))
	binary.LittleEndian.PutUint64(prefix[8:16], uint64(len(headerJSON)))
	if _, err := hw.Write(prefix); err != nil {
		return fmt.Errorf("failed to write prefix: %w", err)
	}

	if _, err := hw.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	pos := int64(PrefixSize) + int64(len(headerJSON))
	if err := writePadding(hw, alignUp(pos)-pos); err != nil {
		return err
	}

	var written int64
	for i, name := range names {
		meta := header.Tensors[i]
		if err := writePadding(hw, meta.Offset-written); err != nil {
			return err
		}
		if _, err := hw.Write(tensors[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
		written = meta.Offset + meta.Size
	}

	// Trailer: checksum of every byte written so far.
	if _, err := w.Write(hash.Sum(nil)); err != nil {
		return fmt.Errorf("failed to write checksum trailer: %w", err)
	}

	return nil
}

// WriteFile writes a .tndm container to path atomically: the bytes land in
// a temp file in the same directory, which is fsynced and renamed over the
// target. A crash mid-write leaves the previous file intact.
func WriteFile(path string, tensors map[string]*tensor.RawTensor, header Header) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := Write(tmp, tensors, header); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
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

func writePadding(w io.Writer, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := w.Write(make([]byte, n)); err != nil {
		return fmt.Errorf("failed to write padding: %w", err)
	}
	return nil
}
