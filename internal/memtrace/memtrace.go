// Package memtrace accounts for model-data memory: the bytes held by
// parameter and optimizer-state tensors, as opposed to transient activation
// buffers. A Tracer is created per training context and passed in
// explicitly, so two optimizers in one process keep independent books.
package memtrace

import (
	"sync/atomic"

	"github.com/tandem-ml/tandem/internal/tensor"
)

// Tracer tracks live model-data bytes and the high-water mark. All methods
// are safe for concurrent use and safe on a nil receiver, so components can
// carry an optional tracer without guarding every call.
type Tracer struct {
	usage atomic.Int64
	peak  atomic.Int64
}

// New creates an empty tracer.
func New() *Tracer {
	return &Tracer{}
}

// Add records an allocation of the given size.
func (t *Tracer) Add(bytes int64) {
	if t == nil {
		return
	}
	usage := t.usage.Add(bytes)
	for {
		peak := t.peak.Load()
		if usage <= peak || t.peak.CompareAndSwap(peak, usage) {
			return
		}
	}
}

// Release records a deallocation of the given size.
func (t *Tracer) Release(bytes int64) {
	if t == nil {
		return
	}
	t.usage.Add(-bytes)
}

// AddTensor records a tensor's buffer as model data.
func (t *Tracer) AddTensor(raw *tensor.RawTensor) {
	if t == nil || raw == nil {
		return
	}
	t.Add(int64(raw.ByteSize()))
}

// ReleaseTensor records a tensor's buffer as freed.
func (t *Tracer) ReleaseTensor(raw *tensor.RawTensor) {
	if t == nil || raw == nil {
		return
	}
	t.Release(int64(raw.ByteSize()))
}

// Usage returns the currently held bytes.
func (t *Tracer) Usage() int64 {
	if t == nil {
		return 0
	}
	return t.usage.Load()
}

// Peak returns the high-water mark since creation or the last Reset.
func (t *Tracer) Peak() int64 {
	if t == nil {
		return 0
	}
	return t.peak.Load()
}

// Reset zeroes both counters.
func (t *Tracer) Reset() {
	if t == nil {
		return
	}
	t.usage.Store(0)
	t.peak.Store(0)
}
