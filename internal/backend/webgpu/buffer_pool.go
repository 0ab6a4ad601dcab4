//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

const (
	// Size thresholds for pool categories.
	smallThreshold  = 4 * 1024    // 4KB
	mediumThreshold = 1024 * 1024 // 1MB
	maxPoolSize     = 100         // Max buffers per category
)

// pooledBuffer wraps a GPU buffer with the metadata needed for matching.
type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// BufferPool recycles GPU buffers between dispatches. Training loops issue
// the same-shaped kernels every step, so pooled buffers almost always hit.
// Reused buffers keep stale contents; callers must overwrite every element
// they bind for writing.
type BufferPool struct {
	device *wgpu.Device

	small  []*pooledBuffer
	medium []*pooledBuffer
	large  []*pooledBuffer

	mu sync.Mutex
}

// NewBufferPool creates a buffer pool for the given device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{
		device: device,
		small:  make([]*pooledBuffer, 0, maxPoolSize),
		medium: make([]*pooledBuffer, 0, maxPoolSize),
		large:  make([]*pooledBuffer, 0, maxPoolSize),
	}
}

// Acquire returns a pooled buffer of at least size bytes whose usage covers
// the requested flags, or creates a fresh one.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	pool := p.pool(size)
	for i, pb := range *pool {
		if pb.size >= size && pb.usage&usage == usage {
			buffer := pb.buffer
			*pool = append((*pool)[:i], (*pool)[i+1:]...)
			return buffer
		}
	}

	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  size,
	})
}

// Release returns a buffer to the pool for reuse. If the category is full
// the buffer is released immediately.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pool := p.pool(size)
	if len(*pool) >= maxPoolSize {
		buffer.Release()
		return
	}
	*pool = append(*pool, &pooledBuffer{buffer: buffer, size: size, usage: usage})
}

// Clear releases all pooled buffers. Called when the backend shuts down.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, pool := range []*[]*pooledBuffer{&p.small, &p.medium, &p.large} {
		for _, pb := range *pool {
			pb.buffer.Release()
		}
		*pool = (*pool)[:0]
	}
}

// pool selects the category slice for a buffer of the given size.
func (p *BufferPool) pool(size uint64) *[]*pooledBuffer {
	if size < smallThreshold {
		return &p.small
	}
	if size < mediumThreshold {
		return &p.medium
	}
	return &p.large
}
