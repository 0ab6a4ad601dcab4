//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
)

// storageUsage is the usage for all storage-side buffers. Keeping a single
// usage lets upload, result, and staging buffers share the pool freely.
const storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// stagingUsage is the usage for readback staging buffers.
const stagingUsage = wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst

// pad4 rounds a byte size up to the 4-byte granularity WebGPU requires
// for storage bindings and buffer copies. Half precision tensors with an
// odd element count need one padding half per buffer.
func pad4(size uint64) uint64 {
	if size == 0 {
		return 4
	}
	return (size + 3) &^ 3
}

// compileShader compiles WGSL shader code into a ShaderModule.
// Results are cached in the Backend's shaders map.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, exists := b.shaders[name]; exists {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()

	return shader
}

// getOrCreatePipeline returns a cached ComputePipeline or creates a new one.
func (b *Backend) getOrCreatePipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	b.mu.RLock()
	if pipeline, exists := b.pipelines[name]; exists {
		b.mu.RUnlock()
		return pipeline
	}
	b.mu.RUnlock()

	// Auto layout (nil layout).
	pipeline := b.device.CreateComputePipelineSimple(nil, shader, "main")

	b.mu.Lock()
	b.pipelines[name] = pipeline
	b.mu.Unlock()

	return pipeline
}

// uploadBuffer creates a storage buffer holding data, padded to 4 bytes.
// Returns the buffer and its padded size; release with releaseBuffer.
func (b *Backend) uploadBuffer(data []byte) (*wgpu.Buffer, uint64) {
	size := pad4(uint64(len(data)))

	// MappedAtCreation is creation-only, so uploads always allocate fresh;
	// the buffer still joins the pool on release.
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            storageUsage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	n := copy(mappedSlice, data)
	// Zero the padding so a trailing half decodes as finite 0.
	for i := n; i < int(size); i++ {
		mappedSlice[i] = 0
	}
	buffer.Unmap()

	return buffer, size
}

// newResultBuffer acquires a storage buffer of at least size bytes from
// the pool. Pooled buffers keep stale contents, so every kernel must
// write each output word it owns.
func (b *Backend) newResultBuffer(size uint64) (*wgpu.Buffer, uint64) {
	padded := pad4(size)
	return b.bufferPool.Acquire(padded, storageUsage), padded
}

// releaseBuffer returns a storage buffer to the pool.
func (b *Backend) releaseBuffer(buffer *wgpu.Buffer, size uint64) {
	b.bufferPool.Release(buffer, size, storageUsage)
}

// createUniformBuffer creates a uniform buffer with proper alignment.
// Uniform buffers require 16-byte alignment for struct fields.
func (b *Backend) createUniformBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), alignedSize)
	copy(mappedSlice, data)
	buffer.Unmap()

	return buffer
}

// params16 packs uniform words into a 16-byte aligned little-endian blob.
func params16(words ...uint32) []byte {
	size := (len(words)*4 + 15) &^ 15
	if size == 0 {
		size = 16
	}
	buf := make([]byte, size)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], w)
	}
	return buf
}

// readBuffer reads data back from a GPU buffer to CPU memory.
// Uses a pooled staging buffer since storage buffers can't be mapped
// directly. size is the logical byte count; the source buffer must hold
// at least pad4(size) bytes.
func (b *Backend) readBuffer(srcBuffer *wgpu.Buffer, size uint64) ([]byte, error) {
	padded := pad4(size)

	stagingBuffer := b.bufferPool.Acquire(padded, stagingUsage)
	defer b.bufferPool.Release(stagingBuffer, padded, stagingUsage)

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(srcBuffer, 0, stagingBuffer, 0, padded)
	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	err := stagingBuffer.MapAsync(b.device, wgpu.MapModeRead, 0, padded)
	if err != nil {
		return nil, fmt.Errorf("webgpu: failed to map staging buffer: %w", err)
	}

	mappedPtr := stagingBuffer.GetMappedRange(0, padded)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), padded)
	result := make([]byte, size)
	copy(result, mappedSlice[:size])

	stagingBuffer.Unmap()

	return result, nil
}

// dispatch runs one compute pass of the named kernel over the bound
// entries and waits for submission.
func (b *Backend) dispatch(name, code string, entries []wgpu.BindGroupEntry, wx, wy, wz uint32) {
	shader := b.compileShader(name, code)
	pipeline := b.getOrCreatePipeline(name, shader)

	bindGroup := b.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)

	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	computePass.DispatchWorkgroups(wx, wy, wz)
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)
}

// workgroups1D returns ceil(n / workgroupSize) for 1D dispatches.
func workgroups1D(n int) uint32 {
	//nolint:gosec // G115: Safe conversion, workgroup count is non-negative
	return uint32((n + workgroupSize - 1) / workgroupSize)
}

// wordCount returns the number of packed u32 words holding n 16-bit
// elements.
func wordCount(n int) int {
	return (n + 1) / 2
}
