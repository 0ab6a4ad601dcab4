package memtrace

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tandem-ml/tandem/internal/tensor"
)

func TestTracerAddRelease(t *testing.T) {
	tr := New()
	tr.Add(100)
	tr.Add(50)
	assert.Equal(t, int64(150), tr.Usage())
	assert.Equal(t, int64(150), tr.Peak())

	tr.Release(50)
	assert.Equal(t, int64(100), tr.Usage())
	assert.Equal(t, int64(150), tr.Peak(), "peak holds after release")

	tr.Add(20)
	assert.Equal(t, int64(120), tr.Usage())
	assert.Equal(t, int64(150), tr.Peak(), "peak only moves on a new high")
}

func TestTracerTensors(t *testing.T) {
	tr := New()

	half := tensor.RawZeros(tensor.Shape{8}, tensor.Float16)
	master := tensor.RawZeros(tensor.Shape{8}, tensor.Float32)

	tr.AddTensor(half)
	tr.AddTensor(master)
	assert.Equal(t, int64(16+32), tr.Usage())

	tr.ReleaseTensor(half)
	assert.Equal(t, int64(32), tr.Usage())

	tr.AddTensor(nil)
	assert.Equal(t, int64(32), tr.Usage())
}

func TestTracerNilSafe(t *testing.T) {
	var tr *Tracer
	tr.Add(10)
	tr.Release(10)
	tr.AddTensor(tensor.RawZeros(tensor.Shape{2}, tensor.Float32))
	tr.Reset()
	assert.Equal(t, int64(0), tr.Usage())
	assert.Equal(t, int64(0), tr.Peak())
}

func TestTracerReset(t *testing.T) {
	tr := New()
	tr.Add(64)
	tr.Reset()
	assert.Equal(t, int64(0), tr.Usage())
	assert.Equal(t, int64(0), tr.Peak())
}

func TestTracerConcurrent(t *testing.T) {
	tr := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				tr.Add(4)
				tr.Release(4)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(0), tr.Usage())
	assert.GreaterOrEqual(t, tr.Peak(), int64(4))
}
