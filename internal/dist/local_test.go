package dist

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalClusterAllReduceMax(t *testing.T) {
	cluster, err := NewLocalCluster(3)
	require.NoError(t, err)

	inputs := []float32{0, 1, 0}
	results := make([]float32, 3)

	var wg sync.WaitGroup
	for rank := 0; rank < 3; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			v := inputs[rank]
			err := cluster.Rank(rank).AllReduceMax(context.Background(), &v)
			assert.NoError(t, err)
			results[rank] = v
		}(rank)
	}
	wg.Wait()

	for rank, got := range results {
		assert.Equal(t, float32(1), got, "rank %d should see the max", rank)
	}
}

func TestLocalClusterAllReduceSum(t *testing.T) {
	cluster, err := NewLocalCluster(3)
	require.NoError(t, err)

	inputs := []float64{1.5, 2.5, -1.0}
	results := make([]float64, 3)

	var wg sync.WaitGroup
	for rank := 0; rank < 3; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			v := inputs[rank]
			err := cluster.Rank(rank).AllReduceSum(context.Background(), &v)
			assert.NoError(t, err)
			results[rank] = v
		}(rank)
	}
	wg.Wait()

	for rank, got := range results {
		assert.InDelta(t, 3.0, got, 1e-12, "rank %d should see the sum", rank)
	}
}

func TestLocalClusterSequentialRounds(t *testing.T) {
	// Ranks issue two max rounds back to back. Per-op sequence numbers keep
	// the rounds separate even though the key space is shared.
	cluster, err := NewLocalCluster(2)
	require.NoError(t, err)

	type pair struct{ first, second float32 }
	inputs := []pair{{0, 5}, {1, 3}}
	results := make([]pair, 2)

	var wg sync.WaitGroup
	for rank := 0; rank < 2; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			g := cluster.Rank(rank)

			v := inputs[rank].first
			require.NoError(t, g.AllReduceMax(context.Background(), &v))
			results[rank].first = v

			v = inputs[rank].second
			require.NoError(t, g.AllReduceMax(context.Background(), &v))
			results[rank].second = v
		}(rank)
	}
	wg.Wait()

	for rank, got := range results {
		assert.Equal(t, float32(1), got.first, "rank %d round 1", rank)
		assert.Equal(t, float32(5), got.second, "rank %d round 2", rank)
	}
}

func TestLocalClusterMixedOps(t *testing.T) {
	// Max and sum rounds interleave without crosstalk.
	cluster, err := NewLocalCluster(2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for rank := 0; rank < 2; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			g := cluster.Rank(rank)

			flag := float32(rank) // rank 1 contributes the overflow
			require.NoError(t, g.AllReduceMax(context.Background(), &flag))
			assert.Equal(t, float32(1), flag)

			normSq := float64(rank + 1)
			require.NoError(t, g.AllReduceSum(context.Background(), &normSq))
			assert.InDelta(t, 3.0, normSq, 1e-12)
		}(rank)
	}
	wg.Wait()
}

func TestLocalClusterSizeOne(t *testing.T) {
	cluster, err := NewLocalCluster(1)
	require.NoError(t, err)

	g := cluster.Rank(0)
	assert.Equal(t, 0, g.Rank())
	assert.Equal(t, 1, g.Size())

	v := float32(7)
	require.NoError(t, g.AllReduceMax(context.Background(), &v))
	assert.Equal(t, float32(7), v)

	s := 2.5
	require.NoError(t, g.AllReduceSum(context.Background(), &s))
	assert.Equal(t, 2.5, s)
}

func TestLocalClusterContextCancel(t *testing.T) {
	cluster, err := NewLocalCluster(2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Only rank 0 contributes; the round never completes.
	v := float32(1)
	err = cluster.Rank(0).AllReduceMax(ctx, &v)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalClusterValidation(t *testing.T) {
	_, err := NewLocalCluster(0)
	assert.Error(t, err)

	cluster, err := NewLocalCluster(2)
	require.NoError(t, err)
	assert.Panics(t, func() { cluster.Rank(2) })
	assert.Panics(t, func() { cluster.Rank(-1) })
}

func TestTopologyProvider(t *testing.T) {
	cluster, err := NewLocalCluster(1)
	require.NoError(t, err)
	data := cluster.Rank(0)

	topo := Topology{Data: data}
	assert.Equal(t, data, topo.Group(RoleData))
	assert.Nil(t, topo.Group(RoleModel))

	single := SingleProcess{}
	assert.Nil(t, single.Group(RoleData))
	assert.Nil(t, single.Group(RoleModel))
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "data", RoleData.String())
	assert.Equal(t, "model", RoleModel.String())
	assert.Equal(t, "unknown", Role(99).String())
}
