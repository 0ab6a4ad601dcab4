package dist

import (
	"context"
	"fmt"
	"sync"
)

const (
	opMax = "max"
	opSum = "sum"
)

// reduceRound is one rendezvous: it collects a contribution from every rank,
// then releases the combined value to all of them. The round is removed once
// the last rank has read the result, so a key is never reused while a reader
// is still waiting.
type reduceRound struct {
	op        string
	remaining int
	readers   int
	seeded    bool
	value     float64
	done      chan struct{}
}

// reducer matches contributions by key and runs the rendezvous. Shared by
// the in-process cluster and the HTTP coordinator sessions.
type reducer struct {
	size   int
	mu     sync.Mutex
	rounds map[string]*reduceRound
}

func newReducer(size int) *reducer {
	return &reducer{
		size:   size,
		rounds: make(map[string]*reduceRound),
	}
}

func (r *reducer) contribute(ctx context.Context, key, op string, value float64) (float64, error) {
	r.mu.Lock()
	round, ok := r.rounds[key]
	if !ok {
		round = &reduceRound{
			op:        op,
			remaining: r.size,
			done:      make(chan struct{}),
		}
		r.rounds[key] = round
	}
	if round.op != op {
		r.mu.Unlock()
		return 0, fmt.Errorf("dist: round %q is a %s reduction, got %s", key, round.op, op)
	}
	if !round.seeded {
		round.value = value
		round.seeded = true
	} else {
		switch op {
		case opMax:
			if value > round.value {
				round.value = value
			}
		case opSum:
			round.value += value
		}
	}
	round.remaining--
	if round.remaining == 0 {
		close(round.done)
	}
	r.mu.Unlock()

	select {
	case <-round.done:
	case <-ctx.Done():
		// The contribution stays counted; peers that are still waiting
		// will complete when the remaining ranks arrive or their own
		// contexts fire.
		return 0, ctx.Err()
	}

	r.mu.Lock()
	result := round.value
	round.readers++
	if round.readers == r.size {
		delete(r.rounds, key)
	}
	r.mu.Unlock()
	return result, nil
}

// pending returns the number of unfinished rounds.
func (r *reducer) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, round := range r.rounds {
		if round.remaining > 0 {
			n++
		}
	}
	return n
}

// LocalCluster runs a group of ranks inside one process. Each rank gets its
// own Group handle via Rank; reductions rendezvous through shared memory.
//
// Used by tests and by multi-goroutine demos that exercise the distributed
// step-skip agreement without real networking.
type LocalCluster struct {
	red   *reducer
	ranks []*localRank
}

// NewLocalCluster creates a cluster with the given number of ranks.
func NewLocalCluster(size int) (*LocalCluster, error) {
	if size < 1 {
		return nil, fmt.Errorf("dist: cluster size must be at least 1, got %d", size)
	}
	c := &LocalCluster{red: newReducer(size)}
	c.ranks = make([]*localRank, size)
	for i := range c.ranks {
		c.ranks[i] = &localRank{
			cluster: c,
			rank:    i,
			seqs:    make(map[string]int),
		}
	}
	return c, nil
}

// Size returns the number of ranks in the cluster.
func (c *LocalCluster) Size() int {
	return c.red.size
}

// Rank returns the Group handle for one rank. Handles are not safe for
// concurrent use by multiple goroutines; give each goroutine its own rank.
func (c *LocalCluster) Rank(rank int) Group {
	if rank < 0 || rank >= c.red.size {
		panic(fmt.Sprintf("dist: rank %d out of range for cluster of size %d", rank, c.red.size))
	}
	return c.ranks[rank]
}

type localRank struct {
	cluster *LocalCluster
	rank    int
	mu      sync.Mutex
	seqs    map[string]int
}

var _ Group = (*localRank)(nil)

func (r *localRank) Rank() int { return r.rank }

func (r *localRank) Size() int { return r.cluster.red.size }

func (r *localRank) AllReduceMax(ctx context.Context, value *float32) error {
	out, err := r.reduce(ctx, opMax, float64(*value))
	if err != nil {
		return err
	}
	*value = float32(out)
	return nil
}

func (r *localRank) AllReduceSum(ctx context.Context, value *float64) error {
	out, err := r.reduce(ctx, opSum, *value)
	if err != nil {
		return err
	}
	*value = out
	return nil
}

func (r *localRank) reduce(ctx context.Context, op string, value float64) (float64, error) {
	r.mu.Lock()
	seq := r.seqs[op]
	r.seqs[op] = seq + 1
	r.mu.Unlock()
	return r.cluster.red.contribute(ctx, roundKey(op, seq), op, value)
}

func roundKey(op string, seq int) string {
	return fmt.Sprintf("%s/%d", op, seq)
}
