package dist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
)

// HTTPGroup is a Group backed by a coordinator server. Reduce calls post a
// contribution and long-poll until the whole session has arrived, so the
// request context is the only timeout that applies.
type HTTPGroup struct {
	client  *http.Client
	baseURL string
	token   string
	rank    int
	size    int

	mu   sync.Mutex
	seqs map[string]int
}

var _ Group = (*HTTPGroup)(nil)

// JoinSession registers this process with a coordinator session and returns
// the Group handle. Join returns as soon as the coordinator accepts the
// rank; peers may join later, and the first reduction waits for them.
func JoinSession(ctx context.Context, baseURL, session string, rank, size int) (*HTTPGroup, error) {
	g := &HTTPGroup{
		client:  http.DefaultClient,
		baseURL: baseURL,
		rank:    rank,
		size:    size,
		seqs:    make(map[string]int),
	}

	var resp JoinResponse
	err := g.post(ctx, "/v1/sessions/join", JoinRequest{
		Session: session,
		Rank:    rank,
		Size:    size,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("dist: join session %q: %w", session, err)
	}
	g.token = resp.Token
	return g, nil
}

// Rank returns this process's index within the session.
func (g *HTTPGroup) Rank() int { return g.rank }

// Size returns the session size.
func (g *HTTPGroup) Size() int { return g.size }

// AllReduceMax replaces *value with the maximum across all ranks.
func (g *HTTPGroup) AllReduceMax(ctx context.Context, value *float32) error {
	out, err := g.reduce(ctx, opMax, float64(*value))
	if err != nil {
		return err
	}
	*value = float32(out)
	return nil
}

// AllReduceSum replaces *value with the sum across all ranks.
func (g *HTTPGroup) AllReduceSum(ctx context.Context, value *float64) error {
	out, err := g.reduce(ctx, opSum, *value)
	if err != nil {
		return err
	}
	*value = out
	return nil
}

func (g *HTTPGroup) reduce(ctx context.Context, op string, value float64) (float64, error) {
	g.mu.Lock()
	seq := g.seqs[op]
	g.seqs[op] = seq + 1
	g.mu.Unlock()

	var resp ReduceResponse
	err := g.post(ctx, "/v1/sessions/reduce", ReduceRequest{
		Token: g.token,
		Op:    op,
		Seq:   seq,
		Value: value,
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("dist: %s reduction %d: %w", op, seq, err)
	}
	return resp.Value, nil
}

func (g *HTTPGroup) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		if derr := json.NewDecoder(resp.Body).Decode(&eb); derr == nil && eb.Error != "" {
			return fmt.Errorf("coordinator: %s", eb.Error)
		}
		return fmt.Errorf("coordinator: unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
