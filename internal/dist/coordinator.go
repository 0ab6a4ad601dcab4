package dist

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/tandem-ml/tandem/internal/logger"
)

// Coordinator is the rendezvous server for multi-process training. Workers
// join a named session declaring their rank and the session size; reduce
// calls long-poll until every rank of the session has contributed.
//
// Sessions are created lazily by the first join and live for the process
// lifetime. The coordinator holds scalars only, so memory stays flat no
// matter how large the model is.
type Coordinator struct {
	log      logger.Logger
	mu       sync.Mutex
	sessions map[string]*session
	tokens   map[string]*sessionRank
}

type session struct {
	id    string
	red   *reducer
	mu    sync.Mutex
	ranks map[int]string // rank -> token
}

type sessionRank struct {
	sess *session
	rank int
}

// NewCoordinator creates a coordinator. A nil logger discards output.
func NewCoordinator(log logger.Logger) *Coordinator {
	if log == nil {
		log = logger.Discard()
	}
	return &Coordinator{
		log:      log,
		sessions: make(map[string]*session),
		tokens:   make(map[string]*sessionRank),
	}
}

// Register mounts the coordinator routes on an echo server.
func (co *Coordinator) Register(e *echo.Echo) {
	e.POST("/v1/sessions/join", co.handleJoin)
	e.POST("/v1/sessions/reduce", co.handleReduce)
	e.GET("/v1/sessions/:id", co.handleStatus)
}

func (co *Coordinator) handleJoin(c *echo.Context) error {
	req, err := decodeJSON[JoinRequest](c.Request().Body)
	if err != nil {
		return writeErr(c, http.StatusBadRequest, "invalid join request: "+err.Error())
	}
	if req.Session == "" {
		return writeErr(c, http.StatusBadRequest, "session name is required")
	}
	if req.Size < 1 {
		return writeErr(c, http.StatusBadRequest, "session size must be at least 1")
	}
	if req.Rank < 0 || req.Rank >= req.Size {
		return writeErr(c, http.StatusBadRequest, "rank out of range for declared size")
	}

	co.mu.Lock()
	sess, ok := co.sessions[req.Session]
	if !ok {
		sess = &session{
			id:    req.Session,
			red:   newReducer(req.Size),
			ranks: make(map[int]string),
		}
		co.sessions[req.Session] = sess
	}
	co.mu.Unlock()

	if sess.red.size != req.Size {
		return writeErr(c, http.StatusConflict, "session size disagrees with earlier joins")
	}

	token := uuid.NewString()
	sess.mu.Lock()
	if _, taken := sess.ranks[req.Rank]; taken {
		sess.mu.Unlock()
		return writeErr(c, http.StatusConflict, "rank already joined")
	}
	sess.ranks[req.Rank] = token
	joined := len(sess.ranks)
	sess.mu.Unlock()

	co.mu.Lock()
	co.tokens[token] = &sessionRank{sess: sess, rank: req.Rank}
	co.mu.Unlock()

	co.log.Info("worker joined", "session", req.Session, "rank", req.Rank, "joined", joined, "size", req.Size)

	return c.JSON(http.StatusOK, JoinResponse{
		Token:   token,
		Session: req.Session,
		Rank:    req.Rank,
		Size:    req.Size,
	})
}

func (co *Coordinator) handleReduce(c *echo.Context) error {
	req, err := decodeJSON[ReduceRequest](c.Request().Body)
	if err != nil {
		return writeErr(c, http.StatusBadRequest, "invalid reduce request: "+err.Error())
	}
	if req.Op != opMax && req.Op != opSum {
		return writeErr(c, http.StatusBadRequest, "op must be max or sum")
	}
	if req.Seq < 0 {
		return writeErr(c, http.StatusBadRequest, "seq must not be negative")
	}

	co.mu.Lock()
	sr, ok := co.tokens[req.Token]
	co.mu.Unlock()
	if !ok {
		return writeErr(c, http.StatusUnauthorized, "unknown worker token")
	}

	value, err := sr.sess.red.contribute(c.Request().Context(), roundKey(req.Op, req.Seq), req.Op, req.Value)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return writeErr(c, http.StatusRequestTimeout, "reduction abandoned: "+err.Error())
		}
		return writeErr(c, http.StatusConflict, err.Error())
	}

	return c.JSON(http.StatusOK, ReduceResponse{Op: req.Op, Seq: req.Seq, Value: value})
}

func (co *Coordinator) handleStatus(c *echo.Context) error {
	id := c.Param("id")

	co.mu.Lock()
	sess, ok := co.sessions[id]
	co.mu.Unlock()
	if !ok {
		return writeErr(c, http.StatusNotFound, "unknown session")
	}

	sess.mu.Lock()
	joined := len(sess.ranks)
	sess.mu.Unlock()

	return c.JSON(http.StatusOK, SessionStatus{
		Session: sess.id,
		Size:    sess.red.size,
		Joined:  joined,
		Pending: sess.red.pending(),
	})
}

func writeErr(c *echo.Context, status int, msg string) error {
	return c.JSON(status, errorBody{Error: msg})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
