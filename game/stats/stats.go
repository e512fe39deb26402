// Package stats records finished matches to one or more backends.
//
// A session hands a MatchSummary to a Recorder when its match completes, is
// abandoned or is terminated. The Recorder writes it off the tick path through
// a Sink: a JSON file archive, a NATS subject, a Redis list, a Postgres table,
// or several of them at once through MultiSink.
package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/pong-arena/game/engine"
	"go.uber.org/zap"
)

var ErrMatchNotFound = errors.New("match not found")

// Participant is one connection that held a paddle during the match.
type Participant struct {
	ConnID string `json:"conn_id"`
	UserID string `json:"user_id,omitempty"`
	Side   string `json:"side"`
}

// MatchSummary is the final record of one match
type MatchSummary struct {
	ID        string        `json:"id"`
	GameID    string        `json:"game_id"`
	Preset    string        `json:"preset"`
	Reason    string        `json:"reason"`
	Winner    string        `json:"winner"`
	Score     engine.Score  `json:"score"`
	Hits      engine.Score  `json:"hits"`
	Ticks     uint64        `json:"ticks"`
	Players   []Participant `json:"players"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
}

// Duration is the wall-clock length of the match.
func (m *MatchSummary) Duration() time.Duration {
	return m.EndedAt.Sub(m.StartedAt)
}

// Sink stores match summaries
type Sink interface {
	Record(ctx context.Context, summary *MatchSummary) error
}

// Archive is a Sink that can also read its records back.
type Archive interface {
	Sink
	Load(id string) (*MatchSummary, error)
	List() ([]*MatchSummary, error)
}

// MultiSink fans a summary out to every sink and joins their errors.
type MultiSink []Sink

// Record implements Sink.
func (m MultiSink) Record(ctx context.Context, summary *MatchSummary) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DiscardSink drops every summary.
type DiscardSink struct{}

// Record implements Sink.
func (DiscardSink) Record(context.Context, *MatchSummary) error { return nil }

// Recorder writes summaries asynchronously with a per-record timeout.
type Recorder struct {
	sink    Sink
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewRecorder wraps sink. A nil sink discards.
func NewRecorder(sink Sink, timeout time.Duration, logger *zap.Logger) *Recorder {
	if sink == nil {
		sink = DiscardSink{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{sink: sink, timeout: timeout, logger: logger.Named("stats")}
}

// Submit records summary in the background. It never blocks the caller.
func (r *Recorder) Submit(summary *MatchSummary) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.sink.Record(ctx, summary); err != nil {
			r.logger.Error("failed to record match",
				zap.String("match_id", summary.ID),
				zap.String("game_id", summary.GameID),
				zap.Error(err))
			return
		}
		r.logger.Info("match recorded",
			zap.String("match_id", summary.ID),
			zap.String("reason", summary.Reason),
			zap.Int("score_left", summary.Score.Left),
			zap.Int("score_right", summary.Score.Right))
	}()
}

// Wait blocks until every submitted summary has been written or has failed.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// MatchID derives a stable record id from a game id and its start time.
func MatchID(gameID string, startedAt time.Time) string {
	return fmt.Sprintf("%s-%d", gameID, startedAt.UnixMilli())
}
