package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// publisher is the part of *nats.Conn the sink uses.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes each summary to {prefix}.{gameID}
type NATSSink struct {
	pub    publisher
	conn   *nats.Conn
	prefix string
}

// NewNATSSink connects to url and publishes under prefix.
func NewNATSSink(url, prefix string) (*NATSSink, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("pong-arena"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSSink{pub: conn, conn: conn, prefix: prefix}, nil
}

// Record implements Sink.
func (n *NATSSink) Record(ctx context.Context, summary *MatchSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal match summary: %w", err)
	}
	if err := n.pub.Publish(n.subject(summary), data); err != nil {
		return fmt.Errorf("publish match summary: %w", err)
	}
	return nil
}

func (n *NATSSink) subject(summary *MatchSummary) string {
	return n.prefix + "." + summary.GameID
}

// Close drains pending publishes.
func (n *NATSSink) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
