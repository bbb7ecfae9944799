// Package feed publishes finished rounds and expired rooms to NATS for
// consumers outside the server, such as stats collectors.
package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aaronzipp/sus-server/internal/models"
	"github.com/nats-io/nats.go"
)

// Publisher receives room lifecycle notifications. Implementations must not
// block for long; they are called from request handlers.
type Publisher interface {
	RoundResolved(code string, summary models.RoundSummary)
	RoomExpired(code string, at time.Time)
	Close()
}

// Discard is a Publisher that drops everything
type Discard struct{}

func (Discard) RoundResolved(string, models.RoundSummary) {}
func (Discard) RoomExpired(string, time.Time)             {}
func (Discard) Close()                                    {}

// conn is the part of *nats.Conn the feed uses
type conn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATS publishes JSON messages under a subject prefix
type NATS struct {
	nc     conn
	prefix string
	logger *slog.Logger
}

// Connect dials url. The connection retries in the background, so a broker
// that is not up yet does not stop the server from starting.
func Connect(url, prefix string, logger *slog.Logger) (*NATS, error) {
	opts := []nats.Option{
		nats.Name("sus-server"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return newNATS(nc, prefix, logger), nil
}

func newNATS(nc conn, prefix string, logger *slog.Logger) *NATS {
	return &NATS{nc: nc, prefix: prefix, logger: logger}
}

// RoundsSubject is where finished rounds of a room are published
func RoundsSubject(prefix, code string) string {
	return fmt.Sprintf("%s.rooms.%s.rounds", prefix, code)
}

// ExpiredSubject is where a room's expiry is published
func ExpiredSubject(prefix, code string) string {
	return fmt.Sprintf("%s.rooms.%s.expired", prefix, code)
}

// RoundResolved publishes the summary of a finished round
func (n *NATS) RoundResolved(code string, summary models.RoundSummary) {
	n.publish(RoundsSubject(n.prefix, code), summary)
}

// RoomExpired publishes that the janitor removed a room
func (n *NATS) RoomExpired(code string, at time.Time) {
	n.publish(ExpiredSubject(n.prefix, code), struct {
		Code        string `json:"code"`
		ExpiredAtMs int64  `json:"expired_at_ms"`
	}{code, at.UnixMilli()})
}

func (n *NATS) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		n.logger.Error("failed to encode feed message", "subject", subject, "error", err)
		return
	}
	if err := n.nc.Publish(subject, data); err != nil {
		n.logger.Warn("failed to publish feed message", "subject", subject, "error", err)
		return
	}
	n.logger.Debug("published feed message", "subject", subject)
}

// Close flushes pending messages and closes the connection
func (n *NATS) Close() {
	if err := n.nc.Drain(); err != nil {
		n.logger.Warn("failed to drain nats connection", "error", err)
	}
}
