package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/richxcame/account-onboarding/pkg/config"
	"github.com/richxcame/account-onboarding/pkg/logger"
	"go.uber.org/zap"
)

// Handler processes one delivered event. A returned error naks the message.
type Handler func(ctx context.Context, event *Event) error

// Bus publishes and consumes events over NATS JetStream.
type Bus struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// Connect dials NATS and makes sure the stream backing applications.> exists.
func Connect(cfg config.NATSConfig, clientName string) (*Bus, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	if _, err := js.StreamInfo(cfg.Stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			conn.Close()
			return nil, fmt.Errorf("stream info %s: %w", cfg.Stream, err)
		}
		if _, err := js.AddStream(&nats.StreamConfig{
			Name:     cfg.Stream,
			Subjects: []string{"applications.>"},
			MaxAge:   7 * 24 * time.Hour,
		}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("create stream %s: %w", cfg.Stream, err)
		}
	}

	return &Bus{conn: conn, js: js}, nil
}

// Publish sends event on subject. The event id doubles as the JetStream
// dedup id so a retried publish is stored once.
func (b *Bus) Publish(ctx context.Context, subject string, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := b.js.Publish(subject, payload, nats.Context(ctx), nats.MsgId(event.ID)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe attaches a durable consumer to subject until ctx is done.
func (b *Bus) Subscribe(ctx context.Context, subject, durable string, handler Handler) error {
	sub, err := b.js.Subscribe(subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("discarding malformed event", zap.String("subject", subject), zap.Error(err))
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &event); err != nil {
			logger.Warn("event handler failed",
				zap.String("subject", subject),
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, nats.Durable(durable), nats.ManualAck())
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

// Conn exposes the underlying connection for health checks.
func (b *Bus) Conn() *nats.Conn {
	return b.conn
}

// Close drains and closes the connection.
func (b *Bus) Close() {
	if b.conn != nil {
		_ = b.conn.Drain()
	}
}
