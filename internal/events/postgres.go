package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
	"server/internal/infra"
)

// PostgresPublisher distributes events across nodes through LISTEN/NOTIFY.
// Every event is published on a single channel named after the configured
// prefix; each subscriber holds a dedicated connection and filters inbound
// payloads down to its own user. A broken listen connection terminates the
// subscription stream, which the client observes as a disconnect and answers
// with a reconnect plus full resync.
type PostgresPublisher struct {
	pool    *pgxpool.Pool
	channel string
	logger  infra.Logger

	// OnDrop is invoked when a full subscriber channel forces an event to be
	// discarded. Wired to a metrics counter at the composition root.
	OnDrop func()
}

// NewPostgresPublisher connects to the shared backend. The channel prefix
// keeps multiple tenants apart on one Postgres instance.
func NewPostgresPublisher(ctx context.Context, backendURL, channelPrefix string, logger infra.Logger) (*PostgresPublisher, error) {
	pool, err := infra.NewDBPoolFromURL(ctx, backendURL)
	if err != nil {
		return nil, fmt.Errorf("events: connect backend: %w", err)
	}
	prefix := strings.TrimSpace(channelPrefix)
	if prefix == "" {
		prefix = "genpipe"
	}
	return &PostgresPublisher{
		pool:    pool,
		channel: prefix + "_events",
		logger:  logger,
	}, nil
}

// Publish is fire-and-forget: marshal/notify failures are logged and
// swallowed so the job pipeline never fails on a notification.
func (p *PostgresPublisher) Publish(ctx context.Context, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Msg("events: marshal event")
		return
	}
	if _, err := p.pool.Exec(ctx, "select pg_notify($1, $2)", p.channel, string(payload)); err != nil {
		p.logger.Error().Err(err).
			Str("event_type", string(event.Type)).
			Msg("events: notify failed, event dropped")
	}
}

// Subscribe acquires a dedicated connection, LISTENs on the shared channel
// and multiplexes matching notifications into the subscription channel.
func (p *PostgresPublisher) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("events: acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "listen "+pgx.Identifier{p.channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("events: listen: %w", err)
	}

	ch := make(chan domain.Event, subscriberBuffer)
	ch <- domain.ConnectedEvent(userID)

	listenCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer func() {
			// Closing the raw connection unlistens implicitly and keeps the
			// pool from recycling a connection with leftover subscriptions.
			_ = conn.Conn().Close(context.Background())
			conn.Release()
			close(ch)
		}()
		for {
			notification, err := conn.Conn().WaitForNotification(listenCtx)
			if err != nil {
				if listenCtx.Err() == nil {
					p.logger.Error().Err(err).Msg("events: listen connection lost")
				}
				return
			}
			var event domain.Event
			if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
				p.logger.Warn().Err(err).Msg("events: undecodable notification ignored")
				continue
			}
			if event.UserID != userID {
				continue
			}
			select {
			case ch <- event:
			default:
				p.logger.Warn().
					Str("user_id", userID).
					Msg("events: subscriber channel full, dropping event")
				if p.OnDrop != nil {
					p.OnDrop()
				}
			}
		}
	}()

	return newSubscription(ch, cancel), nil
}

// Close releases the backend pool. Open subscriptions end as their
// connections close.
func (p *PostgresPublisher) Close() {
	p.pool.Close()
}

var _ Publisher = (*PostgresPublisher)(nil)
