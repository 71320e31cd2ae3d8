package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultChannel is the LISTEN/NOTIFY channel events travel on
const DefaultChannel = "skillsprint_events"

var channelName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresBroker publishes events with pg_notify so every replica's hub
// sees them. Run must be running for local subscribers to receive anything.
type PostgresBroker struct {
	pool    *pgxpool.Pool
	hub     *Hub
	channel string

	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewPostgresBroker connects a pool to databaseURL and bridges it to hub
func NewPostgresBroker(ctx context.Context, databaseURL string, hub *Hub, channel string) (*PostgresBroker, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	if !channelName.MatchString(channel) {
		return nil, fmt.Errorf("invalid notify channel %q", channel)
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create realtime pool: %w", err)
	}

	return &PostgresBroker{
		pool:       pool,
		hub:        hub,
		channel:    channel,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}, nil
}

// Publish sends e through pg_notify. When that fails the event is still
// delivered to this replica's subscribers and the error is returned.
func (b *PostgresBroker) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if _, err := b.pool.Exec(ctx, "SELECT pg_notify($1, $2)", b.channel, string(payload)); err != nil {
		b.hub.Deliver(e)
		return fmt.Errorf("failed to notify: %w", err)
	}
	return nil
}

// Run listens for notifications until ctx is cancelled, reconnecting with
// exponential backoff after connection failures.
func (b *PostgresBroker) Run(ctx context.Context) {
	backoff := b.minBackoff
	for {
		err := b.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Printf("Realtime listener disconnected: %v (retrying in %s)", err, backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff = nextBackoff(backoff, b.maxBackoff)
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func (b *PostgresBroker) listen(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+b.channel); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	log.Printf("Realtime listener subscribed to %s", b.channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			// The connection may be in an unknown state; do not return it to the pool.
			_ = conn.Conn().Close(context.Background())
			return err
		}

		var e Event
		if err := json.Unmarshal([]byte(n.Payload), &e); err != nil {
			log.Printf("Realtime listener: dropping malformed payload: %v", err)
			continue
		}
		b.hub.Deliver(e)
	}
}

// Close releases the pool
func (b *PostgresBroker) Close() {
	b.pool.Close()
}
