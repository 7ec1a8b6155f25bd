package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"restaurant-orders/internal/common/logger"
)

// Channel is the NOTIFY channel the table triggers write to.
const Channel = "store_changes"

// Listen holds a dedicated connection on LISTEN Channel and republishes every
// notification to pub until ctx is done. Lost connections are re-established
// with capped backoff; changes committed while disconnected are not replayed,
// so a synthetic change per collection is published after each reconnect to
// make subscribers re-read.
func Listen(ctx context.Context, dsn string, pub Publisher, log *logger.Logger) error {
	backoff := 500 * time.Millisecond
	first := true
	for {
		err := listenOnce(ctx, dsn, pub, log, !first)
		if ctx.Err() != nil {
			return nil
		}
		first = false
		log.Error("listen_disconnected", err, map[string]any{"retry_in": backoff.String()})

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil
		}
		if backoff < 10*time.Second {
			backoff *= 2
		}
	}
}

func listenOnce(ctx context.Context, dsn string, pub Publisher, log *logger.Logger, resync bool) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	log.Info("listen_started", map[string]any{"channel": Channel})

	if resync {
		for _, coll := range []string{Orders, ServedItems, PopularItems} {
			_ = pub.Publish(ctx, Change{Collection: coll, Op: OpResync})
		}
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		c, err := ParseNotification(n.Payload)
		if err != nil {
			log.Warn("listen_bad_payload", map[string]any{"payload": n.Payload, "error": err.Error()})
			continue
		}
		_ = pub.Publish(ctx, c)
	}
}

// ParseNotification decodes a trigger payload.
func ParseNotification(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, err
	}
	if c.Collection == "" {
		return Change{}, fmt.Errorf("payload without collection")
	}
	return c, nil
}
