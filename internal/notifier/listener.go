package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"assessment-sync-be/internal/pkg/logger"
	"assessment-sync-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
)

// TopicChanges is the in-process topic the listener republishes parsed
// change events on. The hub fan-out, the NATS republisher and the webhook
// publisher all subscribe to it.
const TopicChanges = "sync.changes"

// Listener bridges Postgres LISTEN/NOTIFY into the in-process bus. It holds
// exactly one dedicated connection, separate from the query pool, so change
// notifications are never starved by transactional load.
type Listener struct {
	dsn     string
	channel string

	reconnectBase time.Duration
	reconnectMax  time.Duration

	publisher message.Publisher
	logger    logger.ILogger

	conn *pgx.Conn
}

func NewListener(dsn, channel string, reconnectBase, reconnectMax time.Duration, pub message.Publisher, log logger.ILogger) *Listener {
	return &Listener{
		dsn:           dsn,
		channel:       channel,
		reconnectBase: reconnectBase,
		reconnectMax:  reconnectMax,
		publisher:     pub,
		logger:        log,
	}
}

// Run listens until the context is cancelled. A dropped listener connection
// is retried with exponential backoff; there is no path that leaves the
// system unlistening without a retry scheduled.
func (l *Listener) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.reconnectBase
	bo.MaxInterval = l.reconnectMax

	for {
		err := l.listen(ctx, bo)
		if ctx.Err() != nil {
			l.teardown(context.Background())
			return ctx.Err()
		}

		delay := bo.NextBackOff()
		l.logger.Warn("Notifier", "Listener dropped, reconnect scheduled", map[string]interface{}{"error": fmt.Sprint(err), "delay": delay.String()})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			l.teardown(context.Background())
			return ctx.Err()
		}
	}
}

// listen dials, subscribes and consumes notifications until the connection
// fails. Any existing handle is torn down first, so a reconnect can never
// leave a duplicate listener behind.
func (l *Listener) listen(ctx context.Context, bo *backoff.ExponentialBackOff) error {
	l.teardown(ctx)

	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect listener: %w", err)
	}
	l.conn = conn

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}

	bo.Reset()
	l.logger.Info("Notifier", "Listening for change notifications", map[string]interface{}{"channel": l.channel})

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		l.handle(notification.Payload)
	}
}

func (l *Listener) teardown(ctx context.Context) {
	if l.conn != nil {
		l.conn.Close(ctx)
		l.conn = nil
	}
}

// handle parses one trigger payload and republishes it. Malformed payloads
// are logged and discarded, never fatal.
func (l *Listener) handle(payload string) {
	ev, err := ParseNotification([]byte(payload))
	if err != nil {
		l.logger.Warn("Notifier", "Malformed change payload discarded", map[string]interface{}{"error": err.Error()})
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		l.logger.Error("Notifier", "Change event marshal failed", map[string]interface{}{"error": err.Error()})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("table", ev.Table)
	if err := l.publisher.Publish(TopicChanges, msg); err != nil {
		l.logger.Error("Notifier", "Change publish failed", map[string]interface{}{"error": err.Error()})
	}
}

// ParseNotification decodes the JSON the row-level triggers put on the
// channel: {"table": ..., "type": INSERT|UPDATE|DELETE, "record": {...},
// "old_record": {...}}.
func ParseNotification(payload []byte) (events.ChangeEvent, error) {
	var ev events.ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return events.ChangeEvent{}, fmt.Errorf("decode notification: %w", err)
	}
	if ev.Table == "" {
		return events.ChangeEvent{}, fmt.Errorf("notification missing table")
	}
	switch ev.Kind {
	case events.OpInsert, events.OpUpdate, events.OpDelete:
	default:
		return events.ChangeEvent{}, fmt.Errorf("notification has unknown operation %q", ev.Kind)
	}
	if ev.Record == nil && ev.OldRecord == nil {
		return events.ChangeEvent{}, fmt.Errorf("notification carries no record")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	return ev, nil
}
