package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"

	"github.com/miradorstack/mirador-resolver/internal/models"
)

// Notifier delivers raised alerts to a presentation collaborator.
type Notifier interface {
	Notify(ctx context.Context, raised []models.Alert) error
}

// LogNotifier writes alerts to a structured logger, throttling bursts.
type LogNotifier struct {
	logger  *slog.Logger
	limiter *rate.Limiter
}

// NewLogNotifier allows burst log lines and then one per interval.
// A non-positive interval disables throttling.
func NewLogNotifier(logger *slog.Logger, every time.Duration, burst int) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}
	return &LogNotifier{logger: logger, limiter: rate.NewLimiter(limit, burst)}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, raised []models.Alert) error {
	if len(raised) == 0 {
		return nil
	}
	if !n.limiter.Allow() {
		n.logger.Debug("alert log throttled", slog.Int("alerts", len(raised)))
		return nil
	}
	for _, alert := range raised {
		n.logger.WarnContext(ctx, "auto-resolution alert",
			slog.String("rule", alert.Rule),
			slog.String("severity", string(alert.Severity)),
			slog.String("message", alert.Message),
		)
	}
	return nil
}

// Publisher is the subset of *nats.Conn used for alert fan-out.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes each alert as JSON on a subject.
type NATSNotifier struct {
	publisher Publisher
	subject   string
	conn      *nats.Conn
}

// NewNATSNotifier wraps an existing publisher.
func NewNATSNotifier(publisher Publisher, subject string) *NATSNotifier {
	return &NATSNotifier{publisher: publisher, subject: subject}
}

// DialNATS connects to url and returns a notifier that owns the connection.
func DialNATS(url, subject string) (*NATSNotifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("mirador-resolver"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATSNotifier{publisher: nc, subject: subject, conn: nc}, nil
}

// Notify implements Notifier.
func (n *NATSNotifier) Notify(ctx context.Context, raised []models.Alert) error {
	var errs []error
	for _, alert := range raised {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(alert)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal alert %s: %w", alert.Rule, err))
			continue
		}
		if err := n.publisher.Publish(n.subject, data); err != nil {
			errs = append(errs, fmt.Errorf("publish alert %s: %w", alert.Rule, err))
		}
	}
	return errors.Join(errs...)
}

// Close drains the owned connection, if any.
func (n *NATSNotifier) Close() {
	if n.conn != nil {
		_ = n.conn.Drain()
	}
}

// Fanout delivers to every notifier, joining their errors.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(ctx context.Context, raised []models.Alert) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, raised); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
