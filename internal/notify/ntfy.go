package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"conveyor/internal/config"
	"conveyor/internal/logging"
)

const ntfyUserAgent = "Conveyor/0.1.0"

// NtfySink forwards selected notifications to an ntfy topic. When no topic
// is configured, NewNtfySink returns nil and nothing is forwarded.
type NtfySink struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
	pipeline bool
	steps    bool
	errors   bool
}

// NewNtfySink builds a sink from config, or nil when forwarding is disabled.
func NewNtfySink(cfg *config.Config, logger *slog.Logger) *NtfySink {
	if cfg == nil {
		return nil
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return nil
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NtfySink{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		logger:   logging.NewComponentLogger(logger, "ntfy"),
		pipeline: cfg.Notifications.Pipeline,
		steps:    cfg.Notifications.Steps,
		errors:   cfg.Notifications.Errors,
	}
}

// Attach subscribes the sink to a service and returns the unsubscribe
// function. Safe to call on a nil sink.
func (n *NtfySink) Attach(svc *Service) func() {
	if n == nil || svc == nil {
		return func() {}
	}
	return svc.Subscribe(n.handle)
}

func (n *NtfySink) handle(notification Notification) {
	if !n.wants(notification) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
	defer cancel()
	if err := n.send(ctx, notification); err != nil {
		n.logger.Warn("ntfy forward failed",
			logging.Error(err),
			logging.String("notification_id", notification.ID))
	}
}

func (n *NtfySink) wants(notification Notification) bool {
	if notification.Type == TypeError || notification.Type == TypeWarning {
		return n.errors
	}
	switch notification.Category {
	case CategoryPipeline:
		return n.pipeline
	case CategoryStep:
		return n.steps
	default:
		return false
	}
}

func (n *NtfySink) send(ctx context.Context, notification Notification) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(notification.Message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", ntfyUserAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if notification.Title != "" {
		req.Header.Set("Title", notification.Title)
	}
	req.Header.Set("Tags", "conveyor,"+string(notification.Category))
	if notification.Type == TypeError {
		req.Header.Set("Priority", "high")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
