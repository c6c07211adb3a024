package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"molequeue/internal/config"
)

const userAgent = "MoleQueue-Go/0.1.0"

// Service defines the notification surface exposed to daemon components.
type Service interface {
	NotifyServerError(ctx context.Context, err error, contextLabel string) error
	NotifyBindConflict(ctx context.Context, socketPath string, pid int) error
	NotifyJobSubmitted(ctx context.Context, jobID int64, queueName string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyServerError(ctx context.Context, err error, contextLabel string) error {
	contextLabel = strings.TrimSpace(contextLabel)
	message := fmt.Sprintf("Server error: %v", err)
	if contextLabel != "" {
		message = fmt.Sprintf("Server error (%s): %v", contextLabel, err)
	}
	data := payload{
		title:    "MoleQueue - Server Error",
		message:  message,
		tags:     []string{"molequeue", "server", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBindConflict(ctx context.Context, socketPath string, pid int) error {
	message := fmt.Sprintf("Another instance already owns %s", socketPath)
	if pid > 0 {
		message = fmt.Sprintf("%s (pid %d)", message, pid)
	}
	data := payload{
		title:   "MoleQueue - Startup Conflict",
		message: message,
		tags:    []string{"molequeue", "startup", "conflict"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobSubmitted(ctx context.Context, jobID int64, queueName string) error {
	data := payload{
		title:   "MoleQueue - Job Submitted",
		message: fmt.Sprintf("Job %d submitted to %s", jobID, queueName),
		tags:    []string{"molequeue", "job", "submitted"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:   "MoleQueue - Test",
		message: "Notifications are working",
		tags:    []string{"molequeue", "test"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

type noopService struct{}

func (noopService) NotifyServerError(context.Context, error, string) error { return nil }

func (noopService) NotifyBindConflict(context.Context, string, int) error { return nil }

func (noopService) NotifyJobSubmitted(context.Context, int64, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
