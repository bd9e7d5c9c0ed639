package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fabline/internal/config"
)

const userAgent = "Fabline/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyReworkDue(ctx context.Context, jobCode, batchID, stage string, quantity int) error
	NotifyQCRejected(ctx context.Context, jobCode, stage, reason string) error
	NotifyCustomerReturn(ctx context.Context, jobCode, batchID string, quantity int, reason string) error
	NotifyBatchScrapped(ctx context.Context, jobCode, batchID string, quantity int, reason string) error
	NotifyJobDispatched(ctx context.Context, jobCode string, quantity int) error
	NotifyOrderClosed(ctx context.Context, jobCode string) error
	NotifyError(ctx context.Context, err error, context string) error
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
		prefs:    cfg.Notifications,
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
	prefs    config.Notifications
}

func (n *ntfyService) NotifyReworkDue(ctx context.Context, jobCode, batchID, stage string, quantity int) error {
	if !n.prefs.Rework {
		return nil
	}
	data := payload{
		title:   "Fabline - Follow-up Due",
		message: fmt.Sprintf("Batch %s of %s (%d pcs) is still waiting at %s", batchID, strings.TrimSpace(jobCode), quantity, stage),
		tags:    []string{"fabline", "rework", "reminder"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQCRejected(ctx context.Context, jobCode, stage, reason string) error {
	if !n.prefs.QC {
		return nil
	}
	message := fmt.Sprintf("QC rejected %s at %s", strings.TrimSpace(jobCode), stage)
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s\nReason: %s", message, reason)
	}
	data := payload{
		title:    "Fabline - QC Rejected",
		message:  message,
		tags:     []string{"fabline", "qc", "rejected"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCustomerReturn(ctx context.Context, jobCode, batchID string, quantity int, reason string) error {
	if !n.prefs.Returns {
		return nil
	}
	message := fmt.Sprintf("Customer returned %d pcs of %s as %s", quantity, strings.TrimSpace(jobCode), batchID)
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s\nReason: %s", message, reason)
	}
	data := payload{
		title:    "Fabline - Customer Return",
		message:  message,
		tags:     []string{"fabline", "return"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchScrapped(ctx context.Context, jobCode, batchID string, quantity int, reason string) error {
	if !n.prefs.Returns {
		return nil
	}
	message := fmt.Sprintf("Scrapped %s of %s (%d pcs)", batchID, strings.TrimSpace(jobCode), quantity)
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s\nReason: %s", message, reason)
	}
	data := payload{
		title:   "Fabline - Batch Scrapped",
		message: message,
		tags:    []string{"fabline", "scrap"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobDispatched(ctx context.Context, jobCode string, quantity int) error {
	if !n.prefs.Dispatch {
		return nil
	}
	data := payload{
		title:   "Fabline - Dispatched",
		message: fmt.Sprintf("Dispatched %s (%d pcs)", strings.TrimSpace(jobCode), quantity),
		tags:    []string{"fabline", "dispatch", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyOrderClosed(ctx context.Context, jobCode string) error {
	if !n.prefs.Dispatch {
		return nil
	}
	data := payload{
		title:    "Fabline - Order Closed",
		message:  fmt.Sprintf("Payment received, order closed: %s", strings.TrimSpace(jobCode)),
		tags:     []string{"fabline", "order", "closed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.prefs.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Fabline - Error",
		message:  builder.String(),
		tags:     []string{"fabline", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Fabline - Test",
		message:  "Notification system test",
		tags:     []string{"fabline", "test"},
		priority: "low",
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

func (noopService) NotifyReworkDue(context.Context, string, string, string, int) error      { return nil }
func (noopService) NotifyQCRejected(context.Context, string, string, string) error          { return nil }
func (noopService) NotifyCustomerReturn(context.Context, string, string, int, string) error { return nil }
func (noopService) NotifyBatchScrapped(context.Context, string, string, int, string) error  { return nil }
func (noopService) NotifyJobDispatched(context.Context, string, int) error                  { return nil }
func (noopService) NotifyOrderClosed(context.Context, string) error                         { return nil }
func (noopService) NotifyError(context.Context, error, string) error                        { return nil }
func (noopService) TestNotification(context.Context) error                                  { return nil }
