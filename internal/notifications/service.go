package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quire/internal/config"
)

const userAgent = "quire/0.1.0"

// Event names a build milestone.
type Event string

const (
	EventVariantSucceeded Event = "variant_succeeded"
	EventVariantFailed    Event = "variant_failed"
	EventRunCompleted     Event = "run_completed"
	EventTest             Event = "test"
)

// Payload carries event fields. Keys are documented per event in format.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventVariantSucceeded:
		body := fmt.Sprintf("📘 %s (%s) built", text(payload, "title"), text(payload, "variant"))
		if out := text(payload, "output"); out != "" {
			body += "\nFile: " + out
		}
		if d := duration(payload, "duration"); d > 0 {
			body += "\nTook: " + d.Round(time.Second).String()
		}
		return message{
			title: "quire - Build Complete",
			body:  body,
			tags:  []string{"quire", "build", text(payload, "variant")},
		}, true
	case EventVariantFailed:
		var b strings.Builder
		b.WriteString("❌ ")
		b.WriteString(text(payload, "variant"))
		b.WriteString(" build failed")
		if stage := text(payload, "stage"); stage != "" {
			b.WriteString(" in ")
			b.WriteString(stage)
		}
		b.WriteString(": ")
		if errText := text(payload, "error"); errText != "" {
			b.WriteString(errText)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "quire - Build Failed",
			body:     b.String(),
			tags:     []string{"quire", "error", "alert"},
			priority: "high",
		}, true
	case EventRunCompleted:
		built, failed := count(payload, "succeeded"), count(payload, "failed")
		if built+failed < 2 {
			return message{}, false
		}
		title := "quire - Run Complete"
		if failed > 0 {
			title = "quire - Run Complete (with errors)"
		}
		return message{
			title: title,
			body:  fmt.Sprintf("%d variants built, %d failed", built, failed),
			tags:  []string{"quire", "run", "completed"},
		}, true
	case EventTest:
		return message{
			title:    "quire - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"quire", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func text(payload Payload, key string) string {
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func duration(payload Payload, key string) time.Duration {
	if d, ok := payload[key].(time.Duration); ok && d > 0 {
		return d
	}
	return 0
}

func count(payload Payload, key string) int {
	if n, ok := payload[key].(int); ok {
		return n
	}
	return 0
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if tags := compact(data.tags); len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
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

func compact(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
