package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quire/internal/config"
	"quire/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(config.Notifications{})
	if err := svc.Publish(context.Background(), notifications.EventVariantFailed, notifications.Payload{"variant": "standard"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "variant succeeded",
			event: notifications.EventVariantSucceeded,
			payload: notifications.Payload{
				"title":    "Collected Verses",
				"variant":  "standard",
				"output":   "/books/build/book.epub",
				"duration": 75 * time.Second,
			},
			expectTitle:   "quire - Build Complete",
			expectMessage: "📘 Collected Verses (standard) built\nFile: /books/build/book.epub\nTook: 1m15s",
			expectTags:    "quire,build,standard",
		},
		{
			name:  "variant failed",
			event: notifications.EventVariantFailed,
			payload: notifications.Payload{
				"variant": "google-play",
				"stage":   "compat",
				"error":   errors.New("ebook-convert exited with status 1"),
			},
			expectTitle:    "quire - Build Failed",
			expectMessage:  "❌ google-play build failed in compat: ebook-convert exited with status 1",
			expectTags:     "quire,error,alert",
			expectPriority: "high",
		},
		{
			name:  "run completed with errors",
			event: notifications.EventRunCompleted,
			payload: notifications.Payload{
				"succeeded": 1,
				"failed":    1,
			},
			expectTitle:   "quire - Run Complete (with errors)",
			expectMessage: "1 variants built, 1 failed",
			expectTags:    "quire,run,completed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL, RequestTimeout: 5})
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceSkipsSingleVariantRunSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call: %s", r.URL.String())
	}))
	defer server.Close()

	svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL})
	events := []struct {
		event   notifications.Event
		payload notifications.Payload
	}{
		{notifications.EventRunCompleted, notifications.Payload{"succeeded": 1}},
		{notifications.Event("unknown"), notifications.Payload{"value": "ignored"}},
	}
	for _, e := range events {
		if err := svc.Publish(context.Background(), e.event, e.payload); err != nil {
			t.Fatalf("expected no error for %s, got %v", e.event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic gone", http.StatusNotFound)
	}))
	defer server.Close()

	svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL})
	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
}
