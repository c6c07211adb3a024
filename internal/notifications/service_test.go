package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"molequeue/internal/config"
	"molequeue/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyServerError(context.Background(), errors.New("boom"), "listen"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	type captured struct {
		title    string
		message  string
		tags     string
		priority string
	}

	var got captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = captured{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyServerError(context.Background(), errors.New("address in use"), "listen"); err != nil {
		t.Fatalf("NotifyServerError: %v", err)
	}
	if got.title != "MoleQueue - Server Error" {
		t.Fatalf("title = %q", got.title)
	}
	if !strings.Contains(got.message, "address in use") || !strings.Contains(got.message, "listen") {
		t.Fatalf("message = %q", got.message)
	}
	if got.priority != "high" {
		t.Fatalf("priority = %q, want high", got.priority)
	}

	if err := svc.NotifyBindConflict(context.Background(), "/run/mq.sock", 4321); err != nil {
		t.Fatalf("NotifyBindConflict: %v", err)
	}
	if !strings.Contains(got.message, "/run/mq.sock") || !strings.Contains(got.message, "4321") {
		t.Fatalf("message = %q", got.message)
	}
	if got.tags != "molequeue,startup,conflict" {
		t.Fatalf("tags = %q", got.tags)
	}

	if err := svc.NotifyJobSubmitted(context.Background(), 7, "local"); err != nil {
		t.Fatalf("NotifyJobSubmitted: %v", err)
	}
	if got.message != "Job 7 submitted to local" {
		t.Fatalf("message = %q", got.message)
	}
}

func TestNtfyServiceReportsHTTPFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)

	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP failure")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("unexpected error: %v", err)
	}
}
