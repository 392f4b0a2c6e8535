package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/filaform/filatag/types"
)

func testEvent() *types.EventEnvelope {
	return &types.EventEnvelope{
		EventID:    "evt-1",
		Seq:        1,
		Type:       types.EventTagDetected,
		Ts:         types.Timestamp(time.Now()),
		SessionID:  "session-1",
		SKU:        "PLA001",
		TagOrdinal: 1,
	}
}

func TestAdapter_Publish(t *testing.T) {
	var received types.EventEnvelope
	var contentType, header string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		header = r.Header.Get("X-Auth")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := New(Config{
		URL:     srv.URL,
		Headers: map[string]string{"X-Auth": "secret"},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	if err := a.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}
	if header != "secret" {
		t.Errorf("X-Auth = %q, want secret", header)
	}
	if received.Type != types.EventTagDetected {
		t.Errorf("Type = %q, want tag_detected", received.Type)
	}
	if received.SessionID != "session-1" {
		t.Errorf("SessionID = %q, want session-1", received.SessionID)
	}
}

func TestAdapter_Publish_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := New(Config{URL: srv.URL, Retries: 2})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	if err := a.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("request count = %d, want 2", got)
	}
}

func TestAdapter_Publish_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	a, err := New(Config{URL: srv.URL, Retries: 3})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	if err := a.Publish(context.Background(), testEvent()); err == nil {
		t.Fatal("Publish succeeded on 400, want error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("request count = %d, want 1 (no retries on 4xx)", got)
	}
}

func TestAdapter_Publish_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a, err := New(Config{URL: srv.URL, Retries: 5})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.Publish(ctx, testEvent()); err == nil {
		t.Error("Publish succeeded with canceled context")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New accepted empty URL")
	}
	if _, err := New(Config{URL: "http://localhost:1", Retries: -1}); err == nil {
		t.Error("New accepted negative retries")
	}
}
