package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pharmawatch/internal/config"
)

func testConfig(url, key string) config.Completion {
	return config.Completion{
		URL:         url,
		Model:       "sonar-pro",
		APIKey:      key,
		Temperature: 0.2,
		MaxTokens:   200,
		Timeout:     5 * time.Second,
	}
}

func TestCompleteSendsRequestAndReturnsContent(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"Ticker: ABCD"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, "secret"))
	reply, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "Ticker: ABCD" {
		t.Errorf("unexpected reply %q", reply)
	}

	if got.Model != "sonar-pro" || got.MaxTokens != 200 {
		t.Errorf("unexpected request %+v", got)
	}
	if got.Temperature == nil || *got.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", got.Temperature)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "hello" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestCompleteNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL, "secret")).Complete(context.Background(), "x")
	if !errors.Is(err, ErrStatus) {
		t.Errorf("expected ErrStatus, got %v", err)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL, "secret")).Complete(context.Background(), "x")
	if !errors.Is(err, ErrEmptyReply) {
		t.Errorf("expected ErrEmptyReply, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"unauthorized", http.StatusUnauthorized, true},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ChatRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&req)
				w.WriteHeader(tt.status)
				w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			err := NewClient(testConfig(srv.URL, "secret")).Probe(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Probe() error = %v, wantErr %v", err, tt.wantErr)
			}
			if req.MaxTokens != 10 || len(req.Messages) != 1 || req.Messages[0].Content != probePrompt {
				t.Errorf("unexpected probe request %+v", req)
			}
		})
	}
}

func TestMissingAPIKeyMakesNoRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL, "  "))
	if err := c.Probe(context.Background()); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Probe: expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := c.Complete(context.Background(), "x"); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Complete: expected ErrMissingAPIKey, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if err := NewClient(testConfig(url, "secret")).Probe(context.Background()); err == nil {
		t.Error("expected transport error")
	}
}
