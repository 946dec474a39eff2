package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"auroraai/internal/domain"
)

func testInfo() domain.AdapterInfo {
	return domain.AdapterInfo{
		ID:        "cognitia",
		Name:      "Cognitia",
		Modality:  domain.ModalityText,
		MaxTokens: 4000,
	}
}

func fastRetry() retryConfig {
	return retryConfig{
		MaxRetries:  2,
		BackoffBase: time.Millisecond,
		BackoffMax:  5 * time.Millisecond,
	}
}

func completionBody(content string, tokens int) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"total_tokens": tokens},
	})
	return string(body)
}

func TestOpenAICompatSuccess(t *testing.T) {
	var gotAuth string
	var gotReq map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(completionBody("a considered answer", 120)))
	}))
	defer srv.Close()

	c := NewOpenAICompat(testInfo(), srv.URL, "test-key", "cognitia-large")
	resp, err := c.Invoke(context.Background(), &domain.Request{
		Modality: domain.ModalityText,
		Prompt:   "why is the sky blue",
		Text:     &domain.TextOptions{MaxTokens: 256, Temperature: 0.7},
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if resp.Failed() {
		t.Fatalf("response failed: %s", resp.Error)
	}
	if resp.Content != "a considered answer" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.TokensUsed != 120 {
		t.Errorf("tokens = %d, want 120", resp.TokensUsed)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq["model"] != "cognitia-large" {
		t.Errorf("model = %v, want cognitia-large", gotReq["model"])
	}
	if gotReq["max_tokens"] != float64(256) {
		t.Errorf("max_tokens = %v, want 256", gotReq["max_tokens"])
	}
}

func TestOpenAICompatFailureClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantReason domain.FailureReason
		wantCalls  int32 // transient reasons retry, terminal ones stop
	}{
		{"auth rejected", http.StatusUnauthorized, domain.FailureAuth, 1},
		{"forbidden", http.StatusForbidden, domain.FailureAuth, 1},
		{"bad request", http.StatusBadRequest, domain.FailureInternal, 1},
		{"throttled", http.StatusTooManyRequests, domain.FailureThrottled, 3},
		{"server error", http.StatusInternalServerError, domain.FailureUpstream, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewOpenAICompat(testInfo(), srv.URL, "k", "m")
			c.retry = fastRetry()

			resp, err := c.Invoke(context.Background(), &domain.Request{
				Modality: domain.ModalityText,
				Prompt:   "q",
			})
			if err != nil {
				t.Fatalf("Invoke: %v", err)
			}

			if !resp.Failed() {
				t.Fatal("expected failed response")
			}
			if resp.FailureReason != tt.wantReason {
				t.Errorf("reason = %s, want %s", resp.FailureReason, tt.wantReason)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("upstream calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestOpenAICompatRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(completionBody("recovered", 10)))
	}))
	defer srv.Close()

	c := NewOpenAICompat(testInfo(), srv.URL, "k", "m")
	c.retry = fastRetry()

	resp, err := c.Invoke(context.Background(), &domain.Request{
		Modality: domain.ModalityText,
		Prompt:   "q",
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if resp.Failed() {
		t.Fatalf("response failed after retry: %s", resp.Error)
	}
	if resp.Content != "recovered" {
		t.Errorf("content = %q, want recovered", resp.Content)
	}
	if calls.Load() != 2 {
		t.Errorf("upstream calls = %d, want 2", calls.Load())
	}
}

func TestOpenAICompatMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c := NewOpenAICompat(testInfo(), srv.URL, "k", "m")
	c.retry = fastRetry()

	resp, err := c.Invoke(context.Background(), &domain.Request{
		Modality: domain.ModalityText,
		Prompt:   "q",
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if resp.FailureReason != domain.FailureMalformed {
		t.Errorf("reason = %s, want %s", resp.FailureReason, domain.FailureMalformed)
	}
}

func TestOpenAICompatNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [], "usage": {"total_tokens": 0}}`))
	}))
	defer srv.Close()

	c := NewOpenAICompat(testInfo(), srv.URL, "k", "m")
	c.retry = fastRetry()

	resp, err := c.Invoke(context.Background(), &domain.Request{
		Modality: domain.ModalityText,
		Prompt:   "q",
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if !resp.Failed() || resp.FailureReason != domain.FailureMalformed {
		t.Errorf("reason = %s, want %s", resp.FailureReason, domain.FailureMalformed)
	}
}
