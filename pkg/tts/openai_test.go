package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

type speechRequest struct {
	Model string  `json:"model"`
	Input string  `json:"input"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

func newOpenAITestProvider(t *testing.T, handler http.Handler) (*OpenAIProvider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p := NewOpenAIProvider(
		ProviderConfig{APIKey: "test-key"},
		nil,
		WithOpenAIBaseURL(server.URL+"/v1/"),
		WithOpenAIRetryPolicy(testRetryPolicy(4)),
	)
	return p, server
}

func TestOpenAISpeakEmptyTextMakesNoRequests(t *testing.T) {
	var requests atomic.Int64
	p, _ := newOpenAITestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("audio"))
	}))

	for _, text := range []string{"", "   ", "\t\n"} {
		result := p.Speak(context.Background(), text)
		if result.Success {
			t.Errorf("Speak(%q) succeeded, want failure", text)
		}
		if !strings.Contains(result.Error, "Empty text") {
			t.Errorf("Speak(%q) error = %q, want empty text error", text, result.Error)
		}
	}

	if n := requests.Load(); n != 0 {
		t.Errorf("backend received %d requests, want 0", n)
	}
}

func TestOpenAISpeakMissingKeyFailsWithoutRequest(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	p := NewOpenAIProvider(ProviderConfig{}, nil, WithOpenAIBaseURL(server.URL+"/v1/"))
	if p.IsAvailable() {
		t.Error("provider without key should be unavailable")
	}

	result := p.Speak(context.Background(), "hello")
	if result.Success {
		t.Fatal("expected failure without API key")
	}
	if !strings.Contains(result.Error, "API key") {
		t.Errorf("error = %q, want API key message", result.Error)
	}
	if n := requests.Load(); n != 0 {
		t.Errorf("backend received %d requests, want 0", n)
	}
}

func TestOpenAISpeakClampsSpeed(t *testing.T) {
	var got speechRequest
	p, _ := newOpenAITestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte("audio-bytes"))
	}))

	p.Configure(ProviderConfig{Speed: 5.0})
	result := p.Speak(context.Background(), "hello world")
	if !result.Success {
		t.Fatalf("Speak failed: %s", result.Error)
	}
	if got.Speed != 4.0 {
		t.Errorf("request speed = %v, want clamped 4.0", got.Speed)
	}
	if got.Input != "hello world" {
		t.Errorf("request input = %q", got.Input)
	}
}

func TestOpenAISpeakTruncatesLongText(t *testing.T) {
	var got speechRequest
	p, _ := newOpenAITestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte("audio-bytes"))
	}))

	result := p.Speak(context.Background(), strings.Repeat("x", 10000))
	if !result.Success {
		t.Fatalf("Speak failed: %s", result.Error)
	}
	if n := len([]rune(got.Input)); n != 4096 {
		t.Errorf("request input length = %d, want 4096", n)
	}
	if !strings.HasSuffix(got.Input, "...") {
		t.Error("truncated input should end with ellipsis")
	}
}

func TestOpenAISpeakAuthFailureIsTerminal(t *testing.T) {
	var requests atomic.Int64
	p, _ := newOpenAITestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))

	result := p.Speak(context.Background(), "hello")
	if result.Success {
		t.Fatal("expected failure on 401")
	}
	if !strings.Contains(result.Error, "API key") {
		t.Errorf("error = %q, want API key message", result.Error)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("backend received %d requests, want 1 (401 must not be retried)", n)
	}
}

func TestOpenAISpeakRetriesRateLimit(t *testing.T) {
	var requests atomic.Int64
	p, _ := newOpenAITestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) <= 2 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
			return
		}
		w.Write([]byte("audio-bytes"))
	}))

	result := p.Speak(context.Background(), "hello")
	if !result.Success {
		t.Fatalf("Speak failed after retries: %s", result.Error)
	}
	if n := requests.Load(); n != 3 {
		t.Errorf("backend received %d requests, want 3 (two 429s then success)", n)
	}
}

func TestOpenAISpeakExhaustedRetriesReportRateLimit(t *testing.T) {
	var requests atomic.Int64
	p, _ := newOpenAITestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))

	result := p.Speak(context.Background(), "hello")
	if result.Success {
		t.Fatal("expected failure after exhausting retries")
	}
	if !strings.Contains(result.Error, "rate limit") {
		t.Errorf("error = %q, want rate limit message", result.Error)
	}
	if n := requests.Load(); n != 4 {
		t.Errorf("backend received %d requests, want 4", n)
	}
}

func TestOpenAIVoices(t *testing.T) {
	p := NewOpenAIProvider(ProviderConfig{APIKey: "k"}, nil)
	voices, err := p.Voices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(voices) != 6 {
		t.Errorf("voice count = %d, want 6", len(voices))
	}

	voices[0].Name = "mutated"
	again, _ := p.Voices(context.Background())
	if again[0].Name == "mutated" {
		t.Error("Voices must return a copy")
	}
}

func TestOpenAIProviderInfo(t *testing.T) {
	p := NewOpenAIProvider(ProviderConfig{}, nil)
	info := p.ProviderInfo()
	if info.Name != ProviderOpenAI {
		t.Errorf("Name = %q", info.Name)
	}
	if !info.RequiresAPIKey {
		t.Error("OpenAI provider requires an API key")
	}
}
