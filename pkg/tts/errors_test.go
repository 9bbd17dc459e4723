package tts

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/openai/openai-go/v3"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantNil    bool
		wantReason FailureReason
		wantStatus int
	}{
		{
			name:    "nil error",
			err:     nil,
			wantNil: true,
		},
		{
			name:    "context canceled is not a failure",
			err:     context.Canceled,
			wantNil: true,
		},
		{
			name:    "wrapped context canceled",
			err:     fmt.Errorf("request aborted: %w", context.Canceled),
			wantNil: true,
		},
		{
			name:       "deadline exceeded",
			err:        context.DeadlineExceeded,
			wantReason: FailureTimeout,
		},
		{
			name:       "status in message 401",
			err:        errors.New("API error (status 401): invalid key"),
			wantReason: FailureAuth,
			wantStatus: 401,
		},
		{
			name:       "status in message 429",
			err:        errors.New("API error (status 429): slow down"),
			wantReason: FailureRateLimit,
			wantStatus: 429,
		},
		{
			name:       "status in message 500",
			err:        errors.New("API error (status 500): boom"),
			wantReason: FailureServer,
			wantStatus: 500,
		},
		{
			name:       "status in message 400",
			err:        errors.New("API error (status 400): bad voice"),
			wantReason: FailureInput,
			wantStatus: 400,
		},
		{
			name:       "rate limit phrasing",
			err:        errors.New("rate limit exceeded for requests"),
			wantReason: FailureRateLimit,
		},
		{
			name:       "quota phrasing",
			err:        errors.New("You exceeded your current quota: quota exceeded"),
			wantReason: FailureRateLimit,
		},
		{
			name:       "auth phrasing",
			err:        errors.New("Incorrect API key provided"),
			wantReason: FailureAuth,
		},
		{
			name:       "unauthorized phrasing",
			err:        errors.New("unauthorized"),
			wantReason: FailureAuth,
		},
		{
			name:       "timeout phrasing",
			err:        errors.New("dial tcp: i/o timeout"),
			wantReason: FailureTimeout,
		},
		{
			name:       "unrecognized error is unknown",
			err:        errors.New("something odd happened"),
			wantReason: FailureUnknown,
		},
		{
			name:       "sdk error carries status",
			err:        &openai.Error{StatusCode: 429},
			wantReason: FailureRateLimit,
			wantStatus: 429,
		},
		{
			name:       "sdk auth error",
			err:        &openai.Error{StatusCode: 401},
			wantReason: FailureAuth,
			wantStatus: 401,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err, "openai")
			if tt.wantNil {
				if got != nil {
					t.Fatalf("ClassifyError() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("ClassifyError() = nil, want classified error")
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", got.Status, tt.wantStatus)
			}
			if got.Provider != "openai" {
				t.Errorf("Provider = %q, want openai", got.Provider)
			}
		})
	}
}

func TestSpeechErrorIsRetriable(t *testing.T) {
	tests := []struct {
		reason FailureReason
		want   bool
	}{
		{FailureAuth, false},
		{FailureInput, false},
		{FailureRateLimit, true},
		{FailureServer, true},
		{FailureTimeout, true},
		{FailureUnknown, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			e := &SpeechError{Reason: tt.reason}
			if got := e.IsRetriable(); got != tt.want {
				t.Errorf("IsRetriable(%s) = %v, want %v", tt.reason, got, tt.want)
			}
		})
	}
}

func TestSpeechErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	e := &SpeechError{Reason: FailureServer, Wrapped: inner}
	if !errors.Is(e, inner) {
		t.Error("errors.Is should see through SpeechError")
	}
}

func TestExtractHTTPStatus(t *testing.T) {
	tests := []struct {
		msg  string
		want int
	}{
		{"API error (status 503): overloaded", 503},
		{"got HTTP/1.1 404 Not Found", 404},
		{"status: 429", 429},
		{"no status here", 0},
		{"status 999 out of range", 0},
		{"id 123456 is not a status", 0},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := extractHTTPStatus(tt.msg); got != tt.want {
				t.Errorf("extractHTTPStatus(%q) = %d, want %d", tt.msg, got, tt.want)
			}
		})
	}
}
