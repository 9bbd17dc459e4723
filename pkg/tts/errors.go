package tts

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/openai/openai-go/v3"
)

// FailureReason tags why a backend call failed. The tag decides whether
// the retry loop tries again and which terminal message the caller sees.
type FailureReason string

const (
	FailureAuth      FailureReason = "auth"
	FailureRateLimit FailureReason = "rate_limit"
	FailureServer    FailureReason = "server"
	FailureTimeout   FailureReason = "timeout"
	FailureInput     FailureReason = "input"
	FailureUnknown   FailureReason = "unknown"
)

// SpeechError is a classified backend failure.
type SpeechError struct {
	Reason   FailureReason
	Provider string
	Status   int
	Wrapped  error
}

func (e *SpeechError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Reason))
	if e.Provider != "" {
		sb.WriteString(" (" + e.Provider)
		if e.Status > 0 {
			sb.WriteString(fmt.Sprintf(", status %d", e.Status))
		}
		sb.WriteString(")")
	} else if e.Status > 0 {
		sb.WriteString(fmt.Sprintf(" (status %d)", e.Status))
	}
	if e.Wrapped != nil {
		sb.WriteString(": " + e.Wrapped.Error())
	}
	return sb.String()
}

func (e *SpeechError) Unwrap() error {
	return e.Wrapped
}

// IsRetriable reports whether another attempt against the same backend
// can reasonably succeed.
func (e *SpeechError) IsRetriable() bool {
	switch e.Reason {
	case FailureRateLimit, FailureServer, FailureTimeout, FailureUnknown:
		return true
	default:
		return false
	}
}

var statusPattern = regexp.MustCompile(`(?i)(?:status:?\s*|HTTP/[\d.]+\s+)(\d{3})\b`)

// extractHTTPStatus pulls an HTTP status code out of an error message.
// Returns 0 when none is present.
func extractHTTPStatus(msg string) int {
	matches := statusPattern.FindStringSubmatch(msg)
	if len(matches) < 2 {
		return 0
	}
	status, err := strconv.Atoi(matches[1])
	if err != nil || status < 100 || status > 599 {
		return 0
	}
	return status
}

// ClassifyError maps a backend error to a SpeechError. Returns nil for
// nil errors and for context.Canceled (user abort is not a backend
// failure). Unrecognized errors classify as FailureUnknown so the retry
// loop treats them as transient.
func ClassifyError(err error, provider string) *SpeechError {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}

	fail := func(reason FailureReason, status int) *SpeechError {
		return &SpeechError{Reason: reason, Provider: provider, Status: status, Wrapped: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fail(FailureTimeout, 0)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fail(reasonForStatus(apiErr.StatusCode), apiErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fail(FailureTimeout, 0)
	}

	msg := strings.ToLower(err.Error())

	if status := extractHTTPStatus(msg); status > 0 {
		return fail(reasonForStatus(status), status)
	}

	switch {
	case containsAny(msg,
		"rate limit", "rate_limit", "too many requests", "quota exceeded",
		"resource_exhausted", "resource has been exhausted", "overloaded"):
		return fail(FailureRateLimit, 0)
	case containsAny(msg,
		"invalid api key", "invalid_api_key", "incorrect api key",
		"unauthorized", "authentication failed", "access denied", "forbidden"):
		return fail(FailureAuth, 0)
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return fail(FailureTimeout, 0)
	}

	return fail(FailureUnknown, 0)
}

func reasonForStatus(status int) FailureReason {
	switch {
	case status == 401 || status == 403:
		return FailureAuth
	case status == 408:
		return FailureTimeout
	case status == 429:
		return FailureRateLimit
	case status >= 500:
		return FailureServer
	case status >= 400:
		return FailureInput
	default:
		return FailureUnknown
	}
}

func containsAny(msg string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// terminalMessage renders the user-facing failure message after retries
// are exhausted or a terminal error was hit. Rate limits and server
// errors are distinguished; auth failures name the API key.
func terminalMessage(displayName string, serr *SpeechError) string {
	switch serr.Reason {
	case FailureAuth:
		return fmt.Sprintf("Invalid or missing %s API key: %v", displayName, serr.Wrapped)
	case FailureRateLimit:
		return fmt.Sprintf("%s rate limit exceeded: %v", displayName, serr.Wrapped)
	case FailureServer:
		if serr.Status > 0 {
			return fmt.Sprintf("Server error from %s (status %d): %v", displayName, serr.Status, serr.Wrapped)
		}
		return fmt.Sprintf("Server error from %s: %v", displayName, serr.Wrapped)
	case FailureTimeout:
		return fmt.Sprintf("%s request timed out: %v", displayName, serr.Wrapped)
	default:
		return fmt.Sprintf("%s synthesis failed: %v", displayName, serr.Wrapped)
	}
}
