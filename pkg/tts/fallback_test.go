package tts

import (
	"context"
	"testing"
)

func TestFallbackPrimarySuccessSkipsSecondary(t *testing.T) {
	primary := &stubProvider{name: "primary", available: true}
	secondary := &stubProvider{name: "secondary", available: true}
	f := NewFallbackProvider(primary, secondary)

	result := f.Speak(context.Background(), "hello")
	if !result.Success || result.Provider != "primary" {
		t.Fatalf("result = %+v", result)
	}
	if len(secondary.speakLog) != 0 {
		t.Errorf("secondary was dispatched %d times, want 0", len(secondary.speakLog))
	}
}

func TestFallbackSingleHop(t *testing.T) {
	primary := &stubProvider{
		name:   "primary",
		result: &SpeakResult{Success: false, Provider: "primary", Error: "server error"},
	}
	secondary := &stubProvider{
		name:   "secondary",
		result: &SpeakResult{Success: false, Provider: "secondary", Error: "also down"},
	}
	f := NewFallbackProvider(primary, secondary)

	result := f.Speak(context.Background(), "hello")
	if result.Success {
		t.Fatal("expected failure when both tiers fail")
	}
	if result.Provider != "secondary" {
		t.Errorf("final result from %q, want secondary (its outcome is final)", result.Provider)
	}
	if len(primary.speakLog) != 1 || len(secondary.speakLog) != 1 {
		t.Errorf("speak counts: primary %d, secondary %d, want exactly one hop",
			len(primary.speakLog), len(secondary.speakLog))
	}
}

func TestFallbackEmptyTextNotRedispatched(t *testing.T) {
	primary := &stubProvider{
		name:   "primary",
		result: &SpeakResult{Success: false, Provider: "primary", Error: emptyTextError},
	}
	secondary := &stubProvider{name: "secondary", available: true}
	f := NewFallbackProvider(primary, secondary)

	result := f.Speak(context.Background(), "")
	if result.Success {
		t.Fatal("expected failure")
	}
	if len(secondary.speakLog) != 0 {
		t.Errorf("input errors must not be re-dispatched; secondary saw %d calls", len(secondary.speakLog))
	}
}

func TestFallbackAvailability(t *testing.T) {
	tests := []struct {
		name      string
		primary   bool
		secondary bool
		want      bool
	}{
		{"both", true, true, true},
		{"primary only", true, false, true},
		{"secondary only", false, true, true},
		{"neither", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFallbackProvider(
				&stubProvider{available: tt.primary},
				&stubProvider{available: tt.secondary},
			)
			if got := f.IsAvailable(); got != tt.want {
				t.Errorf("IsAvailable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFallbackConfigureTargetsPrimary(t *testing.T) {
	primary := &stubProvider{name: "primary"}
	secondary := &stubProvider{name: "secondary"}
	f := NewFallbackProvider(primary, secondary)

	f.Configure(ProviderConfig{Voice: "nova"})
	if got := primary.Configuration().Voice; got != "nova" {
		t.Errorf("primary voice = %q, want nova", got)
	}
	if got := secondary.Configuration().Voice; got != "" {
		t.Errorf("secondary voice = %q, want untouched", got)
	}
}

func TestFallbackCancelReachesBoth(t *testing.T) {
	primary := &stubProvider{name: "primary"}
	secondary := &stubProvider{name: "secondary"}
	f := NewFallbackProvider(primary, secondary)

	f.CancelSpeech()
	if !primary.canceled || !secondary.canceled {
		t.Errorf("cancel flags: primary %v, secondary %v, want both true", primary.canceled, secondary.canceled)
	}
}
