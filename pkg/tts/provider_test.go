package tts

import (
	"strings"
	"testing"
)

func TestIsEmptyText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", true},
		{"spaces", "   ", true},
		{"tabs and newlines", "\t\n ", true},
		{"unicode space", " ", true},
		{"word", "hello", false},
		{"word with padding", "  hello  ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isEmptyText(tt.text); got != tt.want {
				t.Errorf("isEmptyText(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClampSpeed(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		want  float64
	}{
		{"zero defaults to normal", 0, 1.0},
		{"below minimum", 0.1, 0.25},
		{"at minimum", 0.25, 0.25},
		{"in range", 1.5, 1.5},
		{"at maximum", 4.0, 4.0},
		{"above maximum", 5.0, 4.0},
		{"negative", -1, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampSpeed(tt.speed, 0.25, 4.0); got != tt.want {
				t.Errorf("clampSpeed(%v) = %v, want %v", tt.speed, got, tt.want)
			}
		})
	}
}

func TestTruncateText(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		if got := truncateText("hello", 4096); got != "hello" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("long text truncated with ellipsis", func(t *testing.T) {
		long := strings.Repeat("a", 5000)
		got := truncateText(long, 4096)
		if len([]rune(got)) != 4096 {
			t.Errorf("truncated length = %d, want 4096", len([]rune(got)))
		}
		if !strings.HasSuffix(got, "...") {
			t.Errorf("truncated text should end with ellipsis")
		}
	})

	t.Run("multibyte runes counted as one", func(t *testing.T) {
		long := strings.Repeat("é", 5000)
		got := truncateText(long, 4096)
		if n := len([]rune(got)); n != 4096 {
			t.Errorf("truncated rune count = %d, want 4096", n)
		}
	})

	t.Run("exact limit unchanged", func(t *testing.T) {
		text := strings.Repeat("b", 4096)
		if got := truncateText(text, 4096); got != text {
			t.Errorf("text at the limit should not be truncated")
		}
	})
}

func TestProviderConfigMerge(t *testing.T) {
	base := ProviderConfig{
		APIKey: "key1",
		Model:  "tts-1",
		Voice:  "alloy",
		Speed:  1.0,
		Format: "mp3",
	}

	t.Run("zero values preserved", func(t *testing.T) {
		cfg := base
		cfg.merge(ProviderConfig{Voice: "nova"})
		if cfg.Voice != "nova" {
			t.Errorf("Voice = %q, want nova", cfg.Voice)
		}
		if cfg.APIKey != "key1" || cfg.Model != "tts-1" || cfg.Speed != 1.0 {
			t.Errorf("untouched fields changed: %+v", cfg)
		}
	})

	t.Run("all fields overlay", func(t *testing.T) {
		cfg := base
		cfg.merge(ProviderConfig{
			APIKey:  "key2",
			Model:   "tts-1-hd",
			Voice:   "echo",
			VoiceID: "v2",
			Speed:   2.0,
			Format:  "wav",
			Rate:    150,
		})
		want := ProviderConfig{
			APIKey: "key2", Model: "tts-1-hd", Voice: "echo",
			VoiceID: "v2", Speed: 2.0, Format: "wav", Rate: 150,
		}
		if cfg != want {
			t.Errorf("merged = %+v, want %+v", cfg, want)
		}
	})
}

func TestConfigurationReturnsCopy(t *testing.T) {
	p := NewSayProvider(ProviderConfig{Voice: "Samantha"})
	cfg := p.Configuration()
	cfg.Voice = "Alex"

	if got := p.Configuration().Voice; got != "Samantha" {
		t.Errorf("mutating the returned config leaked into the provider: %q", got)
	}
}

func TestConfigureMerges(t *testing.T) {
	p := NewSayProvider(ProviderConfig{Voice: "Samantha", Rate: 180})
	p.Configure(ProviderConfig{Rate: 250})

	cfg := p.Configuration()
	if cfg.Voice != "Samantha" {
		t.Errorf("Configure cleared Voice: %q", cfg.Voice)
	}
	if cfg.Rate != 250 {
		t.Errorf("Rate = %d, want 250", cfg.Rate)
	}
}
