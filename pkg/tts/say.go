package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	sayMinRate     = 50
	sayMaxRate     = 500
	sayDefaultRate = 200
)

// execCommand is swapped in tests to avoid spawning real processes.
var execCommand = exec.CommandContext

// SayProvider speaks through the macOS `say` binary. It needs no
// network and no credentials, which makes it the last-resort tier.
type SayProvider struct {
	configState
	mu  sync.Mutex
	cmd *exec.Cmd
}

var _ Provider = (*SayProvider)(nil)

func NewSayProvider(cfg ProviderConfig) *SayProvider {
	p := &SayProvider{}
	p.cfg = ProviderConfig{Rate: sayDefaultRate}
	p.cfg.merge(cfg)
	return p
}

func (p *SayProvider) ProviderInfo() ProviderInfo {
	return ProviderInfo{
		Name:           ProviderSay,
		DisplayName:    "macOS say",
		Version:        "1.0.0",
		RequiresAPIKey: false,
		Features:       []string{"speak", "voices"},
	}
}

func (p *SayProvider) IsAvailable() bool {
	return runtime.GOOS == "darwin"
}

func (p *SayProvider) Speak(ctx context.Context, text string) *SpeakResult {
	start := time.Now()

	if isEmptyText(text) {
		return failedResult(ProviderSay, emptyTextError)
	}
	if !p.IsAvailable() {
		return failedResult(ProviderSay, "say is only available on macOS")
	}

	cfg := p.Configuration()
	args := []string{}
	if cfg.Voice != "" {
		args = append(args, "-v", cfg.Voice)
	}
	args = append(args, "-r", strconv.Itoa(clampRate(cfg.Rate)))
	// Text is passed as a single argv element, never through a shell.
	args = append(args, text)

	cmd := execCommand(ctx, "say", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return failedResult(ProviderSay, fmt.Sprintf("failed to start say: %v", err))
	}

	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()

	err := cmd.Wait()

	p.mu.Lock()
	p.cmd = nil
	p.mu.Unlock()

	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return failedResult(ProviderSay, fmt.Sprintf("say failed: %s", msg))
	}

	return &SpeakResult{
		Success:  true,
		Provider: ProviderSay,
		ID:       uuid.NewString(),
		Duration: time.Since(start),
	}
}

// Voices parses the `say -v ?` listing. Each line is
// "Name<spaces>locale<spaces># sample text".
func (p *SayProvider) Voices(ctx context.Context) ([]Voice, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("say is only available on macOS")
	}

	out, err := execCommand(ctx, "say", "-v", "?").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	return parseSayVoices(string(out)), nil
}

func parseSayVoices(out string) []Voice {
	var voices []Voice
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, " \r")
		if line == "" {
			continue
		}
		name, rest, ok := strings.Cut(line, "  ")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		voices = append(voices, Voice{
			ID:       strings.TrimSpace(name),
			Name:     strings.TrimSpace(name),
			Language: fields[0],
		})
	}
	return voices
}

// PreloadAudio is a no-op. Local synthesis has no latency worth
// hiding and nothing to cache.
func (p *SayProvider) PreloadAudio(ctx context.Context, text string) {}

func (p *SayProvider) CancelSpeech() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

func clampRate(rate int) int {
	switch {
	case rate == 0:
		return sayDefaultRate
	case rate < sayMinRate:
		return sayMinRate
	case rate > sayMaxRate:
		return sayMaxRate
	default:
		return rate
	}
}
