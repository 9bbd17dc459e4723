package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
)

// audioPlayer plays synthesized audio files and tracks the in-flight
// player process so CancelSpeech can stop it.
type audioPlayer struct {
	mu  sync.Mutex
	cmd *exec.Cmd
}

// play blocks until playback finishes. The file path is passed as an
// argument vector element, never interpolated into a shell string.
func (p *audioPlayer) play(ctx context.Context, path string) error {
	name, args, err := playerCommand(path)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, name, args...)

	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.cmd = nil
		p.mu.Unlock()
	}()

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", name, err, out)
	}
	return nil
}

// cancel kills the in-flight player process, if any.
func (p *audioPlayer) cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
}

// writeTempAudio persists synthesized bytes for playback. The caller
// runs cleanup once playback is done.
func writeTempAudio(data []byte, format string) (path string, cleanup func(), err error) {
	ext := format
	if ext == "" {
		ext = "mp3"
	}
	tmp, err := os.CreateTemp("", "annspeak-*."+ext)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp audio file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to write temp audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to close temp audio file: %w", err)
	}
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

// playerCommand picks the local audio player. afplay ships with macOS;
// elsewhere the first player found on PATH is used.
func playerCommand(path string) (string, []string, error) {
	if runtime.GOOS == "darwin" {
		return "afplay", []string{path}, nil
	}
	for _, candidate := range []string{"mpg123", "ffplay", "aplay"} {
		if _, err := exec.LookPath(candidate); err == nil {
			if candidate == "ffplay" {
				return candidate, []string{"-nodisp", "-autoexit", "-loglevel", "quiet", path}, nil
			}
			return candidate, []string{"-q", path}, nil
		}
	}
	return "", nil, fmt.Errorf("no audio player found on this system")
}
