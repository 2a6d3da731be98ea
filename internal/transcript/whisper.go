package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// SpeechToText downloads the best audio track with yt-dlp and transcribes it
// with a local whisper.cpp binary. Both tools are external processes; this
// strategy treats them as opaque operations keyed by video id.
type SpeechToText struct {
	YTDLP   string // yt-dlp binary
	Whisper string // whisper.cpp CLI binary
	Model   string // path to the whisper model file
	Lang    string // language hint passed to whisper

	run commandRunner
}

// commandRunner abstracts subprocess execution for tests.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && len(ee.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, firstLine(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// NewSpeechToText builds the speech-to-text strategy.
func NewSpeechToText(ytdlp, whisper, model, lang string) *SpeechToText {
	return &SpeechToText{
		YTDLP:   ytdlp,
		Whisper: whisper,
		Model:   model,
		Lang:    lang,
		run:     execRunner{},
	}
}

func (s *SpeechToText) Name() string { return SourceWhisper }

// Fetch downloads the audio into a temp dir, transcribes it, and returns the
// plain text. The temp dir is always removed; only the text survives.
func (s *SpeechToText) Fetch(ctx context.Context, videoID string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "digest-audio-")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	audioPath := filepath.Join(tmpDir, videoID+".m4a")
	slog.Info("stt: downloading audio", slog.String("video", videoID))
	_, err = s.run.Run(ctx, s.YTDLP,
		"--no-playlist",
		"--quiet",
		"-f", "bestaudio[ext=m4a]/bestaudio",
		"-o", audioPath,
		"https://www.youtube.com/watch?v="+videoID,
	)
	if err != nil {
		return "", fmt.Errorf("audio download: %w", err)
	}
	if _, err := os.Stat(audioPath); err != nil {
		// yt-dlp may pick a different extension when m4a is unavailable.
		audioPath, err = findDownloaded(tmpDir, videoID)
		if err != nil {
			return "", err
		}
	}

	slog.Info("stt: transcribing", slog.String("video", videoID))
	out, err := s.run.Run(ctx, s.Whisper,
		"-m", s.Model,
		"-l", s.Lang,
		"-nt", // no timestamps
		"-np", // no progress prints
		"-f", audioPath,
	)
	if err != nil {
		return "", fmt.Errorf("speech-to-text: %w", err)
	}
	return flattenLines(string(out)), nil
}

// findDownloaded locates the file yt-dlp actually wrote for videoID.
func findDownloaded(dir, videoID string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, videoID+".*"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no audio file downloaded for %s", videoID)
	}
	return matches[0], nil
}

// flattenLines joins whisper's per-segment output lines into one block of text.
func flattenLines(out string) string {
	var parts []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
