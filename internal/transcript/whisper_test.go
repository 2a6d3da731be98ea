package transcript

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

// fakeRunner scripts subprocess behavior per binary name.
type fakeRunner struct {
	t           *testing.T
	downloadErr error
	whisperOut  string
	whisperErr  error
	cmds        [][]string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.cmds = append(f.cmds, append([]string{name}, args...))
	switch name {
	case "yt-dlp":
		if f.downloadErr != nil {
			return nil, f.downloadErr
		}
		// Write the audio file at the -o path, like the real tool.
		for i, a := range args {
			if a == "-o" && i+1 < len(args) {
				if err := os.WriteFile(args[i+1], []byte("audio"), 0o644); err != nil {
					f.t.Fatalf("write fake audio: %v", err)
				}
			}
		}
		return nil, nil
	case "whisper-cli":
		return []byte(f.whisperOut), f.whisperErr
	}
	return nil, errors.New("unexpected command " + name)
}

func newTestSpeech(r *fakeRunner) *SpeechToText {
	return &SpeechToText{
		YTDLP:   "yt-dlp",
		Whisper: "whisper-cli",
		Model:   "/models/ggml-base.bin",
		Lang:    "zh",
		run:     r,
	}
}

func TestSpeechToTextFetch(t *testing.T) {
	r := &fakeRunner{t: t, whisperOut: " 第一段\n第二段\n\n 第三段 \n"}

	text, err := newTestSpeech(r).Fetch(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "第一段 第二段 第三段" {
		t.Errorf("text = %q", text)
	}
	if len(r.cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(r.cmds))
	}

	dl := strings.Join(r.cmds[0], " ")
	if !strings.Contains(dl, "https://www.youtube.com/watch?v=vid1") {
		t.Errorf("download command missing video URL: %s", dl)
	}
	tr := strings.Join(r.cmds[1], " ")
	for _, want := range []string{"-m /models/ggml-base.bin", "-l zh", "-nt", "-np"} {
		if !strings.Contains(tr, want) {
			t.Errorf("transcribe command missing %q: %s", want, tr)
		}
	}
}

func TestSpeechToTextDownloadFails(t *testing.T) {
	r := &fakeRunner{t: t, downloadErr: errors.New("HTTP Error 403")}

	_, err := newTestSpeech(r).Fetch(context.Background(), "vid2")
	if err == nil || !strings.Contains(err.Error(), "audio download") {
		t.Fatalf("err = %v, want audio download failure", err)
	}
	if len(r.cmds) != 1 {
		t.Errorf("whisper must not run when the download failed, got %d commands", len(r.cmds))
	}
}

func TestSpeechToTextWhisperFails(t *testing.T) {
	r := &fakeRunner{t: t, whisperErr: errors.New("model not found")}

	_, err := newTestSpeech(r).Fetch(context.Background(), "vid3")
	if err == nil || !strings.Contains(err.Error(), "speech-to-text") {
		t.Fatalf("err = %v, want speech-to-text failure", err)
	}
}

func TestFlattenLines(t *testing.T) {
	if got := flattenLines(""); got != "" {
		t.Errorf("flattenLines(empty) = %q", got)
	}
	if got := flattenLines("a\n\n b \nc"); got != "a b c" {
		t.Errorf("flattenLines = %q", got)
	}
}
