// Package transcript resolves a video id to transcript text through an
// ordered chain of acquisition methods: published captions first (cheap,
// exact), then local speech-to-text on the downloaded audio (slow, broadly
// applicable). Adding a method means appending a Strategy, not editing call
// sites.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"investment-digest/internal/digest"
)

// Source tags for Result.Source. Summarization quality expectations differ
// by source, so the winning method is recorded.
const (
	SourceCaptions = "captions"
	SourceWhisper  = "whisper"
)

// Result is the acquired transcript for one video. Ephemeral: it lives
// between acquisition and summarization and is never part of the durable
// record (the orchestrator may cache the text on disk as a side artifact).
type Result struct {
	VideoID string
	Text    string
	Source  string
}

// Strategy is one transcript acquisition method.
type Strategy interface {
	// Name is the source tag recorded on success.
	Name() string
	// Fetch returns the transcript text for videoID.
	Fetch(ctx context.Context, videoID string) (string, error)
}

// Acquirer tries strategies in order and returns the first usable text.
type Acquirer struct {
	strategies []Strategy
	minChars   int
}

// NewAcquirer builds an acquirer over the given strategies, in priority order.
func NewAcquirer(strategies ...Strategy) *Acquirer {
	return &Acquirer{
		strategies: strategies,
		minChars:   digest.Cfg.MinUsableChars,
	}
}

// Acquire resolves videoID to a transcript. A strategy only runs after every
// earlier strategy has failed. All failing yields TranscriptUnavailable.
func (a *Acquirer) Acquire(ctx context.Context, videoID string) (Result, error) {
	var errs []error
	for _, st := range a.strategies {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		text, err := st.Fetch(ctx, videoID)
		if err != nil {
			slog.Warn("transcript: method failed",
				slog.String("video", videoID),
				slog.String("method", st.Name()),
				slog.Any("err", err))
			errs = append(errs, fmt.Errorf("%s: %w", st.Name(), err))
			continue
		}

		text = strings.TrimSpace(text)
		if utf8.RuneCountInString(text) < a.minChars {
			slog.Warn("transcript: text too short",
				slog.String("video", videoID),
				slog.String("method", st.Name()),
				slog.Int("runes", utf8.RuneCountInString(text)))
			errs = append(errs, fmt.Errorf("%s: text too short", st.Name()))
			continue
		}

		return Result{VideoID: videoID, Text: text, Source: st.Name()}, nil
	}
	return Result{}, &digest.TranscriptUnavailable{VideoID: videoID, Err: errors.Join(errs...)}
}
