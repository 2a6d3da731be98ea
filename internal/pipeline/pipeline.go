// Package pipeline orchestrates one ingestion pass: list recent videos per
// channel, skip what the ledger already records, acquire a transcript,
// summarize it, persist the document, then mark the ledger. The document
// write always lands before the ledger mark, so a crash between the two
// leaves a reprocessable video, never a silently dropped one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"investment-digest/internal/config"
	"investment-digest/internal/digest"
	"investment-digest/internal/feed"
	"investment-digest/internal/ledger"
	"investment-digest/internal/summary"
	"investment-digest/internal/transcript"
)

// Per-video failure stages.
const (
	StageTranscribe = "transcribe"
	StageSummarize  = "summarize"
	StagePersist    = "persist"
)

// FeedSource lists recent videos for a channel.
type FeedSource interface {
	ListRecent(ctx context.Context, channelID string, limit int) ([]feed.Video, error)
}

// TranscriptAcquirer resolves a video id to transcript text.
type TranscriptAcquirer interface {
	Acquire(ctx context.Context, videoID string) (transcript.Result, error)
}

// Summarizer produces the section map from a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, title, transcript string) (summary.Sections, error)
}

// Ledger is the dedup record.
type Ledger interface {
	Has(ctx context.Context, videoID string) (bool, error)
	MarkProcessed(ctx context.Context, e ledger.Entry) error
}

// DocumentStore persists rendered summaries.
type DocumentStore interface {
	Write(doc *summary.Document) error
}

// Failure is one video that could not be processed this run. The video stays
// out of the ledger, so the next run retries it.
type Failure struct {
	VideoID   string
	ChannelID string
	Stage     string
	Reason    string
}

// Report is the outcome of one pipeline pass.
type Report struct {
	Committed       int // videos fully processed and marked
	SkippedChannels int // channels whose feed could not be fetched
	FailedVideos    int
	Failures        []Failure
}

// Pipeline wires the stages together for a run.
type Pipeline struct {
	Source      FeedSource
	Ledger      Ledger
	Transcripts TranscriptAcquirer
	Summarizer  Summarizer
	Documents   DocumentStore

	// FeedLimit caps how many recent videos are considered per channel.
	FeedLimit int

	// TranscriptDir, when set, receives the raw transcript text as a side
	// artifact. Failures here are logged, never fatal.
	TranscriptDir string

	now func() time.Time
}

func (p *Pipeline) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now().UTC()
}

// Run executes one pass over the given channels. Channel-scoped errors skip
// the channel, video-scoped errors skip the video; a storage error aborts the
// run immediately and is returned alongside the partial report.
func (p *Pipeline) Run(ctx context.Context, channels []config.Channel) (*Report, error) {
	report := &Report{}
	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := p.runChannel(ctx, ch, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (p *Pipeline) runChannel(ctx context.Context, ch config.Channel, report *Report) error {
	log := slog.With(slog.String("channel", ch.ChannelID), slog.String("name", ch.Name))

	videos, err := p.Source.ListRecent(ctx, ch.ChannelID, p.FeedLimit)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || isStorage(err) {
			return err
		}
		log.Warn("feed unavailable, skipping channel", slog.Any("err", err))
		report.SkippedChannels++
		return nil
	}
	log.Info("channel videos listed", slog.Int("count", len(videos)))

	for _, v := range videos {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := p.Ledger.Has(ctx, v.VideoID)
		if err != nil {
			return err // storage errors are run-fatal
		}
		if done {
			log.Debug("already processed", slog.String("video", v.VideoID))
			continue
		}

		if err := p.processVideo(ctx, ch, v, report); err != nil {
			return err
		}
	}
	return nil
}

// processVideo runs one video through transcribe, summarize, persist, mark.
// Returns an error only for run-fatal conditions.
func (p *Pipeline) processVideo(ctx context.Context, ch config.Channel, v feed.Video, report *Report) error {
	log := slog.With(
		slog.String("channel", ch.ChannelID),
		slog.String("video", v.VideoID),
		slog.String("title", digest.TitleForLog(v.Title)))
	log.Info("processing video")

	res, err := p.Transcripts.Acquire(ctx, v.VideoID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.fail(report, log, ch, v, StageTranscribe, err)
		return nil
	}
	p.saveTranscriptArtifact(log, v.VideoID, res)

	sections, err := p.Summarizer.Summarize(ctx, v.Title, res.Text)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.fail(report, log, ch, v, StageSummarize, err)
		return nil
	}

	doc := &summary.Document{
		VideoID:     v.VideoID,
		ChannelID:   ch.ChannelID,
		ChannelName: ch.Name,
		Title:       v.Title,
		Published:   v.PublishedAt,
		Processed:   p.clock().Format("2006-01-02"),
		Sections:    sections,
	}

	// Document first, ledger second. Never the other way around.
	if err := p.Documents.Write(doc); err != nil {
		if isStorage(err) {
			return err
		}
		p.fail(report, log, ch, v, StagePersist, err)
		return nil
	}
	if err := p.Ledger.MarkProcessed(ctx, ledger.Entry{
		VideoID:     v.VideoID,
		ChannelID:   ch.ChannelID,
		Title:       v.Title,
		PublishedAt: v.PublishedAt,
		ProcessedAt: p.clock(),
	}); err != nil {
		return err
	}

	report.Committed++
	log.Info("video committed", slog.String("source", res.Source))
	return nil
}

func (p *Pipeline) fail(report *Report, log *slog.Logger, ch config.Channel, v feed.Video, stage string, err error) {
	log.Warn("video failed, will retry next run",
		slog.String("stage", stage), slog.Any("err", err))
	report.FailedVideos++
	report.Failures = append(report.Failures, Failure{
		VideoID:   v.VideoID,
		ChannelID: ch.ChannelID,
		Stage:     stage,
		Reason:    err.Error(),
	})
}

// saveTranscriptArtifact caches the raw transcript on disk. Best effort.
func (p *Pipeline) saveTranscriptArtifact(log *slog.Logger, videoID string, res transcript.Result) {
	if p.TranscriptDir == "" {
		return
	}
	if err := os.MkdirAll(p.TranscriptDir, 0o755); err != nil {
		log.Warn("transcript cache dir", slog.Any("err", err))
		return
	}
	path := filepath.Join(p.TranscriptDir, videoID+".txt")
	header := fmt.Sprintf("# source: %s\n\n", res.Source)
	if err := os.WriteFile(path, []byte(header+res.Text+"\n"), 0o644); err != nil {
		log.Warn("transcript cache write", slog.Any("err", err))
	}
}

func isStorage(err error) bool {
	var se *digest.StorageError
	return errors.As(err, &se)
}
