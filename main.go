// investment-digest — YouTube investment-channel episode digests.
//
// Polls configured channels for new episodes, acquires a transcript
// (published captions first, local speech-to-text as fallback), summarizes it
// into a fixed six-section markdown document, and records the episode in a
// sqlite ledger so it is never processed twice.
//
// Commands:
//
//	investment-digest run [--channel UC...]   process new episodes
//	investment-digest status [--limit N]      show recent ledger entries
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"golang.org/x/time/rate"

	"investment-digest/internal/config"
	"investment-digest/internal/digest"
	"investment-digest/internal/feed"
	"investment-digest/internal/ledger"
	"investment-digest/internal/pipeline"
	"investment-digest/internal/summary"
	"investment-digest/internal/transcript"
)

var version = "dev"

var (
	dataDir      = env.Str("DATA_DIR", "data")
	channelsFile = env.Str("CHANNELS_FILE", "channels.yaml")
	feedLimit    = env.Int("FEED_LIMIT", 5)
)

func main() {
	cmd := "run"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "run":
		err = runCmd(ctx, args)
	case "status":
		err = statusCmd(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want run or status)\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", slog.String("cmd", cmd), slog.Any("error", err))
		os.Exit(1)
	}
}

func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	onlyChannel := fs.String("channel", "", "process only this channel id")
	fs.Parse(args)

	initDigest()

	channels, err := config.LoadChannels(channelsFile)
	if err != nil {
		return fmt.Errorf("load channels: %w", err)
	}
	if *onlyChannel != "" {
		channels = filterChannel(channels, *onlyChannel)
		if len(channels) == 0 {
			return fmt.Errorf("channel %s not in %s", *onlyChannel, channelsFile)
		}
	}

	led, err := ledger.Open(filepath.Join(dataDir, "subscriptions.db"))
	if err != nil {
		return err
	}
	defer led.Close()

	docs, err := summary.NewStore(filepath.Join(dataDir, "summaries"))
	if err != nil {
		return err
	}

	client := llm.NewClient(
		env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		env.Str("LLM_API_KEY", ""),
		env.Str("LLM_MODEL", "gemini-2.5-flash"),
		llm.WithFallbackKeys(env.List("LLM_API_KEY_FALLBACKS", "")),
		llm.WithMaxTokens(env.Int("LLM_MAX_TOKENS", 8192)),
		llm.WithTemperature(env.Float("LLM_TEMPERATURE", 0.3)),
		llm.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
	)

	speech := transcript.NewSpeechToText(
		env.Str("YTDLP_BIN", "yt-dlp"),
		env.Str("WHISPER_BIN", "whisper-cli"),
		env.Str("WHISPER_MODEL", ""),
		env.Str("WHISPER_LANG", "zh"),
	)

	pipe := &pipeline.Pipeline{
		Source:        feed.NewYouTubeSource(),
		Ledger:        led,
		Transcripts:   transcript.NewAcquirer(transcript.NewCaptions(), speech),
		Summarizer:    summary.New(client),
		Documents:     docs,
		FeedLimit:     feedLimit,
		TranscriptDir: filepath.Join(dataDir, "transcripts"),
	}

	slog.Info("starting run",
		slog.String("version", version),
		slog.Int("channels", len(channels)),
		slog.Int("feed_limit", feedLimit),
	)
	start := time.Now()

	report, err := pipe.Run(ctx, channels)
	printReport(report, time.Since(start))
	return err
}

func statusCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	limit := fs.Int("limit", 20, "number of ledger entries to show")
	fs.Parse(args)

	led, err := ledger.Open(filepath.Join(dataDir, "subscriptions.db"))
	if err != nil {
		return err
	}
	defer led.Close()

	entries, err := led.Recent(ctx, *limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("ledger is empty")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %-13s %-26s %s\n",
			e.ProcessedAt.Format("2006-01-02"), e.VideoID, e.ChannelID, digest.TitleForLog(e.Title))
	}
	return nil
}

// initDigest installs the shared run configuration.
func initDigest() {
	var limiter *rate.Limiter
	if rps := env.Float("YT_RPS", 1.0); rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	digest.Init(digest.Config{
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		YouTubeLimiter:  limiter,
		TranscriptLangs: env.List("TRANSCRIPT_LANGS", "zh-TW,zh-Hant,zh"),
		MaxSummaryChars: env.Int("MAX_SUMMARY_CHARS", 8000),
		MinUsableChars:  env.Int("MIN_USABLE_CHARS", 80),
	})
}

func filterChannel(channels []config.Channel, id string) []config.Channel {
	for _, ch := range channels {
		if ch.ChannelID == id {
			return []config.Channel{ch}
		}
	}
	return nil
}

func printReport(r *pipeline.Report, elapsed time.Duration) {
	if r == nil {
		return
	}
	fmt.Printf("\ncommitted: %d  failed: %d  skipped channels: %d  (%s)\n",
		r.Committed, r.FailedVideos, r.SkippedChannels, elapsed.Round(time.Second))
	for _, f := range r.Failures {
		fmt.Printf("  retry next run: %s [%s] %s\n", f.VideoID, f.Stage, f.Reason)
	}
}
