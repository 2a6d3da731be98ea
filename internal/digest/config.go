package digest

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Config holds shared pipeline configuration, injected from main.
type Config struct {
	HTTPClient      *http.Client
	YouTubeLimiter  *rate.Limiter // throttles every request against youtube.com
	TranscriptLangs []string      // caption language preference order
	MaxSummaryChars int           // transcript budget sent to the LLM, in runes
	MinUsableChars  int           // transcripts shorter than this are unusable
}

var cfg = Config{
	HTTPClient:      &http.Client{Timeout: 15 * time.Second},
	TranscriptLangs: []string{"zh-TW", "zh-Hant", "zh"},
	MaxSummaryChars: 8000,
	MinUsableChars:  80,
}

// Cfg exposes the active configuration to sub-packages (feed, transcript, summary).
// Always points to the current cfg value.
var Cfg = &cfg

// Init installs the run configuration. Zero fields keep their defaults.
func Init(c Config) {
	if c.HTTPClient == nil {
		c.HTTPClient = cfg.HTTPClient
	}
	if len(c.TranscriptLangs) == 0 {
		c.TranscriptLangs = cfg.TranscriptLangs
	}
	if c.MaxSummaryChars <= 0 {
		c.MaxSummaryChars = cfg.MaxSummaryChars
	}
	if c.MinUsableChars <= 0 {
		c.MinUsableChars = cfg.MinUsableChars
	}
	cfg = c
	Cfg = &cfg
}

// WaitYouTube blocks until the YouTube rate limiter grants a slot.
// No-op when no limiter is configured.
func WaitYouTube(ctx context.Context) error {
	if cfg.YouTubeLimiter == nil {
		return nil
	}
	return cfg.YouTubeLimiter.Wait(ctx)
}
