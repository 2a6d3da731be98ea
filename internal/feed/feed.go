// Package feed lists recently published videos for a channel. The primary
// source is the channel's RSS feed; when RSS fails or comes back empty the
// channel videos page is scraped as a fallback.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"investment-digest/internal/digest"
)

// Video is an ephemeral descriptor of one recently published video. It lives
// only within a single pipeline pass.
type Video struct {
	VideoID     string
	Title       string
	PublishedAt string // RFC3339 when the feed carries it, otherwise raw feed text
}

// Source lists recent videos for a channel, most recent first.
type Source interface {
	ListRecent(ctx context.Context, channelID string, limit int) ([]Video, error)
}

const (
	defaultLimit = 5
	guidPrefix   = "yt:video:"
)

// YouTubeSource implements Source against youtube.com.
type YouTubeSource struct {
	parser *gofeed.Parser

	// Base URLs, overridable in tests.
	feedBase string
	pageBase string
}

// NewYouTubeSource builds a source using the shared HTTP client.
func NewYouTubeSource() *YouTubeSource {
	p := gofeed.NewParser()
	p.Client = digest.Cfg.HTTPClient
	p.UserAgent = digest.UserAgentChrome
	return &YouTubeSource{
		parser:   p,
		feedBase: "https://www.youtube.com",
		pageBase: "https://www.youtube.com",
	}
}

// ListRecent fetches the newest videos for channelID. RSS first, page scrape
// second; both failing yields a FetchError that skips the channel for this run.
func (s *YouTubeSource) ListRecent(ctx context.Context, channelID string, limit int) ([]Video, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if err := digest.WaitYouTube(ctx); err != nil {
		return nil, err
	}

	videos, rssErr := s.fromRSS(ctx, channelID, limit)
	if rssErr == nil && len(videos) > 0 {
		return videos, nil
	}
	if rssErr != nil {
		slog.Warn("feed: rss failed, trying page scrape",
			slog.String("channel", channelID), slog.Any("err", rssErr))
	} else {
		slog.Warn("feed: rss empty, trying page scrape", slog.String("channel", channelID))
	}

	videos, scrapeErr := s.fromPage(ctx, channelID, limit)
	if scrapeErr != nil {
		return nil, &digest.FetchError{ChannelID: channelID, Err: errors.Join(rssErr, scrapeErr)}
	}
	return videos, nil
}

// fromRSS parses the channel's Atom feed.
func (s *YouTubeSource) fromRSS(ctx context.Context, channelID string, limit int) ([]Video, error) {
	feedURL := s.feedBase + "/feeds/videos.xml?channel_id=" + channelID
	f, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	videos := make([]Video, 0, limit)
	for _, item := range f.Items {
		if len(videos) >= limit {
			break
		}
		id := videoIDFromItem(item)
		if id == "" || item.Title == "" {
			continue
		}
		published := item.Published
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		videos = append(videos, Video{
			VideoID:     id,
			Title:       item.Title,
			PublishedAt: published,
		})
	}
	return videos, nil
}

// videoIDFromItem extracts the video id from an Atom entry: the yt:videoId
// extension when present, the "yt:video:" GUID prefix otherwise.
func videoIDFromItem(item *gofeed.Item) string {
	if ext, ok := item.Extensions["yt"]; ok {
		if ids, ok := ext["videoId"]; ok && len(ids) > 0 && ids[0].Value != "" {
			return ids[0].Value
		}
	}
	if strings.HasPrefix(item.GUID, guidPrefix) {
		return strings.TrimPrefix(item.GUID, guidPrefix)
	}
	return ""
}
