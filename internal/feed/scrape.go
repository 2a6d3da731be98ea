package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"investment-digest/internal/digest"
)

// Channel videos page scrape. YouTube embeds the video grid as a
// `var ytInitialData = {...};` blob in the page HTML; the grid entries are
// videoRenderer / richItemRenderer / gridVideoRenderer objects scattered at
// varying depths, so the JSON is walked recursively instead of addressed by
// a fixed path.

const ytInitialDataMarker = "var ytInitialData = "

// fromPage scrapes the channel videos page for recent uploads.
func (s *YouTubeSource) fromPage(ctx context.Context, channelID string, limit int) ([]Video, error) {
	pageURL := s.pageBase + "/channel/" + channelID + "/videos"

	resp, err := digest.RetryHTTP(ctx, digest.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", digest.UserAgentChrome)
		req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return digest.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("videos page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("videos page: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read videos page: %w", err)
	}

	idx := strings.Index(string(body), ytInitialDataMarker)
	if idx < 0 {
		return nil, errors.New("ytInitialData not found in videos page")
	}
	data := digest.ExtractJSON(body[idx+len(ytInitialDataMarker):])
	if data == nil {
		return nil, errors.New("failed to extract ytInitialData JSON")
	}

	videos := extractVideosFromInitialData(data, limit)
	if len(videos) == 0 {
		return nil, errors.New("no videos in ytInitialData")
	}
	return videos, nil
}

// videoRendererJSON is the slice of a renderer object the scrape needs.
type videoRendererJSON struct {
	VideoID string `json:"videoId"`
	Title   struct {
		Runs       []struct{ Text string } `json:"runs"`
		SimpleText string                  `json:"simpleText"`
	} `json:"title"`
	PublishedTimeText struct {
		SimpleText string `json:"simpleText"`
	} `json:"publishedTimeText"`
}

// extractVideosFromInitialData recursively walks ytInitialData for renderer entries.
func extractVideosFromInitialData(data []byte, limit int) []Video {
	var results []Video
	seen := make(map[string]bool)

	var walk func(v json.RawMessage)
	walk = func(v json.RawMessage) {
		if len(results) >= limit {
			return
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(v, &obj); err == nil {
			for _, key := range []string{"videoRenderer", "gridVideoRenderer"} {
				raw, ok := obj[key]
				if !ok {
					continue
				}
				var r videoRendererJSON
				if err := json.Unmarshal(raw, &r); err != nil {
					continue
				}
				title := r.Title.SimpleText
				if title == "" && len(r.Title.Runs) > 0 {
					title = r.Title.Runs[0].Text
				}
				if r.VideoID != "" && title != "" && !seen[r.VideoID] {
					seen[r.VideoID] = true
					results = append(results, Video{
						VideoID:     r.VideoID,
						Title:       title,
						PublishedAt: r.PublishedTimeText.SimpleText,
					})
				}
			}
			for _, val := range obj {
				walk(val)
			}
			return
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(v, &arr); err == nil {
			for _, val := range arr {
				walk(val)
			}
		}
	}
	walk(data)

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
