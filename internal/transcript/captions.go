package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"investment-digest/internal/digest"
)

// Captions fetches published caption tracks.
// Primary:  watch page scrape → ytInitialPlayerResponse → caption track XML
// Fallback: ANDROID Innertube /player → captionTracks
// Tracks carrying &exp=xpe require a browser-only PoToken and are skipped.
type Captions struct {
	langs []string

	// Base URLs, overridable in tests.
	watchBase     string
	innertubeBase string
}

// NewCaptions builds the captions strategy with the configured language
// preference order.
func NewCaptions() *Captions {
	return &Captions{
		langs:         digest.Cfg.TranscriptLangs,
		watchBase:     "https://www.youtube.com",
		innertubeBase: ytInnertubeURL,
	}
}

func (c *Captions) Name() string { return SourceCaptions }

// Fetch returns the caption text for videoID, or an error when no usable
// caption track exists.
func (c *Captions) Fetch(ctx context.Context, videoID string) (string, error) {
	if err := digest.WaitYouTube(ctx); err != nil {
		return "", err
	}

	text, pageErr := c.fromWatchPage(ctx, videoID)
	if pageErr == nil {
		return text, nil
	}

	text, playerErr := c.fromPlayer(ctx, videoID)
	if playerErr == nil {
		return text, nil
	}
	return "", errors.Join(pageErr, playerErr)
}

// ytInitialPlayerResponseMarker marks the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// fromWatchPage scrapes the watch page HTML and pulls the caption track URL
// out of ytInitialPlayerResponse. Works from any IP.
func (c *Captions) fromWatchPage(ctx context.Context, videoID string) (string, error) {
	watchURL := c.watchBase + "/watch?v=" + videoID

	resp, err := digest.RetryHTTP(ctx, digest.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", digest.UserAgentChrome)
		req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return digest.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read watch page: %w", err)
	}

	idx := bytes.Index(body, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		return "", errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := digest.ExtractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return "", errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var playerResp innertubePlayerResp
	if err := json.Unmarshal(jsonData, &playerResp); err != nil {
		return "", fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return c.textFromPlayerResp(ctx, &playerResp)
}

// fromPlayer queries the ANDROID Innertube /player endpoint. Works from
// non-blocked IP addresses where the watch page serves a consent wall.
func (c *Captions) fromPlayer(ctx context.Context, videoID string) (string, error) {
	reqBody, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "zh-TW",
				Gl:                "TW",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return "", err
	}

	resp, err := digest.RetryHTTP(ctx, digest.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.innertubeBase+"?prettyPrint=false", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", ytAndroidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		return digest.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("android innertube: %w", err)
	}
	defer resp.Body.Close()

	var playerResp innertubePlayerResp
	if err := json.NewDecoder(resp.Body).Decode(&playerResp); err != nil {
		return "", fmt.Errorf("decode player: %w", err)
	}
	return c.textFromPlayerResp(ctx, &playerResp)
}

// textFromPlayerResp selects a caption track from a player response and
// fetches its text.
func (c *Captions) textFromPlayerResp(ctx context.Context, playerResp *innertubePlayerResp) (string, error) {
	if playerResp.Captions == nil {
		if playerResp.PlayabilityStatus != nil && playerResp.PlayabilityStatus.Reason != "" {
			return "", fmt.Errorf("captions unavailable: %s", playerResp.PlayabilityStatus.Reason)
		}
		return "", errors.New("no captions in player response")
	}
	tracks := playerResp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return "", errors.New("no caption tracks")
	}
	track, ok := pickBestTrack(tracks, c.langs)
	if !ok {
		return "", errors.New("all caption tracks require PoToken")
	}
	return c.fetchTimedText(ctx, track.BaseURL)
}

// needsPoToken reports whether a caption track URL requires a PoToken.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack selects the best usable caption track for the language
// preferences: manual track in a preferred language, then auto-generated in a
// preferred language, then any usable track.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return tracks[0], false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	return usable[0], true
}

// fetchTimedText fetches and flattens a timedtext XML caption URL.
func (c *Captions) fetchTimedText(ctx context.Context, baseURL string) (string, error) {
	resp, err := digest.RetryHTTP(ctx, digest.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", digest.UserAgentBot)
		return digest.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return "", err
	}

	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("parse timedtext XML: %w", err)
	}

	var sb strings.Builder
	for _, line := range tt.Lines {
		text := digest.CleanHTML(line.Text)
		if text != "" {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("empty timedtext document")
	}
	return sb.String(), nil
}
