package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/require"

	"investment-digest/internal/digest"
)

const atomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns="http://www.w3.org/2005/Atom">
  <title>財經頻道 A</title>
  <entry>
    <id>yt:video:aaaaaaaaaa1</id>
    <yt:videoId>aaaaaaaaaa1</yt:videoId>
    <title>EP3 市場週報</title>
    <published>2026-08-21T08:00:00+00:00</published>
  </entry>
  <entry>
    <id>yt:video:aaaaaaaaaa2</id>
    <yt:videoId>aaaaaaaaaa2</yt:videoId>
    <title>EP2 通膨數據解讀</title>
    <published>2026-08-14T08:00:00+00:00</published>
  </entry>
  <entry>
    <id>yt:video:aaaaaaaaaa3</id>
    <yt:videoId>aaaaaaaaaa3</yt:videoId>
    <title>EP1 開播</title>
    <published>2026-08-07T08:00:00+00:00</published>
  </entry>
</feed>`

const videosPageFixture = `<!DOCTYPE html><html><head><script>
var ytInitialData = {"contents":{"grid":{"items":[
  {"richItemRenderer":{"content":{"videoRenderer":{
    "videoId":"bbbbbbbbbb1",
    "title":{"runs":[{"text":"盤後解析 0821"}]},
    "publishedTimeText":{"simpleText":"1 day ago"}}}}},
  {"richItemRenderer":{"content":{"videoRenderer":{
    "videoId":"bbbbbbbbbb2",
    "title":{"runs":[{"text":"盤後解析 0814"}]},
    "publishedTimeText":{"simpleText":"8 days ago"}}}}}
]}}};</script></head><body></body></html>`

func newTestSource(baseURL string) *YouTubeSource {
	p := gofeed.NewParser()
	p.Client = digest.Cfg.HTTPClient
	return &YouTubeSource{parser: p, feedBase: baseURL, pageBase: baseURL}
}

func TestListRecentFromRSS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feeds/videos.xml" {
			http.NotFound(w, r)
			return
		}
		require.Equal(t, "UCaaa", r.URL.Query().Get("channel_id"))
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(atomFixture))
	}))
	defer srv.Close()

	videos, err := newTestSource(srv.URL).ListRecent(context.Background(), "UCaaa", 2)
	require.NoError(t, err)
	require.Len(t, videos, 2, "limit must cap the feed")
	require.Equal(t, "aaaaaaaaaa1", videos[0].VideoID)
	require.Equal(t, "EP3 市場週報", videos[0].Title)
	require.Equal(t, "2026-08-21T08:00:00Z", videos[0].PublishedAt)
	require.Equal(t, "aaaaaaaaaa2", videos[1].VideoID)
}

func TestListRecentFallsBackToPageScrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feeds/videos.xml":
			http.Error(w, "nope", http.StatusNotFound)
		case "/channel/UCbbb/videos":
			w.Write([]byte(videosPageFixture))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	videos, err := newTestSource(srv.URL).ListRecent(context.Background(), "UCbbb", 5)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	ids := map[string]bool{}
	for _, v := range videos {
		ids[v.VideoID] = true
	}
	require.True(t, ids["bbbbbbbbbb1"])
	require.True(t, ids["bbbbbbbbbb2"])
}

func TestListRecentBothSourcesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL).ListRecent(context.Background(), "UCccc", 5)
	require.Error(t, err)
	var fe *digest.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "UCccc", fe.ChannelID)
}
