package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResponse = `{
	"items": [
		{
			"id": {"videoId": "abc123"},
			"snippet": {
				"title": "Song A",
				"channelTitle": "Channel A",
				"thumbnails": {"default": {"url": "https://img.example/a.jpg"}}
			}
		},
		{
			"id": {"videoId": "def456"},
			"snippet": {
				"title": "Song B",
				"channelTitle": "Channel B",
				"thumbnails": {"default": {"url": "https://img.example/b.jpg"}}
			}
		}
	]
}`

func TestSearchMapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "snippet", q.Get("part"))
		assert.Equal(t, "video", q.Get("type"))
		assert.Equal(t, "test query", q.Get("q"))
		assert.Equal(t, "api-key", q.Get("key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchResponse))
	}))
	defer srv.Close()

	y := NewYouTube("api-key")
	y.baseURL = srv.URL

	results, err := y.Search(context.Background(), "test query")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, Result{
		TrackID:   "abc123",
		Title:     "Song A",
		Channel:   "Channel A",
		Thumbnail: "https://img.example/a.jpg",
	}, results[0])
}

func TestSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	y := NewYouTube("bad-key")
	y.baseURL = srv.URL

	_, err := y.Search(context.Background(), "q")
	assert.Error(t, err)
}

func TestSearchEmptyItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	y := NewYouTube("api-key")
	y.baseURL = srv.URL

	results, err := y.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, results)
}
