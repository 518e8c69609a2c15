// Package search looks tracks up in an external catalog. The result is
// only used to obtain a track id and title to hand to play.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Result is one catalog hit.
type Result struct {
	TrackID   string `json:"id"`
	Title     string `json:"title"`
	Channel   string `json:"channel"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Provider is an opaque search capability.
type Provider interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

const (
	youtubeSearchURL = "https://www.googleapis.com/youtube/v3/search"
	maxResults       = 10
)

// YouTube queries the YouTube Data API v3.
type YouTube struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewYouTube(apiKey string) *YouTube {
	return &YouTube{
		apiKey:  apiKey,
		baseURL: youtubeSearchURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (y *YouTube) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", fmt.Sprint(maxResults))
	params.Set("key", y.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := y.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: status %d", resp.StatusCode)
	}

	var payload struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
				Thumbnails   struct {
					Default struct {
						URL string `json:"url"`
					} `json:"default"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]Result, 0, len(payload.Items))
	for _, item := range payload.Items {
		results = append(results, Result{
			TrackID:   item.ID.VideoID,
			Title:     item.Snippet.Title,
			Channel:   item.Snippet.ChannelTitle,
			Thumbnail: item.Snippet.Thumbnails.Default.URL,
		})
	}
	return results, nil
}
