// Package lrclib is a client for the lrclib.net lyrics database.
package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when lrclib has nothing for a query.
var ErrNotFound = errors.New("lrclib: no lyrics found")

const (
	// DefaultBaseURL is the public API.
	DefaultBaseURL = "https://lrclib.net/api"
	userAgent      = "cleftly/1.0 (https://github.com/cleftly/cleftly)"

	// durationSlack is how far a search hit's duration may be from the query.
	durationSlack = 2 * time.Second
)

// Client queries one lrclib instance.
type Client struct {
	http    *http.Client
	baseURL string
}

// New returns a client for baseURL; empty means DefaultBaseURL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Query identifies a recording.
type Query struct {
	Artist   string
	Title    string
	Album    string
	Duration time.Duration
}

// Record is one lyrics entry.
type Record struct {
	ID           int     `json:"id"`
	Track        string  `json:"trackName"`
	Artist       string  `json:"artistName"`
	Album        string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	Plain        string  `json:"plainLyrics"`
	Synced       string  `json:"syncedLyrics"`
}

// Empty reports whether r carries no text at all.
func (r *Record) Empty() bool {
	return r.Plain == "" && r.Synced == ""
}

// Lookup returns the record matching q. When the exact signature lookup
// misses, it falls back to a search and takes the first hit with lyrics
// whose duration is close enough.
func (c *Client) Lookup(ctx context.Context, q Query) (*Record, error) {
	rec, err := c.Get(ctx, q)
	if !errors.Is(err, ErrNotFound) {
		return rec, err
	}

	hits, err := c.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	for i := range hits {
		if hits[i].Empty() || !closeTo(hits[i].Duration, q.Duration) {
			continue
		}
		return &hits[i], nil
	}
	return nil, ErrNotFound
}

// Get is the exact signature lookup.
func (c *Client) Get(ctx context.Context, q Query) (*Record, error) {
	params := url.Values{"artist_name": {q.Artist}, "track_name": {q.Title}}
	if q.Album != "" {
		params.Set("album_name", q.Album)
	}
	if q.Duration > 0 {
		params.Set("duration", strconv.Itoa(int(q.Duration.Round(time.Second).Seconds())))
	}

	var rec Record
	if err := c.getJSON(ctx, "/get", params, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Search lists records by artist and title.
func (c *Client) Search(ctx context.Context, q Query) ([]Record, error) {
	params := url.Values{"artist_name": {q.Artist}, "track_name": {q.Title}}
	var hits []Record
	if err := c.getJSON(ctx, "/search", params, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("lrclib: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lrclib %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("lrclib %s: unexpected status %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("lrclib %s: decode: %w", path, err)
	}
	return nil
}

func closeTo(seconds float64, want time.Duration) bool {
	if want <= 0 || seconds <= 0 {
		return true
	}
	return math.Abs(seconds-want.Seconds()) <= durationSlack.Seconds()
}
