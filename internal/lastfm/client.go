// Package lastfm talks to the Last.fm scrobbling API.
package lastfm

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/shkh/lastfm-go/lastfm"
)

var (
	// ErrNotAuthenticated is returned by calls that need a session key.
	ErrNotAuthenticated = errors.New("lastfm: not logged in")
	// ErrIncomplete is returned for plays Last.fm would reject outright.
	ErrIncomplete = errors.New("lastfm: play needs an artist and a title")
)

const authPage = "https://www.last.fm/api/auth/"

// Scrobbler is what the scrobbling plugin needs from a client.
type Scrobbler interface {
	Authenticated() bool
	NowPlaying(p Play) error
	Scrobble(p Play) error
}

var _ Scrobbler = (*Client)(nil)

// Client is a Last.fm API client bound to one application key.
type Client struct {
	api    *lastfm.Api
	apiKey string
}

// NewClient returns a client. sessionKey may be empty until Login.
func NewClient(apiKey, apiSecret, sessionKey string) *Client {
	c := &Client{api: lastfm.New(apiKey, apiSecret), apiKey: apiKey}
	if sessionKey != "" {
		c.api.SetSession(sessionKey)
	}
	return c
}

// Authenticated reports whether the client holds a session key.
func (c *Client) Authenticated() bool {
	return c.api.GetSessionKey() != ""
}

// Token starts a web login.
func (c *Client) Token() (string, error) {
	token, err := c.api.GetToken()
	if err != nil {
		return "", fmt.Errorf("lastfm: request token: %w", err)
	}
	return token, nil
}

// AuthURL is the page where the user grants access for token. Last.fm
// redirects to callback afterwards when it is set.
func (c *Client) AuthURL(token, callback string) string {
	q := url.Values{"api_key": {c.apiKey}, "token": {token}}
	if callback != "" {
		q.Set("cb", callback)
	}
	return authPage + "?" + q.Encode()
}

// Login trades a granted token for a session. The user name is best
// effort and falls back to "unknown".
func (c *Client) Login(token string) (Session, error) {
	if err := c.api.LoginWithToken(token); err != nil {
		return Session{}, fmt.Errorf("lastfm: login: %w", err)
	}
	s := Session{User: "unknown", Key: c.api.GetSessionKey()}
	if info, err := c.api.User.GetInfo(nil); err == nil && info.Name != "" {
		s.User = info.Name
	}
	return s, nil
}

// NowPlaying shows p on the user's profile.
func (c *Client) NowPlaying(p Play) error {
	params, err := c.params(p)
	if err != nil {
		return err
	}
	if _, err := c.api.Track.UpdateNowPlaying(params); err != nil {
		return fmt.Errorf("lastfm: now playing %q: %w", p.Title, err)
	}
	return nil
}

// Scrobble records p in the user's history.
func (c *Client) Scrobble(p Play) error {
	params, err := c.params(p)
	if err != nil {
		return err
	}
	params["timestamp"] = p.StartedAt.Unix()
	if _, err := c.api.Track.Scrobble(params); err != nil {
		return fmt.Errorf("lastfm: scrobble %q: %w", p.Title, err)
	}
	return nil
}

func (c *Client) params(p Play) (lastfm.P, error) {
	if !c.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	if p.Artist == "" || p.Title == "" {
		return nil, ErrIncomplete
	}
	params := lastfm.P{"artist": p.Artist, "track": p.Title}
	if p.Album != "" {
		params["album"] = p.Album
	}
	if p.AlbumArtist != "" && p.AlbumArtist != p.Artist {
		params["albumArtist"] = p.AlbumArtist
	}
	if p.TrackNumber > 0 {
		params["trackNumber"] = p.TrackNumber
	}
	if secs := int(p.Duration.Seconds()); secs > 0 {
		params["duration"] = secs
	}
	return params, nil
}
