package lrclib

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get", r.URL.Path)
		assert.Equal(t, "Portishead", r.URL.Query().Get("artist_name"))
		assert.Equal(t, "Roads", r.URL.Query().Get("track_name"))
		assert.Equal(t, "305", r.URL.Query().Get("duration"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"id":1,"trackName":"Roads","artistName":"Portishead","syncedLyrics":"[00:01.00]Oh"}`))
	}))
	defer srv.Close()

	rec, err := New(srv.URL).Get(context.Background(), Query{Artist: "Portishead", Title: "Roads", Duration: 305 * time.Second})
	require.NoError(t, err)
	assert.False(t, rec.Empty())
	assert.Equal(t, "Roads", rec.Track)
	assert.Equal(t, "[00:01.00]Oh", rec.Synced)
	assert.Empty(t, rec.Plain)
}

func TestGet_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		notFound bool
	}{
		{"not found", http.StatusNotFound, true},
		{"bad gateway", http.StatusBadGateway, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := New(srv.URL).Get(context.Background(), Query{Artist: "a", Title: "b"})
			require.Error(t, err)
			assert.Equal(t, tt.notFound, errors.Is(err, ErrNotFound))
		})
	}
}

func TestLookup_FallsBackToSearch(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/get" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`[
			{"id":1,"duration":305,"instrumental":true},
			{"id":2,"duration":200,"plainLyrics":"wrong cut"},
			{"id":3,"duration":304,"plainLyrics":"Oh, can't anybody see"}
		]`))
	}))
	defer srv.Close()

	rec, err := New(srv.URL).Lookup(context.Background(), Query{Artist: "Portishead", Title: "Roads", Duration: 305 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 3, rec.ID)
	assert.Equal(t, []string{"/get", "/search"}, paths)
}

func TestLookup_NoUsableHit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/get" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"duration":100,"plainLyrics":"x"}]`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Lookup(context.Background(), Query{Artist: "a", Title: "b", Duration: time.Minute})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookup_ExactHitSkipsSearch(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"id":9,"plainLyrics":"x"}`))
	}))
	defer srv.Close()

	rec, err := New(srv.URL).Lookup(context.Background(), Query{Artist: "a", Title: "b"})
	require.NoError(t, err)
	assert.Equal(t, 9, rec.ID)
	assert.Equal(t, 1, calls)
}

func TestCloseTo(t *testing.T) {
	assert.True(t, closeTo(305, 0))
	assert.True(t, closeTo(0, time.Minute))
	assert.True(t, closeTo(61.5, time.Minute))
	assert.False(t, closeTo(63, time.Minute))
}
