package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/lyricsify/internal/shared"
	tu "github.com/desertthunder/lyricsify/internal/testing"
)

func TestLyricsOvhService(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		srv := NewLyricsOvhService("", nil, nil)
		if srv.baseURL != lyricsOvhBaseURL {
			t.Errorf("expected default base URL, got %s", srv.baseURL)
		}
		if srv.httpClient != http.DefaultClient {
			t.Error("expected http.DefaultClient to be used")
		}
	})

	t.Run("Found With Escaped Path", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.EscapedPath() != "/v1/AC%2FDC/Back%20in%20Black" {
				t.Errorf("unexpected escaped path %s", r.URL.EscapedPath())
			}
			w.Write([]byte(`{"lyrics":"Back in black\r\nI hit the sack"}`))
		}))
		defer server.Close()

		srv := NewLyricsOvhService(server.URL+"/", nil, nil)
		text, err := srv.Lookup(context.Background(), "AC/DC", "Back in Black")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if text != "Back in black\nI hit the sack" {
			t.Errorf("unexpected lyrics %q", text)
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		tc := []struct {
			name   string
			status int
			body   string
		}{
			{"404", http.StatusNotFound, `{"error":"No lyrics found"}`},
			{"blank", http.StatusOK, `{"lyrics":"   "}`},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					w.Write([]byte(tt.body))
				}))
				defer server.Close()

				_, err := NewLyricsOvhService(server.URL, nil, nil).Lookup(context.Background(), "Nobody", "Nothing")
				if !errors.Is(err, shared.ErrLyricsNotFound) {
					t.Errorf("expected ErrLyricsNotFound, got %v", err)
				}
			})
		}
	})

	t.Run("Missing Artist", func(t *testing.T) {
		_, err := NewLyricsOvhService("http://unused", nil, nil).Lookup(context.Background(), "", "Title")
		if !errors.Is(err, shared.ErrLyricsNotFound) {
			t.Errorf("expected ErrLyricsNotFound, got %v", err)
		}
	})

	t.Run("Server Error Is Transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := NewLyricsOvhService(server.URL, nil, nil).Lookup(context.Background(), "A", "B")
		if errors.Is(err, shared.ErrLyricsNotFound) || !shared.IsTransient(err) {
			t.Errorf("expected transient non-not-found error, got %v", err)
		}
	})

	t.Run("Timeout Is Transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := &http.Client{Timeout: 20 * time.Millisecond}
		_, err := NewLyricsOvhService(server.URL, client, nil).Lookup(context.Background(), "A", "B")
		if !shared.IsTransient(err) {
			t.Errorf("expected transient error, got %v", err)
		}
	})

	t.Run("Request Failure", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed"))}
		_, err := NewLyricsOvhService("http://lyrics.invalid", client, nil).Lookup(context.Background(), "A", "B")
		if err == nil || errors.Is(err, shared.ErrLyricsNotFound) {
			t.Errorf("expected request error, got %v", err)
		}
	})
}

func TestLRCLibService(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/get" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			q := r.URL.Query()
			if q.Get("artist_name") != "Daft Punk" || q.Get("track_name") != "Digital Love" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			w.Write([]byte(`{"id":1,"instrumental":false,"plainLyrics":"Last night I had a dream about you","syncedLyrics":"[00:01.00] Last night"}`))
		}))
		defer server.Close()

		text, err := NewLRCLibService(server.URL, nil, nil).Lookup(context.Background(), "Daft Punk", "Digital Love")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if text != "Last night I had a dream about you" {
			t.Errorf("unexpected lyrics %q", text)
		}
	})

	t.Run("Instrumental Is Not Found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":2,"instrumental":true,"plainLyrics":""}`))
		}))
		defer server.Close()

		_, err := NewLRCLibService(server.URL, nil, nil).Lookup(context.Background(), "Artist", "Interlude")
		if !errors.Is(err, shared.ErrLyricsNotFound) {
			t.Errorf("expected ErrLyricsNotFound, got %v", err)
		}
	})

	t.Run("404", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		_, err := NewLRCLibService(server.URL, nil, nil).Lookup(context.Background(), "A", "B")
		if !errors.Is(err, shared.ErrLyricsNotFound) {
			t.Errorf("expected ErrLyricsNotFound, got %v", err)
		}
	})
}

func TestNewLyricsProvider(t *testing.T) {
	tc := []struct {
		provider string
		want     string
	}{
		{"", "lyrics.ovh"},
		{"lyricsovh", "lyrics.ovh"},
		{"LRCLIB", "lrclib"},
	}

	for _, tt := range tc {
		t.Run(tt.want, func(t *testing.T) {
			p, err := NewLyricsProvider(shared.LyricsConfig{Provider: tt.provider, BaseURL: "https://api.lyrics.ovh"}, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if p.Name() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, p.Name())
			}
		})
	}

	t.Run("lrclib ignores lyrics.ovh base URL", func(t *testing.T) {
		p, _ := NewLyricsProvider(shared.LyricsConfig{Provider: "lrclib", BaseURL: "https://api.lyrics.ovh"}, nil)
		if p.(*LRCLibService).baseURL != lrclibBaseURL {
			t.Errorf("expected lrclib default base URL, got %s", p.(*LRCLibService).baseURL)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := NewLyricsProvider(shared.LyricsConfig{Provider: "genius"}, nil)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
