// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/lyricsify/internal/models"
)

// PollResult is one scripted answer for [StubPlayback].
type PollResult struct {
	Track *models.Track
	Err   error
}

// StubPlayback is a test double for [services.PlaybackProvider] that replays scripted results.
// Once the script is exhausted the last result repeats.
type StubPlayback struct {
	mu      sync.Mutex
	results []PollResult
	calls   int
}

func NewStubPlayback(results ...PollResult) *StubPlayback {
	return &StubPlayback{results: results}
}

func (s *StubPlayback) CurrentlyPlaying(ctx context.Context) (*models.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i := s.calls
	s.calls++
	if len(s.results) == 0 {
		return nil, nil
	}
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i].Track, s.results[i].Err
}

// Push appends results to the script.
func (s *StubPlayback) Push(results ...PollResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, results...)
}

// Calls returns how many times CurrentlyPlaying ran.
func (s *StubPlayback) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// StubLyrics is a test double for [services.LyricsProvider].
// Lyrics maps "artist|title" to text; missing keys return Err or NotFound.
type StubLyrics struct {
	Lyrics   map[string]string
	Err      error
	NotFound error
	Gate     chan struct{} // when set, Lookup blocks until it is closed or receives

	calls atomic.Int32
}

func (s *StubLyrics) Lookup(ctx context.Context, artist, title string) (string, error) {
	s.calls.Add(1)

	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if text, ok := s.Lyrics[artist+"|"+title]; ok {
		return text, nil
	}
	if s.Err != nil {
		return "", s.Err
	}
	return "", s.NotFound
}

func (s *StubLyrics) Name() string { return "stub" }

// Calls returns how many lookups reached the provider.
func (s *StubLyrics) Calls() int { return int(s.calls.Load()) }

// RecordingSleeper replaces a real sleep and records every requested delay.
type RecordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Sleep records d and returns immediately unless ctx is already done.
func (r *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

// Delays returns a copy of the recorded delays.
func (r *RecordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// Eventually polls cond until it holds or the timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
