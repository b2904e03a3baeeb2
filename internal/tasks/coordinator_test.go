package tasks

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/lyricsify/internal/models"
	"github.com/desertthunder/lyricsify/internal/prefs"
	tu "github.com/desertthunder/lyricsify/internal/testing"
)

// recordingSurface captures every command issued to the overlay.
type recordingSurface struct {
	mu         sync.Mutex
	visible    bool
	tracks     []string
	lyrics     []string
	indicators []Indicator
}

func (s *recordingSurface) Show() { s.mu.Lock(); s.visible = true; s.mu.Unlock() }
func (s *recordingSurface) Hide() { s.mu.Lock(); s.visible = false; s.mu.Unlock() }

func (s *recordingSurface) SetTrack(t models.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append(s.tracks, t.ID)
}

func (s *recordingSurface) SetLyrics(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lyrics = append(s.lyrics, text)
}

func (s *recordingSurface) SetIndicator(ind Indicator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indicators = append(s.indicators, ind)
}

func (s *recordingSurface) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *recordingSurface) Tracks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tracks)
}

func (s *recordingSurface) Lyrics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lyrics)
}

func (s *recordingSurface) Indicator() Indicator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.indicators) == 0 {
		return Indicator{}
	}
	return s.indicators[len(s.indicators)-1]
}

type lyricsResult struct {
	text *string
	err  error
}

// gatedLyrics answers each track only when the test releases it.
type gatedLyrics struct {
	mu    sync.Mutex
	gates map[string]chan lyricsResult
	calls map[string]int
}

func newGatedLyrics() *gatedLyrics {
	return &gatedLyrics{gates: map[string]chan lyricsResult{}, calls: map[string]int{}}
}

func (g *gatedLyrics) gate(id string) chan lyricsResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[id]
	if !ok {
		ch = make(chan lyricsResult, 1)
		g.gates[id] = ch
	}
	return ch
}

func (g *gatedLyrics) GetLyrics(ctx context.Context, t models.Track) (*string, error) {
	g.mu.Lock()
	g.calls[t.ID]++
	g.mu.Unlock()

	select {
	case r := <-g.gate(t.ID):
		return r.text, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedLyrics) release(id string, text *string, err error) {
	g.gate(id) <- lyricsResult{text: text, err: err}
}

func (g *gatedLyrics) Calls(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[id]
}

type recordingStore struct {
	mu    sync.Mutex
	saves []prefs.AppConfig
}

func (s *recordingStore) Save(cfg prefs.AppConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, cfg)
	return nil
}

func (s *recordingStore) Saves() []prefs.AppConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.saves)
}

func (s *recordingStore) Last() (prefs.AppConfig, bool) {
	saves := s.Saves()
	if len(saves) == 0 {
		return prefs.AppConfig{}, false
	}
	return saves[len(saves)-1], true
}

type countingResumer struct {
	mu    sync.Mutex
	count int
}

func (r *countingResumer) Resume() { r.mu.Lock(); r.count++; r.mu.Unlock() }

func (r *countingResumer) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

type recordingHistory struct {
	mu  sync.Mutex
	ids []string
}

func (h *recordingHistory) Record(ctx context.Context, t models.Track, at time.Time) (*models.PlayedTrack, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = append(h.ids, t.ID)
	return &models.PlayedTrack{ID: "row", Track: t, PlayedAt: at}, nil
}

func (h *recordingHistory) IDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.ids)
}

type harness struct {
	coord   *Coordinator
	surface *recordingSurface
	lyrics  *gatedLyrics
	store   *recordingStore
	cancel  context.CancelFunc
	done    chan error
}

func startCoordinator(t *testing.T, mutate func(*CoordinatorOpts)) *harness {
	t.Helper()

	h := &harness{
		surface: &recordingSurface{},
		lyrics:  newGatedLyrics(),
		store:   &recordingStore{},
		done:    make(chan error, 1),
	}
	opts := CoordinatorOpts{
		Surface:       h.surface,
		Lyrics:        h.lyrics,
		Store:         h.store,
		Config:        prefs.Default(),
		Authenticated: true,
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.coord = NewCoordinator(opts)

	var ctx context.Context
	ctx, h.cancel = context.WithCancel(context.Background())
	go func() { h.done <- h.coord.Run(ctx) }()

	t.Cleanup(func() {
		h.cancel()
		<-h.done
	})
	return h
}

func (h *harness) quit(t *testing.T) {
	t.Helper()
	h.coord.Post(QuitSignal())
	select {
	case err := <-h.done:
		if err != nil {
			t.Fatalf("expected clean quit, got %v", err)
		}
		h.done <- nil
	case <-time.After(time.Second):
		t.Fatal("coordinator did not stop")
	}
}

func ptr(s string) *string { return &s }

func TestCoordinatorLyrics(t *testing.T) {
	t.Run("Superseded Lyrics Are Discarded", func(t *testing.T) {
		h := startCoordinator(t, nil)

		h.coord.Post(TrackChangedSignal(*track("a")))
		h.coord.Post(TrackChangedSignal(*track("b")))
		tu.Eventually(t, time.Second, func() bool { return h.lyrics.Calls("b") == 1 }, "b should be requested")

		h.lyrics.release("a", ptr("lyrics for a"), nil)
		h.lyrics.release("b", ptr("lyrics for b"), nil)

		tu.Eventually(t, time.Second, func() bool { return len(h.surface.Lyrics()) == 1 }, "b should render")
		h.quit(t)

		if got := h.surface.Lyrics(); !slices.Equal(got, []string{"lyrics for b"}) {
			t.Errorf("expected only b's lyrics, got %v", got)
		}
		if got := h.surface.Tracks(); !slices.Equal(got, []string{"a", "b"}) {
			t.Errorf("expected tracks [a b], got %v", got)
		}
	})

	t.Run("Same Track Is Ignored", func(t *testing.T) {
		h := startCoordinator(t, nil)

		h.coord.Post(TrackChangedSignal(*track("a")))
		h.coord.Post(TrackChangedSignal(*track("a")))
		h.lyrics.release("a", ptr("lyrics for a"), nil)
		tu.Eventually(t, time.Second, func() bool { return len(h.surface.Lyrics()) == 1 }, "a should render")
		h.quit(t)

		if h.lyrics.Calls("a") != 1 || len(h.surface.Tracks()) != 1 {
			t.Errorf("duplicate change should be ignored: %d calls, tracks %v", h.lyrics.Calls("a"), h.surface.Tracks())
		}
	})

	t.Run("Not Found Renders Message", func(t *testing.T) {
		h := startCoordinator(t, nil)

		h.coord.Post(TrackChangedSignal(*track("a")))
		h.lyrics.release("a", nil, nil)
		tu.Eventually(t, time.Second, func() bool { return len(h.surface.Lyrics()) == 1 }, "message should render")

		if h.surface.Lyrics()[0] != NoLyricsText {
			t.Errorf("expected %q, got %q", NoLyricsText, h.surface.Lyrics()[0])
		}
	})

	t.Run("Error Keeps Last Text", func(t *testing.T) {
		h := startCoordinator(t, nil)

		h.coord.Post(TrackChangedSignal(*track("a")))
		h.lyrics.release("a", ptr("lyrics for a"), nil)
		tu.Eventually(t, time.Second, func() bool { return len(h.surface.Lyrics()) == 1 }, "a should render")

		h.coord.Post(TrackChangedSignal(*track("b")))
		h.lyrics.release("b", nil, errUnavailable)
		tu.Eventually(t, time.Second, func() bool {
			return h.surface.Indicator().Message == LyricsFailedMessage
		}, "failure should reach the indicator")

		if got := h.surface.Lyrics(); !slices.Equal(got, []string{"lyrics for a"}) {
			t.Errorf("lyrics should be untouched on error, got %v", got)
		}
	})

	t.Run("Records History", func(t *testing.T) {
		history := &recordingHistory{}
		h := startCoordinator(t, func(o *CoordinatorOpts) { o.History = history })

		h.coord.Post(TrackChangedSignal(*track("a")))
		h.coord.Post(TrackChangedSignal(*track("b")))
		h.quit(t)

		ids := history.IDs()
		slices.Sort(ids)
		if !slices.Equal(ids, []string{"a", "b"}) {
			t.Errorf("expected history [a b], got %v", ids)
		}
	})
}

func TestCoordinatorVisibility(t *testing.T) {
	t.Run("Initial State", func(t *testing.T) {
		h := startCoordinator(t, func(o *CoordinatorOpts) { o.Config.OverlayVisible = false })
		tu.Eventually(t, time.Second, func() bool { return h.surface.Indicator() != (Indicator{}) }, "indicator should publish")
		if h.surface.Visible() {
			t.Error("overlay should start hidden")
		}
	})

	t.Run("Toggle Persists", func(t *testing.T) {
		h := startCoordinator(t, nil)

		h.coord.Post(ToggleVisibilitySignal())
		tu.Eventually(t, time.Second, func() bool {
			last, ok := h.store.Last()
			return ok && !last.OverlayVisible
		}, "hidden flag should be saved")

		if h.surface.Visible() {
			t.Error("overlay should be hidden")
		}
		if h.surface.Indicator().Visible {
			t.Error("indicator should report hidden")
		}

		h.coord.Post(ToggleVisibilitySignal())
		tu.Eventually(t, time.Second, h.surface.Visible, "overlay should be shown again")
	})

	t.Run("Window Moves Persist On Significant Change", func(t *testing.T) {
		h := startCoordinator(t, nil)

		h.coord.Post(WindowMovedSignal(110, 100))
		h.coord.Post(WindowMovedSignal(300, 100))
		tu.Eventually(t, time.Second, func() bool { return len(h.store.Saves()) == 1 }, "large move should be saved")

		if got := h.store.Saves()[0].WindowPosition; got != [2]float64{300, 100} {
			t.Errorf("expected (300, 100), got %v", got)
		}
	})

	t.Run("Quit Persists Final State", func(t *testing.T) {
		quitCalled := false
		h := startCoordinator(t, func(o *CoordinatorOpts) { o.OnQuit = func() { quitCalled = true } })

		h.coord.Post(WindowMovedSignal(105, 102))
		h.quit(t)

		last, ok := h.store.Last()
		if !ok {
			t.Fatal("quit should save config")
		}
		if last.WindowPosition != [2]float64{105, 102} || !last.OverlayVisible {
			t.Errorf("unexpected final config %+v", last)
		}
		if !quitCalled {
			t.Error("OnQuit should run")
		}
		if h.coord.Post(ToggleVisibilitySignal()) {
			t.Error("post after quit should be rejected")
		}
	})

	t.Run("Context Cancel Shuts Down", func(t *testing.T) {
		h := startCoordinator(t, nil)
		h.cancel()
		select {
		case err := <-h.done:
			h.done <- err
		case <-time.After(time.Second):
			t.Fatal("coordinator did not stop")
		}
		if _, ok := h.store.Last(); !ok {
			t.Error("shutdown should save config")
		}
	})
}

func TestCoordinatorAuth(t *testing.T) {
	t.Run("Successful Flow Resumes Polling", func(t *testing.T) {
		resumer := &countingResumer{}
		h := startCoordinator(t, func(o *CoordinatorOpts) {
			o.Poller = resumer
			o.Authenticate = func(ctx context.Context) error { return nil }
		})

		h.coord.Post(AuthRequiredSignal(errors.New("token expired")))
		tu.Eventually(t, time.Second, func() bool { return !h.surface.Indicator().Authenticated }, "indicator should show auth required")

		h.coord.Post(AuthenticateRequestedSignal())
		tu.Eventually(t, time.Second, func() bool { return resumer.Count() == 1 }, "poller should resume")

		ind := h.surface.Indicator()
		if !ind.Authenticated || ind.Message != "" {
			t.Errorf("unexpected indicator %+v", ind)
		}
	})

	t.Run("Failed Flow", func(t *testing.T) {
		resumer := &countingResumer{}
		h := startCoordinator(t, func(o *CoordinatorOpts) {
			o.Authenticated = false
			o.Poller = resumer
			o.Authenticate = func(ctx context.Context) error { return errors.New("denied") }
		})

		h.coord.Post(AuthenticateRequestedSignal())
		tu.Eventually(t, time.Second, func() bool {
			return h.surface.Indicator().Message == AuthFailedMessage
		}, "failure should reach the indicator")

		if resumer.Count() != 0 || h.surface.Indicator().Authenticated {
			t.Error("failed flow should not resume polling")
		}
	})

	t.Run("One Flow At A Time", func(t *testing.T) {
		release := make(chan struct{})
		var mu sync.Mutex
		runs := 0
		h := startCoordinator(t, func(o *CoordinatorOpts) {
			o.Authenticate = func(ctx context.Context) error {
				mu.Lock()
				runs++
				mu.Unlock()
				select {
				case <-release:
				case <-ctx.Done():
				}
				return nil
			}
		})

		h.coord.Post(AuthenticateRequestedSignal())
		h.coord.Post(AuthenticateRequestedSignal())
		tu.Eventually(t, time.Second, func() bool {
			return h.surface.Indicator().Message == AuthPendingMessage
		}, "flow should start")
		close(release)
		h.quit(t)

		mu.Lock()
		defer mu.Unlock()
		if runs != 1 {
			t.Errorf("expected one flow, got %d", runs)
		}
	})

	t.Run("Poll Failure Reaches Indicator", func(t *testing.T) {
		h := startCoordinator(t, nil)
		h.coord.Post(PollFailedSignal(errUnavailable))
		tu.Eventually(t, time.Second, func() bool {
			return h.surface.Indicator().Message == SpotifyUnreachable
		}, "indicator should report the outage")
	})
}
