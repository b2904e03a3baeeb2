package tasks

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricsify/internal/models"
	"github.com/desertthunder/lyricsify/internal/prefs"
)

const (
	DefaultQueueSize     = 64
	DefaultMoveThreshold = 50.0
	historyWriteTimeout  = 5 * time.Second
)

// Messages shown on the surface.
const (
	NoLyricsText        = "Lyrics not available for this track"
	FetchingMessage     = "Fetching lyrics…"
	LyricsFailedMessage = "Couldn't load lyrics"
	SpotifyUnreachable  = "Unable to connect to Spotify"
	AuthRequiredMessage = "Spotify authentication required (press a)"
	AuthPendingMessage  = "Waiting for Spotify authorization…"
	AuthFailedMessage   = "Spotify authorization failed"
	AuthUnavailableMsg  = "Run `lyricsify auth login` to connect Spotify"
)

// Indicator is the status line state: authentication, visibility and a transient message.
type Indicator struct {
	Authenticated bool
	Visible       bool
	Message       string
}

// Surface renders overlay state. Implementations must not block the caller.
type Surface interface {
	Show()
	Hide()
	SetTrack(track models.Track)
	SetLyrics(text string)
	SetIndicator(ind Indicator)
}

// LyricsSource answers lyrics requests. [Fetcher] implements it.
type LyricsSource interface {
	GetLyrics(ctx context.Context, track models.Track) (*string, error)
}

// HistoryRecorder stores each displayed track.
type HistoryRecorder interface {
	Record(ctx context.Context, track models.Track, playedAt time.Time) (*models.PlayedTrack, error)
}

// ConfigStore persists [prefs.AppConfig].
type ConfigStore interface {
	Save(cfg prefs.AppConfig) error
}

// Resumer restarts polling after re-authentication. [Poller] implements it.
type Resumer interface {
	Resume()
}

// Authenticator runs the interactive OAuth flow and stores the resulting token.
type Authenticator func(ctx context.Context) error

// CoordinatorOpts configures a [Coordinator]. Surface and Lyrics are required.
type CoordinatorOpts struct {
	Surface       Surface
	Lyrics        LyricsSource
	Poller        Resumer
	Authenticate  Authenticator
	History       HistoryRecorder
	Store         ConfigStore
	Config        prefs.AppConfig
	Authenticated bool
	OnQuit        func()
	Logger        *log.Logger
	QueueSize     int
	MoveThreshold float64
}

// Coordinator is the single consumer of the signal queue and the only owner of the displayed
// track, the overlay visibility and the window position.
//
// Work that can block (lyrics lookups, the OAuth flow, history writes, config saves) runs on
// separate goroutines and reports back through [Coordinator.Post].
type Coordinator struct {
	surface       Surface
	lyrics        LyricsSource
	poller        Resumer
	authenticate  Authenticator
	history       HistoryRecorder
	store         ConfigStore
	onQuit        func()
	logger        *log.Logger
	moveThreshold float64

	signals  chan Signal
	stopping chan struct{}
	stopOnce sync.Once

	workCtx    context.Context
	cancelWork context.CancelFunc
	inflight   sync.WaitGroup
	persisting sync.WaitGroup

	// owned by the Run goroutine
	config       prefs.AppConfig
	current      *models.Track
	authRequired bool
	authPending  bool
	message      string
	savedPos     [2]float64
	saveSeq      uint64

	saveMu   sync.Mutex
	savedSeq uint64
}

// NewCoordinator creates a coordinator from opts.
func NewCoordinator(opts CoordinatorOpts) *Coordinator {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.MoveThreshold <= 0 {
		opts.MoveThreshold = DefaultMoveThreshold
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	c := &Coordinator{
		surface:       opts.Surface,
		lyrics:        opts.Lyrics,
		poller:        opts.Poller,
		authenticate:  opts.Authenticate,
		history:       opts.History,
		store:         opts.Store,
		onQuit:        opts.OnQuit,
		logger:        opts.Logger,
		moveThreshold: opts.MoveThreshold,
		signals:       make(chan Signal, opts.QueueSize),
		stopping:      make(chan struct{}),
		config:        opts.Config,
		authRequired:  !opts.Authenticated,
		savedPos:      opts.Config.WindowPosition,
	}
	c.workCtx, c.cancelWork = context.WithCancel(context.Background())
	if c.authRequired {
		c.message = AuthRequiredMessage
	}
	return c
}

// Post enqueues sig. It returns false once the coordinator is shutting down.
func (c *Coordinator) Post(sig Signal) bool {
	select {
	case <-c.stopping:
		return false
	default:
	}

	select {
	case c.signals <- sig:
		return true
	case <-c.stopping:
		return false
	}
}

// Emit adapts Post to the emit func taken by [Poller.Run].
func (c *Coordinator) Emit(sig Signal) { c.Post(sig) }

// Run dispatches signals in arrival order until a Quit signal or ctx is done. Cancelling ctx
// shuts down exactly like Quit.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("coordinator started", "visible", c.config.OverlayVisible, "authenticated", !c.authRequired)
	c.applyVisibility()
	c.publishIndicator()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case sig := <-c.signals:
			c.logger.Debug("signal", "signal", sig)
			if sig.Kind == Quit {
				c.shutdown()
				return nil
			}
			c.dispatch(sig)
		}
	}
}

// Config returns the AppConfig as last persisted or mutated. Only safe after Run returns.
func (c *Coordinator) Config() prefs.AppConfig { return c.config }

func (c *Coordinator) dispatch(sig Signal) {
	switch sig.Kind {
	case TrackChanged:
		c.onTrackChanged(sig.Track)
	case LyricsReady:
		c.onLyricsReady(sig)
	case ToggleVisibility:
		c.onToggle()
	case AuthenticateRequested:
		c.onAuthenticateRequested()
	case Authenticated:
		c.onAuthenticated(sig.Err)
	case AuthRequired:
		c.authRequired = true
		c.message = AuthRequiredMessage
		c.publishIndicator()
	case PollFailed:
		c.message = SpotifyUnreachable
		c.publishIndicator()
	case WindowMoved:
		c.onWindowMoved(sig.Position)
	default:
		c.logger.Warn("unknown signal", "signal", sig)
	}
}

func (c *Coordinator) onTrackChanged(track *models.Track) {
	if track == nil || c.current.Same(track) {
		return
	}

	// a later change supersedes this one even before its lyrics arrive
	t := *track
	c.current = &t
	c.authRequired = false
	c.surface.SetTrack(t)
	c.message = FetchingMessage
	c.publishIndicator()

	c.requestLyrics(t)
	c.recordHistory(t)
}

func (c *Coordinator) requestLyrics(track models.Track) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		text, err := c.lyrics.GetLyrics(c.workCtx, track)
		c.Post(LyricsReadySignal(track.ID, text, err))
	}()
}

func (c *Coordinator) recordHistory(track models.Track) {
	if c.history == nil {
		return
	}

	playedAt := time.Now().UTC()
	c.persisting.Add(1)
	go func() {
		defer c.persisting.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.workCtx), historyWriteTimeout)
		defer cancel()
		if _, err := c.history.Record(ctx, track, playedAt); err != nil {
			c.logger.Warn("failed to record play history", "id", track.ID, "error", err)
		}
	}()
}

func (c *Coordinator) onLyricsReady(sig Signal) {
	if c.current == nil || c.current.ID != sig.TrackID {
		c.logger.Debug("discarding stale lyrics", "id", sig.TrackID)
		return
	}

	switch {
	case sig.Err != nil:
		c.logger.Warn("lyrics unavailable, keeping last text", "id", sig.TrackID, "error", sig.Err)
		c.message = LyricsFailedMessage
	case sig.Lyrics == nil:
		c.surface.SetLyrics(NoLyricsText)
		c.message = ""
	default:
		c.surface.SetLyrics(*sig.Lyrics)
		c.message = ""
	}
	c.publishIndicator()
}

func (c *Coordinator) onToggle() {
	c.config.OverlayVisible = !c.config.OverlayVisible
	c.applyVisibility()
	c.publishIndicator()
	c.persist(c.config)
}

func (c *Coordinator) onAuthenticateRequested() {
	if c.authenticate == nil {
		c.message = AuthUnavailableMsg
		c.publishIndicator()
		return
	}
	if c.authPending {
		c.logger.Debug("authentication already in progress")
		return
	}

	c.authPending = true
	c.message = AuthPendingMessage
	c.publishIndicator()

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.Post(AuthenticatedSignal(c.authenticate(c.workCtx)))
	}()
}

func (c *Coordinator) onAuthenticated(err error) {
	c.authPending = false
	if err != nil {
		c.logger.Error("spotify authentication failed", "error", err)
		c.message = AuthFailedMessage
		c.publishIndicator()
		return
	}

	c.logger.Info("spotify authenticated, resuming polling")
	c.authRequired = false
	c.message = ""
	c.publishIndicator()
	if c.poller != nil {
		c.poller.Resume()
	}
}

func (c *Coordinator) onWindowMoved(pos [2]float64) {
	c.config.WindowPosition = pos
	dx, dy := pos[0]-c.savedPos[0], pos[1]-c.savedPos[1]
	if math.Hypot(dx, dy) < c.moveThreshold {
		return
	}
	c.savedPos = pos
	c.persist(c.config)
}

func (c *Coordinator) applyVisibility() {
	if c.config.OverlayVisible {
		c.surface.Show()
	} else {
		c.surface.Hide()
	}
}

func (c *Coordinator) publishIndicator() {
	c.surface.SetIndicator(Indicator{
		Authenticated: !c.authRequired,
		Visible:       c.config.OverlayVisible,
		Message:       c.message,
	})
}

// persist saves cfg in the background. Saves are ordered so an older snapshot never overwrites
// a newer one.
func (c *Coordinator) persist(cfg prefs.AppConfig) {
	if c.store == nil {
		return
	}

	c.saveSeq++
	seq := c.saveSeq
	c.persisting.Add(1)
	go func() {
		defer c.persisting.Done()
		c.saveMu.Lock()
		defer c.saveMu.Unlock()

		if seq < c.savedSeq {
			return
		}
		if err := c.store.Save(cfg); err != nil {
			c.logger.Error("failed to save app config", "error", err)
			return
		}
		c.savedSeq = seq
	}()
}

func (c *Coordinator) shutdown() {
	c.stopOnce.Do(func() {
		c.logger.Info("coordinator stopping")
		close(c.stopping)
		c.cancelWork()

		if c.onQuit != nil {
			c.onQuit()
		}

		c.persist(c.config)
		c.inflight.Wait()
		c.persisting.Wait()
		c.logger.Info("coordinator stopped")
	})
}
