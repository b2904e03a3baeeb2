package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricsify/internal/models"
	"github.com/desertthunder/lyricsify/internal/services"
	"github.com/desertthunder/lyricsify/internal/shared"
)

const DefaultPollInterval = 5 * time.Second

// DefaultRetryDelays are the waits between attempts of one poll: three retries after the first try.
var DefaultRetryDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// PollState is a snapshot of the poller's private state.
type PollState struct {
	LastSeen            *models.Track
	ConsecutiveFailures int
	NextDelay           time.Duration
	AuthRequired        bool
}

// backoff walks a fixed delay schedule. attempt counts retries already taken.
type backoff struct {
	delays  []time.Duration
	attempt int
}

// next returns the delay before the following retry, or false once the schedule is spent.
func (b *backoff) next() (time.Duration, bool) {
	if b.attempt >= len(b.delays) {
		return 0, false
	}
	d := b.delays[b.attempt]
	b.attempt++
	return d, true
}

// pending returns the delay the next retry would use, or 0 when none is left.
func (b *backoff) pending() time.Duration {
	if b.attempt >= len(b.delays) {
		return 0
	}
	return b.delays[b.attempt]
}

// PollerOpts configures a [Poller]. Zero values select the defaults.
type PollerOpts struct {
	Provider services.PlaybackProvider
	Interval time.Duration
	Delays   []time.Duration
	Sleep    SleepFunc
	Logger   *log.Logger
}

// Poller asks the playback provider what is playing and reports identity changes.
//
// It is the only writer of its [PollState]. Other components learn about changes through the
// signals passed to the emit func given to [Poller.Run].
type Poller struct {
	provider services.PlaybackProvider
	delays   []time.Duration
	sleep    SleepFunc
	logger   *log.Logger

	mu       sync.Mutex
	state    PollState
	interval time.Duration

	wake chan struct{}
}

// NewPoller creates a poller from opts.
func NewPoller(opts PollerOpts) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Delays == nil {
		opts.Delays = DefaultRetryDelays
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepWithContext
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Poller{
		provider: opts.Provider,
		delays:   opts.Delays,
		sleep:    opts.Sleep,
		logger:   opts.Logger,
		interval: opts.Interval,
		wake:     make(chan struct{}, 1),
	}
}

// PollOnce asks the provider once, retrying transient failures on the delay schedule.
//
// It returns nil without error when nothing lyric-worthy is playing. Authentication errors are
// returned immediately without retry. PollOnce does not update the last-seen track.
func (p *Poller) PollOnce(ctx context.Context) (*models.Track, error) {
	b := backoff{delays: p.delays}

	for {
		track, err := p.provider.CurrentlyPlaying(ctx)
		if err == nil {
			p.update(func(s *PollState) {
				s.ConsecutiveFailures = 0
				s.NextDelay = 0
			})
			return track, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if shared.IsAuthError(err) || !shared.IsTransient(err) {
			p.update(func(s *PollState) {
				s.ConsecutiveFailures++
				s.NextDelay = 0
			})
			return nil, err
		}

		delay, ok := b.next()
		p.update(func(s *PollState) {
			s.ConsecutiveFailures++
			s.NextDelay = b.pending()
		})
		if !ok {
			return nil, fmt.Errorf("poll failed after %d attempts: %w", b.attempt+1, err)
		}

		p.logger.Warn("poll failed, retrying", "attempt", b.attempt, "delay", delay, "error", err)
		if err := p.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// Run polls immediately and then once per interval until ctx is done.
//
// emit receives a TrackChanged signal whenever the playing track's ID differs from the last one
// seen, PollFailed after retries are exhausted and AuthRequired on authentication errors. After
// AuthRequired the poller parks until [Poller.Resume] is called.
func (p *Poller) Run(ctx context.Context, emit func(Signal)) error {
	p.logger.Info("poller started", "interval", p.Interval())
	defer p.logger.Info("poller stopped")

	for {
		p.tick(ctx, emit)

		if p.State().AuthRequired {
			p.logger.Info("poller parked until re-authentication")
			select {
			case <-ctx.Done():
				return nil
			case <-p.wake:
			}
			continue
		}

		timer := time.NewTimer(p.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-p.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (p *Poller) tick(ctx context.Context, emit func(Signal)) {
	track, err := p.PollOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if shared.IsAuthError(err) {
			p.update(func(s *PollState) { s.AuthRequired = true })
			p.logger.Warn("spotify authentication required", "error", err)
			emit(AuthRequiredSignal(err))
			return
		}
		p.logger.Error("poll failed", "error", err)
		emit(PollFailedSignal(err))
		return
	}

	// paused or non-track content leaves the last-seen track in place
	if track == nil {
		return
	}

	changed := false
	p.update(func(s *PollState) {
		if !s.LastSeen.Same(track) {
			s.LastSeen = track
			changed = true
		}
	})

	if changed {
		p.logger.Info("track changed", "id", track.ID, "track", track.Display())
		emit(TrackChangedSignal(*track))
	}
}

// Resume clears the authentication-required condition and polls immediately.
func (p *Poller) Resume() {
	p.update(func(s *PollState) { s.AuthRequired = false })
	p.Wake()
}

// Wake makes a running poller poll now instead of at the next tick.
func (p *Poller) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// SetInterval changes the cadence starting with the next wait.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()
}

// Interval returns the current cadence.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// State returns a copy of the poll state.
func (p *Poller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	if s.LastSeen != nil {
		track := *s.LastSeen
		s.LastSeen = &track
	}
	return s
}

func (p *Poller) update(fn func(*PollState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
