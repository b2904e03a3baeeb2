package tasks

import (
	"fmt"

	"github.com/desertthunder/lyricsify/internal/models"
)

// SignalKind enumerates the messages the [Coordinator] consumes.
type SignalKind int

const (
	TrackChanged SignalKind = iota
	LyricsReady
	ToggleVisibility
	AuthenticateRequested
	Quit
	AuthRequired
	PollFailed
	Authenticated
	WindowMoved
)

func (k SignalKind) String() string {
	switch k {
	case TrackChanged:
		return "track_changed"
	case LyricsReady:
		return "lyrics_ready"
	case ToggleVisibility:
		return "toggle_visibility"
	case AuthenticateRequested:
		return "authenticate_requested"
	case Quit:
		return "quit"
	case AuthRequired:
		return "auth_required"
	case PollFailed:
		return "poll_failed"
	case Authenticated:
		return "authenticated"
	case WindowMoved:
		return "window_moved"
	default:
		return fmt.Sprintf("signal(%d)", int(k))
	}
}

// Signal is one entry in the coordinator queue. Which fields are set depends on Kind:
//   - TrackChanged : Track
//   - LyricsReady : TrackID, Lyrics (nil = none exist), Err
//   - AuthRequired, PollFailed, Authenticated : Err
//   - WindowMoved : Position
type Signal struct {
	Kind     SignalKind
	Track    *models.Track
	TrackID  string
	Lyrics   *string
	Err      error
	Position [2]float64
}

func (s Signal) String() string {
	switch s.Kind {
	case TrackChanged:
		if s.Track != nil {
			return fmt.Sprintf("%s(%s)", s.Kind, s.Track.ID)
		}
	case LyricsReady:
		return fmt.Sprintf("%s(%s)", s.Kind, s.TrackID)
	case WindowMoved:
		return fmt.Sprintf("%s(%.0f,%.0f)", s.Kind, s.Position[0], s.Position[1])
	}
	return s.Kind.String()
}

func TrackChangedSignal(track models.Track) Signal {
	return Signal{Kind: TrackChanged, Track: &track}
}

func LyricsReadySignal(trackID string, lyrics *string, err error) Signal {
	return Signal{Kind: LyricsReady, TrackID: trackID, Lyrics: lyrics, Err: err}
}

func ToggleVisibilitySignal() Signal { return Signal{Kind: ToggleVisibility} }

func AuthenticateRequestedSignal() Signal { return Signal{Kind: AuthenticateRequested} }

func QuitSignal() Signal { return Signal{Kind: Quit} }

func AuthRequiredSignal(err error) Signal { return Signal{Kind: AuthRequired, Err: err} }

func PollFailedSignal(err error) Signal { return Signal{Kind: PollFailed, Err: err} }

func AuthenticatedSignal(err error) Signal { return Signal{Kind: Authenticated, Err: err} }

func WindowMovedSignal(x, y float64) Signal {
	return Signal{Kind: WindowMoved, Position: [2]float64{x, y}}
}
