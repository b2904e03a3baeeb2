package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lyricsify/internal/models"
	"github.com/desertthunder/lyricsify/internal/tasks"
)

// MsgKind enumerates the surface commands delivered to the program.
type MsgKind int

// Msg is the union of surface commands (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgShow MsgKind = iota
	MsgHide
	MsgTrack
	MsgLyrics
	MsgIndicator
)

func showMsg() Msg { return Msg{kind: MsgShow} }

func hideMsg() Msg { return Msg{kind: MsgHide} }

// trackMsg is the constructor for [MsgTrack]
func trackMsg(track models.Track) Msg { return Msg{kind: MsgTrack, data: track} }

// lyricsMsg is the constructor for [MsgLyrics]
func lyricsMsg(text string) Msg { return Msg{kind: MsgLyrics, data: text} }

// indicatorMsg is the constructor for [MsgIndicator]
func indicatorMsg(ind tasks.Indicator) Msg { return Msg{kind: MsgIndicator, data: ind} }
