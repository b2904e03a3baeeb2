// Package ui renders the lyrics overlay.
//
// [Overlay] is a bubbletea program: a bordered panel with the current track, a scrolling
// [viewport.Model] of lyrics and an indicator line for Spotify connection state and transient
// messages. When hidden, only the indicator line remains. It implements [tasks.Surface]; the
// coordinator drives it by sending [Msg] values into the program.
//
// Keys never change overlay state directly. They post signals (toggle, authenticate, quit,
// window moved) to the coordinator, which answers with surface commands. Bindings follow vim
// style (j/k scroll, H/J/K/L move the panel) with help from charmbracelet/bubbles/help.
//
// [LogSurface] is the headless surface used with --headless: lyrics go to stdout, state to the log.
package ui
