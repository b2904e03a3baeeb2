package models

import (
	"testing"
	"time"
)

func TestTrack(t *testing.T) {
	a := &Track{ID: "abc", Name: "Song", Artists: []string{"First", "Second"}, DurationMS: 61000}

	t.Run("Same compares ID only", func(t *testing.T) {
		renamed := &Track{ID: "abc", Name: "Song (Remastered)"}
		other := &Track{ID: "xyz", Name: "Song"}

		if !a.Same(renamed) {
			t.Error("tracks with equal IDs should be the same")
		}
		if a.Same(other) {
			t.Error("tracks with different IDs should differ")
		}
		if a.Same(nil) {
			t.Error("track should not equal nil")
		}

		var none *Track
		if !none.Same(nil) {
			t.Error("nil should equal nil")
		}
	})

	t.Run("Artists", func(t *testing.T) {
		if a.PrimaryArtist() != "First" {
			t.Errorf("expected First, got %s", a.PrimaryArtist())
		}
		if (Track{}).PrimaryArtist() != "" {
			t.Error("expected empty primary artist")
		}
		if a.Display() != "First, Second – Song" {
			t.Errorf("unexpected display %q", a.Display())
		}
		if (Track{Name: "Solo"}).Display() != "Solo" {
			t.Error("display without artists should be the title")
		}
	})

	t.Run("Duration", func(t *testing.T) {
		if a.Duration() != 61*time.Second {
			t.Errorf("expected 61s, got %v", a.Duration())
		}
	})
}
