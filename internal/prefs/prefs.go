// Package prefs stores per-reader read-aloud preferences.
//
// Preferences are a small fixed record (narration speed, auto page advance,
// sound effects) keyed by reader ID. A missing record reads back as
// [Defaults], so callers never special-case first-time readers.
package prefs

import (
	"context"
	"errors"
	"fmt"
)

// Speed bounds accepted by [Validate]. They match the range the narration
// backends accept.
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// Prefs is one reader's read-aloud preferences.
type Prefs struct {
	// Speed is the narration speed multiplier, between [MinSpeed] and
	// [MaxSpeed].
	Speed float64 `json:"speed"`

	// AutoAdvance turns the page automatically when narration for the
	// current page finishes.
	AutoAdvance bool `json:"auto_advance"`

	// SoundEffectsEnabled plays UI sound effects (page turns, celebration
	// chimes).
	SoundEffectsEnabled bool `json:"sound_effects_enabled"`
}

// Defaults returns the preferences applied to readers who have never saved
// any.
func Defaults() Prefs {
	return Prefs{
		Speed:               1.0,
		AutoAdvance:         true,
		SoundEffectsEnabled: true,
	}
}

// Validate checks p for out-of-range values.
func Validate(p Prefs) error {
	var errs []error

	if p.Speed < MinSpeed || p.Speed > MaxSpeed {
		errs = append(errs, fmt.Errorf("speed %v outside [%v, %v]", p.Speed, MinSpeed, MaxSpeed))
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// Store persists reader preferences.
//
// All implementations must be safe for concurrent use.
type Store interface {
	// Get returns the reader's saved preferences, or [Defaults] when the
	// reader has never saved any.
	Get(ctx context.Context, readerID string) (Prefs, error)

	// Put saves the reader's preferences, replacing any previous record.
	// The preferences must pass [Validate].
	Put(ctx context.Context, readerID string, p Prefs) error
}
