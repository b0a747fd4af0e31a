// Package recognizer performs one blocking capture-and-transcribe
// cycle against an open capture stream. It never runs on the display
// loop; every outcome is a typed result, never a panic.
package recognizer

import (
	"context"
	"errors"
	"time"
)

// Capture policy. These mirror the tuning the app has always shipped
// with, so they are named constants rather than config knobs.
const (
	// EnergyThreshold is the RMS level (16-bit sample scale) above
	// which a chunk counts as speech. Dynamic adjustment raises it
	// over noisy ambient floors.
	EnergyThreshold = 300

	// AmbientWindow is sampled before each capture to measure the
	// noise floor.
	AmbientWindow = 300 * time.Millisecond

	// PhraseSilence of continuous quiet ends the phrase.
	PhraseSilence = 800 * time.Millisecond

	// CaptureTimeout bounds the wait for speech to start.
	CaptureTimeout = 10 * time.Second

	// MaxPhrase bounds a single utterance.
	MaxPhrase = 60 * time.Second
)

var (
	// ErrNotUnderstood: speech was captured but the service returned
	// no transcription.
	ErrNotUnderstood = errors.New("could not understand audio")

	// ErrServiceUnavailable: the transcription service could not be
	// reached or answered with an error.
	ErrServiceUnavailable = errors.New("transcription service unavailable")

	// ErrTimeout: no speech was detected within the capture window.
	ErrTimeout = errors.New("no speech detected before timeout")
)

// Transcript is one recognized utterance.
type Transcript struct {
	Time     time.Time
	Text     string
	Language string
}

// Service is the narrow blocking contract to the transcription
// backend. Empty text with a nil error means nothing was understood.
type Service interface {
	Transcribe(ctx context.Context, wavData []byte, language string) (string, error)
}
