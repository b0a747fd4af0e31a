// Package bus carries events from background workers to the single
// display consumer. Per-producer emission order is preserved; there is
// no total order across concurrent producers.
package bus

import (
	"sync"
	"time"
)

// Event is the closed set of message variants the display loop consumes.
type Event interface{ isEvent() }

// StatusEvent updates the status line.
type StatusEvent struct {
	Text      string
	Listening bool
}

// TranscriptEvent carries one recognized utterance.
type TranscriptEvent struct {
	Timestamp time.Time
	Text      string
	Language  string
}

// ReplyEvent carries one assistant response.
type ReplyEvent struct {
	Timestamp time.Time
	Text      string
}

// AudioLevelEvent carries a capture level sample in [0, 20].
type AudioLevelEvent struct {
	Level     int
	Timestamp time.Time
}

// LogEvent carries an informational line for the transcript panel.
type LogEvent struct{ Text string }

// ErrorEvent carries a typed error surfaced from a background unit.
type ErrorEvent struct{ Err error }

// ArtifactEvent reports a debug WAV dump written to disk.
type ArtifactEvent struct{ Path string }

func (StatusEvent) isEvent()     {}
func (TranscriptEvent) isEvent() {}
func (ReplyEvent) isEvent()      {}
func (AudioLevelEvent) isEvent() {}
func (LogEvent) isEvent()        {}
func (ErrorEvent) isEvent()      {}
func (ArtifactEvent) isEvent()   {}

// Bus is a thread-safe channel with exactly one consuming loop.
// Publish blocks when the buffer is full instead of dropping, so a
// producer's own ordering is never violated.
type Bus struct {
	ch        chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func New(size int) *Bus {
	if size <= 0 {
		size = 64
	}
	return &Bus{
		ch:   make(chan Event, size),
		done: make(chan struct{}),
	}
}

// Publish delivers ev to the consumer. After Close it becomes a no-op
// so lingering background units never block on a dead consumer.
func (b *Bus) Publish(ev Event) {
	select {
	case <-b.done:
	case b.ch <- ev:
	}
}

// Events returns the consumer side of the bus.
func (b *Bus) Events() <-chan Event { return b.ch }

// Close releases producers. Safe to call from multiple goroutines. The
// events channel is left open; the consumer simply stops reading.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
