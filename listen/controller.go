// Package listen coordinates one-shot and continuous capture cycles:
// take the microphone, record a phrase, transcribe it, hand the text to
// the responder, and report everything on the bus.
package listen

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aliftffd/speech-recognition-withOLLAMA/audio"
	"github.com/aliftffd/speech-recognition-withOLLAMA/bus"
	"github.com/aliftffd/speech-recognition-withOLLAMA/convo"
	"github.com/aliftffd/speech-recognition-withOLLAMA/mic"
	"github.com/aliftffd/speech-recognition-withOLLAMA/recognizer"
)

type Mode int

const (
	ModeOnce Mode = iota
	ModeContinuous
)

type State int

const (
	StateIdle State = iota
	StateListeningOnce
	StateListeningContinuous
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListeningOnce:
		return "listening"
	case StateListeningContinuous:
		return "continuous"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// Recognizer runs one capture-and-transcribe cycle on an open stream.
type Recognizer interface {
	CaptureAndRecognize(ctx context.Context, stream audio.CaptureDevice, language string) (*recognizer.Transcript, string, error)
}

// Responder turns a recognized utterance into an assistant reply.
type Responder interface {
	Respond(ctx context.Context, userText string) (convo.Message, error)
}

// Controller owns the listening lifecycle. The microphone is held only
// while a phrase is being captured; it is released before inference so
// the next cycle can start while the model is thinking.
type Controller struct {
	mics *mic.Manager
	rec  Recognizer
	resp Responder
	bus  *bus.Bus

	// pause between continuous cycles; shrunk by tests.
	pause time.Duration

	mu       sync.Mutex
	state    State
	stop     chan struct{}
	device   int
	language string
	respond  bool

	wg     sync.WaitGroup
	respWg sync.WaitGroup
}

func NewController(mics *mic.Manager, rec Recognizer, resp Responder, b *bus.Bus) *Controller {
	return &Controller{
		mics:     mics,
		rec:      rec,
		resp:     resp,
		bus:      b,
		pause:    300 * time.Millisecond,
		language: "id-ID",
		respond:  true,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether a listening session is running or winding down.
func (c *Controller) Active() bool { return c.State() != StateIdle }

func (c *Controller) SetDevice(index int) {
	c.mu.Lock()
	c.device = index
	c.mu.Unlock()
}

func (c *Controller) Device() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device
}

func (c *Controller) SetLanguage(lang string) {
	c.mu.Lock()
	c.language = lang
	c.mu.Unlock()
}

func (c *Controller) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}

// SetRespond toggles forwarding transcripts to the responder.
func (c *Controller) SetRespond(on bool) {
	c.mu.Lock()
	c.respond = on
	c.mu.Unlock()
}

func (c *Controller) RespondEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.respond
}

// Start begins a listening session. It is a no-op returning false when
// a session is already active, in any mode.
func (c *Controller) Start(mode Mode) bool {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return false
	}
	stop := make(chan struct{})
	c.stop = stop
	if mode == ModeOnce {
		c.state = StateListeningOnce
	} else {
		c.state = StateListeningContinuous
	}
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(mode, stop)
	}()
	return true
}

// Stop requests the active session to end. The stop signal is checked
// only at iteration boundaries: an in-flight capture runs to its own
// timeout and in-flight inference is never interrupted.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle || c.state == StateStopping {
		return
	}
	c.state = StateStopping
	close(c.stop)
}

// Close stops the session and waits for all background work, including
// any outstanding response, to finish.
func (c *Controller) Close() {
	c.Stop()
	c.wg.Wait()
	c.respWg.Wait()
}

func (c *Controller) run(mode Mode, stop chan struct{}) {
	defer func() {
		c.mu.Lock()
		c.state = StateIdle
		c.stop = nil
		c.mu.Unlock()
		c.bus.Publish(bus.StatusEvent{Text: "Ready", Listening: false})
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}
		c.cycle(context.Background())
		if mode == ModeOnce {
			return
		}
		select {
		case <-stop:
			return
		case <-time.After(c.pause):
		}
	}
}

// cycle runs one acquire-capture-release round. Every outcome ends on
// the bus; errors never terminate the session except cancellation.
func (c *Controller) cycle(ctx context.Context) {
	c.mu.Lock()
	device, language, respond := c.device, c.language, c.respond
	c.mu.Unlock()

	handle, err := c.mics.Acquire()
	if err != nil {
		c.bus.Publish(bus.ErrorEvent{Err: err})
		return
	}

	stream, err := c.mics.InitializeWithFallback(device)
	if err != nil {
		handle.Release()
		c.bus.Publish(bus.ErrorEvent{Err: err})
		return
	}

	c.bus.Publish(bus.StatusEvent{Text: "Listening...", Listening: true})
	tr, artifact, err := c.rec.CaptureAndRecognize(ctx, stream, language)
	stream.Close()
	handle.Release()

	if artifact != "" {
		c.bus.Publish(bus.ArtifactEvent{Path: artifact})
	}

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		return
	default:
		c.bus.Publish(bus.ErrorEvent{Err: err})
		return
	}

	c.bus.Publish(bus.TranscriptEvent{
		Timestamp: tr.Time,
		Text:      tr.Text,
		Language:  tr.Language,
	})

	if respond && c.resp != nil {
		c.respondAsync(tr.Text)
	}
}

// respondAsync runs inference off the capture path. The microphone is
// already released by the time this starts. A stop request does not
// cancel a reply in progress; the responder's own timeout bounds it.
func (c *Controller) respondAsync(text string) {
	c.respWg.Add(1)
	go func() {
		defer c.respWg.Done()
		c.bus.Publish(bus.StatusEvent{Text: "Thinking...", Listening: false})
		reply, err := c.resp.Respond(context.Background(), text)
		if err != nil {
			c.bus.Publish(bus.ErrorEvent{Err: err})
			return
		}
		c.bus.Publish(bus.ReplyEvent{Timestamp: time.Now(), Text: reply.Content})
	}()
}
