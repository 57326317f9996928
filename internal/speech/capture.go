// Package speech adapts a speech-to-text recognizer into the small state
// object the lesson view binds to: a listening flag, the accumulated
// transcript, and start/stop/reset operations.
package speech

import (
	"sync"
)

// Recognizer is the narrow surface of a native speech-to-text facility.
// OnResult receives the full recognized text of the current listening
// session, interim results included.
type Recognizer interface {
	Start() error
	Stop()
	OnResult(func(text string))
	OnEnd(func())
	OnError(func(err error))
}

// Settings configures a recognizer.
type Settings struct {
	Lang           string
	Continuous     bool
	InterimResults bool
}

// DefaultSettings is continuous US-English capture with interim results.
var DefaultSettings = Settings{Lang: "en-US", Continuous: true, InterimResults: true}

// Factory builds a fresh recognizer for one listening session.
type Factory func(Settings) (Recognizer, error)

// State is where a capture is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateListening
	// StateStopped: the caller stopped listening.
	StateStopped
	// StateEnded: the recognizer ended on its own (silence, timeout).
	StateEnded
	// StateFailed: the recognizer reported an error; see Capture.Err.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	case StateEnded:
		return "ended"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Capture owns at most one active recognizer at a time.
type Capture struct {
	mu       sync.Mutex
	factory  Factory
	settings Settings

	rec        Recognizer
	generation uint64
	state      State
	transcript string
	err        error

	onTranscript func(string)
}

// NewCapture returns a capture backed by factory. A nil factory yields an
// unsupported capture whose operations are no-ops.
func NewCapture(factory Factory, settings Settings) *Capture {
	return &Capture{factory: factory, settings: settings}
}

// IsSupported reports whether a recognizer can be built in this environment.
func (c *Capture) IsSupported() bool {
	return c.factory != nil
}

// OnTranscript registers fn to be called with the transcript whenever it
// changes, including resets to "".
func (c *Capture) OnTranscript(fn func(string)) {
	c.mu.Lock()
	c.onTranscript = fn
	c.mu.Unlock()
}

// StartListening begins a new listening session and resets the transcript.
// Any previous recognizer is stopped first and its late events are dropped.
func (c *Capture) StartListening() error {
	if !c.IsSupported() {
		return nil
	}

	c.mu.Lock()
	old := c.rec
	c.rec = nil
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	// Recognizers may fire OnEnd synchronously from Stop.
	if old != nil {
		old.Stop()
	}

	rec, err := c.factory(c.settings)
	if err != nil {
		c.mu.Lock()
		if gen == c.generation {
			c.state = StateFailed
			c.err = err
		}
		c.mu.Unlock()
		return err
	}

	rec.OnResult(func(text string) { c.handleResult(gen, text) })
	rec.OnEnd(func() { c.handleTerminal(gen, StateEnded, nil) })
	rec.OnError(func(err error) { c.handleTerminal(gen, StateFailed, err) })

	c.mu.Lock()
	if gen != c.generation {
		// Superseded while the recognizer was being built.
		c.mu.Unlock()
		rec.Stop()
		return nil
	}
	c.rec = rec
	c.state = StateListening
	c.err = nil
	notify := c.setTranscriptLocked("")
	c.mu.Unlock()
	notify()

	if err := rec.Start(); err != nil {
		c.handleTerminal(gen, StateFailed, err)
		return err
	}
	return nil
}

// StopListening ends the current listening session. The transcript is kept.
func (c *Capture) StopListening() {
	c.mu.Lock()
	rec := c.rec
	if rec == nil {
		c.mu.Unlock()
		return
	}
	c.rec = nil
	c.generation++
	c.state = StateStopped
	c.mu.Unlock()

	rec.Stop()
}

// ResetTranscript clears the accumulated text.
func (c *Capture) ResetTranscript() {
	c.mu.Lock()
	notify := c.setTranscriptLocked("")
	c.mu.Unlock()
	notify()
}

func (c *Capture) IsListening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateListening
}

func (c *Capture) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

func (c *Capture) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err is the recognizer error that moved the capture to StateFailed.
func (c *Capture) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Capture) handleResult(gen uint64, text string) {
	c.mu.Lock()
	if gen != c.generation || c.state != StateListening {
		c.mu.Unlock()
		return
	}
	notify := c.setTranscriptLocked(text)
	c.mu.Unlock()
	notify()
}

func (c *Capture) handleTerminal(gen uint64, state State, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.state != StateListening {
		return
	}
	c.rec = nil
	c.state = state
	c.err = err
}

// setTranscriptLocked updates the transcript and returns the listener call
// to run once the lock is released.
func (c *Capture) setTranscriptLocked(text string) func() {
	c.transcript = text
	fn := c.onTranscript
	if fn == nil {
		return func() {}
	}
	return func() { fn(text) }
}
