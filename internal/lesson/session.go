// Package lesson holds the conversation state behind an interactive lesson:
// the transcript, the input field and the in-flight reply.
package lesson

import (
	"context"
	"errors"
	"strings"
	"sync"

	"fluently-backend/internal/models"
	"fluently-backend/internal/prompts"
	"fluently-backend/internal/speech"
	"fluently-backend/internal/transport"
)

var (
	ErrEmptyInput = errors.New("message is empty")
	ErrBusy       = errors.New("a reply is still in progress")
)

// StarterPrompts are offered before the first message.
var StarterPrompts = []string{
	"Tell me about yourself",
	"Help me practice past tense",
	"Let's do a role-play",
}

// Streamer sends a conversation to the chat proxy.
type Streamer interface {
	StreamChat(ctx context.Context, req transport.Request) error
}

type State int

const (
	// StateEmpty: no messages yet.
	StateEmpty State = iota
	// StateIdle: messages exist and nothing is in flight.
	StateIdle
	// StateAwaitingAssistant: a request is in flight and no chunk has arrived.
	StateAwaitingAssistant
	// StateAssistantStreaming: the last message is the assistant reply being built.
	StateAssistantStreaming
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateIdle:
		return "idle"
	case StateAwaitingAssistant:
		return "awaiting-assistant"
	case StateAssistantStreaming:
		return "assistant-streaming"
	default:
		return "unknown"
	}
}

type Option func(*Session)

// WithMode selects the proxy mode; the default is tutor.
func WithMode(mode string) Option {
	return func(s *Session) { s.mode = mode }
}

// WithSpeech binds a speech capture: recognized text is copied into the
// input field, and the transcript is cleared whenever a message is sent.
func WithSpeech(c *speech.Capture) Option {
	return func(s *Session) { s.speech = c }
}

// WithNotifier receives every failed send exactly once.
func WithNotifier(fn func(error)) Option {
	return func(s *Session) { s.notify = fn }
}

// WithOnChange is called after every visible state change.
func WithOnChange(fn func()) Option {
	return func(s *Session) { s.onChange = fn }
}

// Session is one lesson conversation. It is safe for concurrent use; at most
// one reply is in flight at a time.
type Session struct {
	chat     Streamer
	mode     string
	speech   *speech.Capture
	notify   func(error)
	onChange func()

	mu       sync.Mutex
	messages []models.ChatMessage
	input    string
	state    State
	reply    strings.Builder
}

func NewSession(chat Streamer, opts ...Option) *Session {
	s := &Session{chat: chat, mode: prompts.ModeTutor}
	for _, opt := range opts {
		opt(s)
	}
	if s.speech != nil {
		s.speech.OnTranscript(func(text string) {
			if text != "" {
				s.SetInput(text)
			}
		})
	}
	return s
}

// Send appends text as a user message and streams the assistant reply into
// the transcript. It blocks until the reply is complete.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	s.mu.Lock()
	if s.inFlightLocked() {
		s.mu.Unlock()
		return ErrBusy
	}
	s.messages = append(s.messages, models.ChatMessage{Role: models.RoleUser, Content: text})
	history := make([]models.ChatMessage, len(s.messages))
	copy(history, s.messages)
	s.input = ""
	s.state = StateAwaitingAssistant
	s.reply.Reset()
	s.mu.Unlock()

	if s.speech != nil {
		s.speech.ResetTranscript()
	}
	s.changed()

	err := s.chat.StreamChat(ctx, transport.Request{
		Messages: history,
		Mode:     s.mode,
		OnDelta:  s.applyDelta,
		OnDone:   s.finish,
	})
	if err != nil {
		s.finish()
		if s.notify != nil {
			s.notify(err)
		}
		return err
	}

	// A streamer that returns without calling OnDone still ends the reply.
	s.finish()
	return nil
}

// SendInput sends the current input field.
func (s *Session) SendInput(ctx context.Context) error {
	return s.Send(ctx, s.Input())
}

// ToggleMic starts listening when idle and stops when listening.
func (s *Session) ToggleMic() error {
	if s.speech == nil || !s.speech.IsSupported() {
		return nil
	}
	if s.speech.IsListening() {
		s.speech.StopListening()
		return nil
	}
	return s.speech.StartListening()
}

func (s *Session) applyDelta(chunk string) {
	s.mu.Lock()
	switch s.state {
	case StateAwaitingAssistant:
		s.reply.WriteString(chunk)
		s.messages = append(s.messages, models.ChatMessage{Role: models.RoleAssistant, Content: s.reply.String()})
		s.state = StateAssistantStreaming
	case StateAssistantStreaming:
		s.reply.WriteString(chunk)
		s.messages[len(s.messages)-1].Content = s.reply.String()
	default:
		// Late delta after the reply finished.
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.changed()
}

func (s *Session) finish() {
	s.mu.Lock()
	if !s.inFlightLocked() {
		s.mu.Unlock()
		return
	}
	if len(s.messages) == 0 {
		s.state = StateEmpty
	} else {
		s.state = StateIdle
	}
	s.mu.Unlock()
	s.changed()
}

func (s *Session) inFlightLocked() bool {
	return s.state == StateAwaitingAssistant || s.state == StateAssistantStreaming
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loading reports whether a reply is in flight; sending is disabled meanwhile.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlightLocked()
}

func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
	s.changed()
}

func (s *Session) Mode() string {
	return s.mode
}
