// Package convo keeps the bounded conversation history and drives one
// inference call per recognized utterance.
package convo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aliftffd/speech-recognition-withOLLAMA/log"
)

// historyLimit bounds the message history. The system message at
// position 0 is pinned; eviction is FIFO starting at position 1.
const historyLimit = 10

const defaultChatTimeout = 120 * time.Second

// ErrBusy means a Respond call is already in flight. Concurrent
// responses are rejected rather than queued so history mutations never
// interleave.
var ErrBusy = errors.New("response already in flight")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is immutable once created.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Options are passed through to the inference backend on every call.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Client is the narrow blocking contract to the inference backend.
type Client interface {
	Chat(ctx context.Context, messages []Message, opts Options) (Message, error)
}

// Manager is the single writer of conversation history. It is safe for
// concurrent use; only one Respond call may be outstanding at a time.
type Manager struct {
	client  Client
	opts    Options
	system  string
	timeout time.Duration

	mu       sync.Mutex
	history  []Message
	inFlight bool
}

// NewManager seeds history with the system prompt (inserted exactly
// once; Reset re-seeds it, Respond never duplicates it).
func NewManager(client Client, opts Options, systemPrompt string) *Manager {
	m := &Manager{
		client:  client,
		opts:    opts,
		system:  systemPrompt,
		timeout: defaultChatTimeout,
	}
	if systemPrompt != "" {
		m.history = []Message{{Role: RoleSystem, Content: systemPrompt}}
	}
	return m
}

// SetTimeout overrides the per-call inference deadline.
func (m *Manager) SetTimeout(d time.Duration) {
	m.mu.Lock()
	m.timeout = d
	m.mu.Unlock()
}

// Append adds a message and enforces the history bound.
func (m *Manager) Append(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.append(msg)
}

func (m *Manager) append(msg Message) {
	m.history = append(m.history, msg)
	for len(m.history) > historyLimit {
		if m.history[0].Role == RoleSystem {
			m.history = append(m.history[:1], m.history[2:]...)
		} else {
			m.history = m.history[1:]
		}
	}
}

// History returns a copy; callers never see live state.
func (m *Manager) History() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.history))
	copy(out, m.history)
	return out
}

// Len reports the current history length.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// Reset clears history back to just the system message.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.system != "" {
		m.history = []Message{{Role: RoleSystem, Content: m.system}}
	} else {
		m.history = nil
	}
}

// Respond appends a user message built from userText, issues one chat
// call with the full current history, and appends the assistant reply
// on success. On failure the user message stays (history reflects what
// was said) and no synthetic assistant turn is added.
func (m *Manager) Respond(ctx context.Context, userText string) (Message, error) {
	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return Message{}, ErrBusy
	}
	m.inFlight = true
	m.append(Message{Role: RoleUser, Content: userText})
	snapshot := make([]Message, len(m.history))
	copy(snapshot, m.history)
	opts := m.opts
	timeout := m.timeout
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := m.client.Chat(ctx, snapshot, opts)
	if err != nil {
		return Message{}, fmt.Errorf("chat: %w", err)
	}
	log.Inference(opts.Model, len(snapshot), time.Since(start).Seconds()*1000)

	m.mu.Lock()
	m.append(reply)
	m.mu.Unlock()
	return reply, nil
}
