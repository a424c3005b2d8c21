package session

import (
	"sync"
	"time"

	ai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Metadata holds the settings shared by every session in a store.
type Metadata struct {
	MaxHistory   int
	TTL          time.Duration
	SystemPrompt string
}

// Session is one conversation: an ordered message log owned by a single
// caller. The first message is always the system prompt once any message
// has been added.
type Session struct {
	mu         sync.RWMutex
	meta       *Metadata
	history    []ai.ChatCompletionMessage
	Name       string
	Last       time.Time
	TotalChars int
}

// History returns a copy of the message log. Callers may mutate the copy
// freely; the session's own log is only changed through AddMessage.
func (s *Session) History() []ai.ChatCompletionMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]ai.ChatCompletionMessage, len(s.history))
	copy(history, s.history)
	return history
}

// AddMessage appends a message, seeding the system prompt on first use and
// trimming the log to the retention limit.
func (s *Session) AddMessage(msg ai.ChatCompletionMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		s.append(ai.ChatCompletionMessage{Role: ai.ChatMessageRoleSystem, Content: s.meta.SystemPrompt})
	}
	s.append(msg)
	s.trim()
}

func (s *Session) append(msg ai.ChatCompletionMessage) {
	s.history = append(s.history, msg)
	s.TotalChars += len(msg.Content)
	s.Last = time.Now()
}

// trim keeps the system message plus the most recent MaxHistory messages,
// discarding the oldest non-system messages first. A tool reply whose
// assistant tool_calls preamble was cut is dropped with it; the completions
// API rejects a tool message without its preamble.
func (s *Session) trim() {
	if len(s.history) <= s.meta.MaxHistory+1 {
		return
	}
	keep := s.history[len(s.history)-s.meta.MaxHistory:]
	for len(keep) > 0 && keep[0].Role == ai.ChatMessageRoleTool {
		keep = keep[1:]
	}
	s.history = append(s.history[:1], keep...)
}

// Clear resets the conversation to just the system message.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) > 1 {
		s.history = s.history[:1]
	}
	s.Last = time.Now()
}

// Len reports the number of messages currently retained.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Store hands out sessions by key and reaps idle ones after the TTL.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	meta     *Metadata
}

func NewStore(meta *Metadata) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		meta:     meta,
	}
}

// Get returns the session for key, creating it if needed.
func (st *Store) Get(key string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[key]; ok {
		return s
	}

	s := &Session{
		Name: key,
		Last: time.Now(),
		meta: st.meta,
	}
	st.sessions[key] = s

	if st.meta.TTL > 0 {
		// session reaper, returns when the session is gone
		go func() {
			for {
				time.Sleep(st.meta.TTL)
				if st.reap(s) {
					return
				}
			}
		}()
	}

	return s
}

func (st *Store) reap(s *Session) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.sessions[s.Name] != s {
		return true
	}
	if time.Since(s.Last) > st.meta.TTL {
		zap.S().Debugw("Reaping idle session", "session", s.Name)
		delete(st.sessions, s.Name)
		return true
	}
	return false
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
