package testing

import (
	"context"

	"go.uber.org/zap"

	"pkdindustries/deskshack/internal/config"
	"pkdindustries/deskshack/internal/core"
	"pkdindustries/deskshack/internal/session"
)

// MockChatContext implements core.ChatContextInterface for testing
type MockChatContext struct {
	context.Context

	Session *session.Session
	Config  *config.Configuration
	System  core.System
}

var _ core.ChatContextInterface = (*MockChatContext)(nil)

// NewMockChatContext builds a turn context around a fresh single-session
// store seeded with the test config's system prompt.
func NewMockChatContext(cfg *config.Configuration, system core.System) *MockChatContext {
	store := session.NewStore(&session.Metadata{
		MaxHistory:   cfg.Session.MaxHistory,
		TTL:          cfg.Session.TTL,
		SystemPrompt: cfg.Bot.Prompt,
	})
	return &MockChatContext{
		Context: context.Background(),
		Session: store.Get("test"),
		Config:  cfg,
		System:  system,
	}
}

func (m *MockChatContext) GetSession() *session.Session     { return m.Session }
func (m *MockChatContext) GetConfig() *config.Configuration { return m.Config }
func (m *MockChatContext) GetSystem() core.System           { return m.System }
func (m *MockChatContext) GetLogger() *zap.SugaredLogger    { return zap.NewNop().Sugar() }
