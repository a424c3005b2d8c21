package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"go.uber.org/zap"

	"pkdindustries/deskshack/internal/config"
	"pkdindustries/deskshack/internal/session"
)

// ChatContext carries one user turn through the orchestration loop.
type ChatContext struct {
	context.Context
	Sys       System
	Session   *session.Session
	Config    *config.Configuration
	logger    *zap.SugaredLogger
	requestID string
}

var _ ChatContextInterface = (*ChatContext)(nil)

// NewChatContext scopes a turn to the API timeout and a fresh request ID
// for log correlation. Cancellation aborts at the next backend call
// boundary; conversation state is never mutated mid-append.
func NewChatContext(parent context.Context, cfg *config.Configuration, system System, sessionKey string) (ChatContextInterface, context.CancelFunc) {
	timedctx, cancel := context.WithTimeout(parent, cfg.API.Timeout)

	requestID := generateRequestID()
	ctx := ChatContext{
		Context:   timedctx,
		Config:    cfg,
		Sys:       system,
		Session:   system.GetSessionStore().Get(sessionKey),
		requestID: requestID,
		logger: GetLogger().With(
			"request_id", requestID,
			"session", sessionKey,
		),
	}
	return ctx, cancel
}

func (c ChatContext) GetSystem() System {
	return c.Sys
}

func (c ChatContext) GetConfig() *config.Configuration {
	return c.Config
}

func (c ChatContext) GetSession() *session.Session {
	return c.Session
}

func (c ChatContext) GetLogger() *zap.SugaredLogger {
	return c.logger
}

// generateRequestID creates a unique 8-character request ID for correlation
func generateRequestID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}
