package core

import (
	"context"

	"go.uber.org/zap"

	"pkdindustries/deskshack/internal/config"
	"pkdindustries/deskshack/internal/flags"
	"pkdindustries/deskshack/internal/llm"
	"pkdindustries/deskshack/internal/session"
	"pkdindustries/deskshack/internal/tools"
)

// System bundles the long-lived collaborators one deskshack process owns:
// the tool registry (fixed at startup), the session store, the model
// backend, and the flag provider.
type System interface {
	GetToolRegistry() *tools.Registry
	GetSessionStore() *session.Store
	GetBackend() llm.Backend
	GetFlagProvider() flags.Provider
	Close()
}

// ChatContextInterface provides all context needed for handling one user
// turn: cancellation, the session being spoken to, configuration, the
// system, and a request-scoped logger.
type ChatContextInterface interface {
	context.Context

	GetSession() *session.Session
	GetConfig() *config.Configuration
	GetSystem() System
	GetLogger() *zap.SugaredLogger
}

type SystemImpl struct {
	Tools    *tools.Registry
	Store    *session.Store
	Backend  llm.Backend
	Flags    flags.Provider
	Stores   *ToolStores
}

// ToolStores keeps the in-memory stores reachable for the debug surface
// and tests; the tools themselves hold the same references.
type ToolStores struct {
	Tickets *tools.TicketStore
	Orders  *tools.OrderStore
	Resets  *tools.ResetStore
}

func (s *SystemImpl) GetToolRegistry() *tools.Registry {
	return s.Tools
}

func (s *SystemImpl) GetSessionStore() *session.Store {
	return s.Store
}

func (s *SystemImpl) GetBackend() llm.Backend {
	return s.Backend
}

func (s *SystemImpl) GetFlagProvider() flags.Provider {
	return s.Flags
}

func (s *SystemImpl) Close() {
	if s.Flags != nil {
		if err := s.Flags.Close(); err != nil {
			zap.S().Warnw("Closing flag provider", "error", err)
		}
	}
}
