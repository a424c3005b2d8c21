package console

import (
	"go.uber.org/zap"

	"pkdindustries/deskshack/internal/config"
	"pkdindustries/deskshack/internal/core"
	"pkdindustries/deskshack/internal/flags"
	"pkdindustries/deskshack/internal/llm"
	"pkdindustries/deskshack/internal/session"
	"pkdindustries/deskshack/internal/tools"
)

// NewSystem wires the long-lived collaborators for one process: the three
// support tools with their in-memory stores, the session store, the OpenAI
// backend, and a flag provider.
func NewSystem(cfg *config.Configuration) core.System {
	s := core.SystemImpl{}

	s.Stores = &core.ToolStores{
		Tickets: tools.NewTicketStore(),
		Orders:  tools.NewOrderStore(),
		Resets:  tools.NewResetStore(),
	}

	s.Tools = tools.NewRegistry()
	for _, t := range []tools.Tool{
		&tools.CreateTicketTool{Store: s.Stores.Tickets},
		&tools.OrderStatusTool{Store: s.Stores.Orders},
		&tools.ResetPasswordTool{Store: s.Stores.Resets},
	} {
		if err := s.Tools.Register(t); err != nil {
			// Registration failures are programming errors, caught at startup
			zap.S().Fatalw("Registering tool", "error", err)
		}
	}
	zap.S().Infow("Loaded tools", "tools", s.Tools.Names())

	s.Store = session.NewStore(&session.Metadata{
		MaxHistory:   cfg.Session.MaxHistory,
		TTL:          cfg.Session.TTL,
		SystemPrompt: cfg.Bot.Prompt,
	})

	s.Backend = llm.NewOpenAIBackend(cfg.API)
	s.Flags = newFlagProvider(cfg)

	return &s
}

// newFlagProvider connects to LaunchDarkly when a key is configured and
// degrades to compiled-in defaults otherwise. Flag trouble never prevents
// the process from serving requests.
func newFlagProvider(cfg *config.Configuration) flags.Provider {
	if cfg.Flags.SDKKey == "" {
		zap.S().Info("No LaunchDarkly key configured, using flag defaults")
		return flags.Static{}
	}
	p, err := flags.NewLaunchDarkly(cfg.Flags)
	if err != nil {
		zap.S().Warnw("LaunchDarkly init failed, using flag defaults", "error", err)
		return flags.Static{}
	}
	zap.S().Infow("Feature flags connected", "provider", p.Name())
	return p
}
