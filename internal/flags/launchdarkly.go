package flags

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"
	"go.uber.org/zap"

	"pkdindustries/deskshack/internal/config"
)

// LaunchDarkly evaluates flags against the LaunchDarkly server SDK. Once
// the client is initialized, variation calls evaluate locally and honor the
// SDK's own timeout contract; a failed read yields the default.
type LaunchDarkly struct {
	client  *ld.LDClient
	context ldcontext.Context
}

var _ Provider = (*LaunchDarkly)(nil)

// NewLaunchDarkly connects to LaunchDarkly. On any initialization failure
// the caller should degrade to Static defaults rather than treat it as an
// error; the system must run fully flag-free.
func NewLaunchDarkly(cfg *config.FlagConfig) (*LaunchDarkly, error) {
	client, err := ld.MakeClient(cfg.SDKKey, cfg.InitTimeout)
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		return nil, err
	}

	evalContext := ldcontext.NewBuilder(cfg.ContextKey).
		Anonymous(true).
		Build()

	return &LaunchDarkly{
		client:  client,
		context: evalContext,
	}, nil
}

func (l *LaunchDarkly) Bool(key string, def bool) bool {
	v, err := l.client.BoolVariation(key, l.context, def)
	if err != nil {
		zap.S().Debugw("Flag read failed, using default", "flag", key, "error", err)
		return def
	}
	return v
}

func (l *LaunchDarkly) Int(key string, def int) int {
	v, err := l.client.IntVariation(key, l.context, def)
	if err != nil {
		zap.S().Debugw("Flag read failed, using default", "flag", key, "error", err)
		return def
	}
	return v
}

func (l *LaunchDarkly) Name() string { return "launchdarkly" }

func (l *LaunchDarkly) Close() error {
	return l.client.Close()
}
