package flags

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// Flag keys and their declared defaults. The set observed by the
// orchestration loop is fixed; unknown providers simply return defaults.
const (
	KeyPriorityRouting   = "priority-routing"
	KeyMaxResponseLength = "max-response-length"
	KeyEnhancedResponses = "enhanced-responses"

	DefaultPriorityRouting   = false
	DefaultMaxResponseLength = 1000
	DefaultEnhancedResponses = false
)

// Provider evaluates one flag at a time against the provider's own
// evaluation context. Implementations must tolerate missing configuration
// by returning the given default, never an error.
type Provider interface {
	Bool(key string, def bool) bool
	Int(key string, def int) int
	Name() string
	Close() error
}

// Snapshot is one consistent read of every flag, captured before any model
// call and immutable for the rest of the request.
type Snapshot struct {
	PriorityRouting   bool
	MaxResponseLength int
	EnhancedResponses bool
}

// Evaluate captures a snapshot from the provider.
func Evaluate(p Provider) Snapshot {
	return Snapshot{
		PriorityRouting:   p.Bool(KeyPriorityRouting, DefaultPriorityRouting),
		MaxResponseLength: p.Int(KeyMaxResponseLength, DefaultMaxResponseLength),
		EnhancedResponses: p.Bool(KeyEnhancedResponses, DefaultEnhancedResponses),
	}
}

// Defaults is the snapshot every flag resolves to with no provider.
func Defaults() Snapshot {
	return Evaluate(Static{})
}

// Attributes renders every flag key/value for span annotation.
func (s Snapshot) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool("feature_flags.enable_priority_routing", s.PriorityRouting),
		attribute.Int("feature_flags.max_response_length", s.MaxResponseLength),
		attribute.Bool("feature_flags.enable_enhanced_responses", s.EnhancedResponses),
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%s=%t %s=%d %s=%t",
		KeyPriorityRouting, s.PriorityRouting,
		KeyMaxResponseLength, s.MaxResponseLength,
		KeyEnhancedResponses, s.EnhancedResponses)
}

// Static serves flags from a fixed map, or plain defaults when the map is
// nil. It stands in whenever the remote provider is unconfigured or failed
// to initialize.
type Static struct {
	Values map[string]any
}

var _ Provider = Static{}

func (s Static) Bool(key string, def bool) bool {
	if v, ok := s.Values[key].(bool); ok {
		return v
	}
	return def
}

func (s Static) Int(key string, def int) int {
	if v, ok := s.Values[key].(int); ok {
		return v
	}
	return def
}

func (s Static) Name() string { return "defaults" }

func (s Static) Close() error { return nil }
