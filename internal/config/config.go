package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

type Configuration struct {
	API       *APIConfig
	Model     *ModelConfig
	Bot       *BotConfig
	Session   *SessionConfig
	Flags     *FlagConfig
	Telemetry *TelemetryConfig
}

type APIConfig struct {
	OpenAIKey string
	OpenAIURL string
	Timeout   time.Duration
}

type ModelConfig struct {
	Model       string
	MaxTokens   int
	Temperature float32
	// FinalTemperature is used for the second round, after tool results
	// are folded back into the conversation.
	FinalTemperature float32
}

type BotConfig struct {
	Prompt         string
	EnhancedPrompt string
	Verbose        bool
}

type SessionConfig struct {
	MaxHistory int
	TTL        time.Duration
}

type FlagConfig struct {
	SDKKey      string
	ContextKey  string
	InitTimeout time.Duration
}

type TelemetryConfig struct {
	Enabled bool
}

// YamlSource implements cli.ValueSource for a map loaded from YAML
type YamlSource struct {
	data map[string]any
	key  string
}

func (y *YamlSource) Lookup() (string, bool) {
	if v, ok := y.data[y.key]; ok {
		if slice, ok := v.([]any); ok {
			var strs []string
			for _, item := range slice {
				strs = append(strs, fmt.Sprintf("%v", item))
			}
			return strings.Join(strs, ","), true
		}
		return fmt.Sprintf("%v", v), true
	}
	return "", false
}

func (y *YamlSource) String() string   { return "yaml" }
func (y *YamlSource) GoString() string { return "yaml" }

const defaultPrompt = `You are a helpful customer support assistant.
You have access to tools to help customers with their inquiries:
- Create support tickets for general issues
- Look up order status and shipping information
- Initiate password resets for login problems

Always be friendly, helpful, and provide clear next steps to customers.`

const defaultEnhancedPrompt = "\n\nProvide detailed, comprehensive responses with helpful context."

func GetFlags() []cli.Flag {
	// Pre-parse config path
	configPath := getConfigPath()
	var configData map[string]any
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err == nil {
			_ = yaml.Unmarshal(data, &configData)
		} else {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", configPath, err)
		}
	}

	// Helper to create sources: EnvVar > YAML > Default
	src := func(key string, env ...string) cli.ValueSourceChain {
		chain := cli.ValueSourceChain{}
		for _, e := range env {
			chain.Chain = append(chain.Chain, cli.EnvVar(e))
		}
		if configData != nil {
			chain.Chain = append(chain.Chain, &YamlSource{data: configData, key: key})
		}
		return chain
	}

	return []cli.Flag{
		// Config file
		&cli.StringFlag{Name: "config", Aliases: []string{"b"}, Usage: "use the named configuration file", Sources: cli.EnvVars("DESKSHACK_CONFIG")},

		// Run mode
		&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "single message to handle (non-interactive)", Sources: src("message", "DESKSHACK_MESSAGE")},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "enable verbose logging of sessions and configuration", Sources: src("verbose", "DESKSHACK_VERBOSE")},

		// API Configuration
		&cli.StringFlag{Name: "openaikey", Usage: "OpenAI API key", Sources: src("openaikey", "DESKSHACK_OPENAIKEY", "OPENAI_API_KEY")},
		&cli.StringFlag{Name: "openaiurl", Usage: "OpenAI API URL (for custom endpoints)", Sources: src("openaiurl", "DESKSHACK_OPENAIURL")},
		&cli.DurationFlag{Name: "apitimeout", Aliases: []string{"t"}, Value: time.Minute * 2, Usage: "timeout for each completion request", Sources: src("apitimeout", "DESKSHACK_APITIMEOUT")},
		&cli.StringFlag{Name: "model", Value: "gpt-4o-mini", Usage: "model to be used for responses", Sources: src("model", "DESKSHACK_MODEL")},
		&cli.IntFlag{Name: "maxtokens", Value: 1024, Usage: "maximum number of tokens to generate", Sources: src("maxtokens", "DESKSHACK_MAXTOKENS")},
		&cli.FloatFlag{Name: "temperature", Value: 0.1, Usage: "temperature for the tool-routing completion", Sources: src("temperature", "DESKSHACK_TEMPERATURE")},
		&cli.FloatFlag{Name: "finaltemperature", Value: 0.2, Usage: "temperature for the final completion after tool results", Sources: src("finaltemperature", "DESKSHACK_FINALTEMPERATURE")},

		// Feature flags
		&cli.StringFlag{Name: "launchdarklykey", Usage: "LaunchDarkly server-side SDK key", Sources: src("launchdarklykey", "DESKSHACK_LAUNCHDARKLYKEY", "LAUNCHDARKLY_SDK_KEY")},
		&cli.StringFlag{Name: "flagcontext", Value: "anonymous", Usage: "flag evaluation context key", Sources: src("flagcontext", "DESKSHACK_FLAGCONTEXT")},
		&cli.DurationFlag{Name: "flagtimeout", Value: 5 * time.Second, Usage: "timeout waiting for the flag provider to initialize", Sources: src("flagtimeout", "DESKSHACK_FLAGTIMEOUT")},

		// Telemetry
		&cli.BoolFlag{Name: "otel", Usage: "enable OpenTelemetry span export", Sources: src("otel", "DESKSHACK_OTEL")},

		// Session behavior
		&cli.DurationFlag{Name: "sessionduration", Aliases: []string{"S"}, Value: time.Minute * 30, Usage: "message context will be cleared after it is unused for this duration", Sources: src("sessionduration", "DESKSHACK_SESSIONDURATION")},
		&cli.IntFlag{Name: "sessionhistory", Aliases: []string{"H"}, Value: 20, Usage: "maximum number of non-system messages to keep per session", Sources: src("sessionhistory", "DESKSHACK_SESSIONHISTORY")},

		// Prompting
		&cli.StringFlag{Name: "prompt", Value: defaultPrompt, Usage: "initial system prompt", Sources: src("prompt", "DESKSHACK_PROMPT")},
		&cli.StringFlag{Name: "enhancedprompt", Value: defaultEnhancedPrompt, Usage: "supplementary system instruction appended when the enhanced-responses flag is on", Sources: src("enhancedprompt", "DESKSHACK_ENHANCEDPROMPT")},
	}
}

func getConfigPath() string {
	// Check env first
	if v := os.Getenv("DESKSHACK_CONFIG"); v != "" {
		return v
	}
	// Check args
	for i, arg := range os.Args {
		if arg == "--config" || arg == "-b" {
			if i+1 < len(os.Args) {
				return os.Args[i+1]
			}
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

func NewConfiguration(c *cli.Command) *Configuration {
	return &Configuration{
		API: &APIConfig{
			OpenAIKey: c.String("openaikey"),
			OpenAIURL: c.String("openaiurl"),
			Timeout:   c.Duration("apitimeout"),
		},
		Model: &ModelConfig{
			Model:            c.String("model"),
			MaxTokens:        c.Int("maxtokens"),
			Temperature:      float32(c.Float("temperature")),
			FinalTemperature: float32(c.Float("finaltemperature")),
		},
		Bot: &BotConfig{
			Prompt:         c.String("prompt"),
			EnhancedPrompt: c.String("enhancedprompt"),
			Verbose:        c.Bool("verbose"),
		},
		Session: &SessionConfig{
			MaxHistory: c.Int("sessionhistory"),
			TTL:        c.Duration("sessionduration"),
		},
		Flags: &FlagConfig{
			SDKKey:      c.String("launchdarklykey"),
			ContextKey:  c.String("flagcontext"),
			InitTimeout: c.Duration("flagtimeout"),
		},
		Telemetry: &TelemetryConfig{
			Enabled: c.Bool("otel"),
		},
	}
}

// Verify checks for required credentials before any request is processed.
func (c *Configuration) Verify() error {
	if c.API.OpenAIKey == "" {
		return fmt.Errorf("openaikey unset. use --openaikey flag, config file, or OPENAI_API_KEY env")
	}
	if c.Session.MaxHistory < 2 {
		return fmt.Errorf("sessionhistory must be at least 2")
	}
	return nil
}

// Redacted returns a key masked for display, keeping the last three characters.
func Redacted(key string) string {
	if len(key) <= 3 {
		return key
	}
	return strings.Repeat("*", len(key)-3) + key[len(key)-3:]
}
