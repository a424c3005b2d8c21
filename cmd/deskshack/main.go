package main

//  ____                 _      ____    _                      _
// |  _ \    ___   ___  | | __ / ___|  | |__     __ _    ___  | | __
// | | | |  / _ \ / __| | |/ / \___ \  | '_ \   / _` |  / __| | |/ /
// | |_| | |  __/ \__ \ |   <   ___) | | | | | | (_| | | (__  |   <
// |____/   \___| |___/ |_|\_\ |____/  |_| |_|  \__,_|  \___| |_|\_\
//  .  .  .  support  that  never  sleeps

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mazznoer/colorgrad"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"pkdindustries/deskshack/internal/config"
	"pkdindustries/deskshack/internal/console"
	"pkdindustries/deskshack/internal/core"
	"pkdindustries/deskshack/internal/telemetry"
)

const version = "0.3"

func main() {
	fmt.Printf("%s\n", getBanner())

	cmd := &cli.Command{
		Name:    "deskshack",
		Usage:   "support that never sleeps",
		Version: version,
		Flags:   config.GetFlags(),
		Action:  run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		// Print to stderr first in case logger isn't initialized
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		zap.S().Fatal(err)
	}
}

func getBanner() string {
	banner := `
 ____                 _      ____    _                      _
|  _ \    ___   ___  | | __ / ___|  | |__     __ _    ___  | | __
| | | |  / _ \ / __| | |/ / \___ \  | '_ \   / _' |  / __| | |/ /
| |_| | |  __/ \__ \ |   <   ___) | | | | | | (_| | | (__  |   <
|____/   \___| |___/ |_|\_\ |____/  |_| |_|  \__,_|  \___| |_|\_\
 .  .  .  support  that  never  sleeps  [v` + version + `]
`
	grad, _ := colorgrad.NewGradient().
		HtmlColors("#10b981ff", "#fdfdfdff").
		Build()

	lines := strings.Split(banner, "\n")

	// Find max line length for gradient spread
	maxLen := 0
	for _, line := range lines {
		if len(line) > maxLen {
			maxLen = len(line)
		}
	}

	colors := grad.Colors(uint(maxLen))
	var coloredBanner strings.Builder

	for _, line := range lines {
		for i, ch := range line {
			r, g, b, _ := colors[i].RGBA255()
			coloredBanner.WriteString(fmt.Sprintf("\x1b[38;2;%d;%d;%dm%c", r, g, b, ch))
		}
		coloredBanner.WriteString("\x1b[0m\n")
	}

	return coloredBanner.String()
}

func run(ctx context.Context, c *cli.Command) error {
	cfg := config.NewConfiguration(c)
	if err := cfg.Verify(); err != nil {
		return err
	}

	core.InitLogger(cfg.Bot.Verbose)
	defer zap.L().Sync()

	zap.S().Infow("Starting deskshack",
		"model", cfg.Model.Model,
		"openaikey", config.Redacted(cfg.API.OpenAIKey),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, "deskshack", version)
		if err != nil {
			zap.S().Warnw("Telemetry init failed, continuing without traces", "error", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					zap.S().Warnw("Telemetry shutdown", "error", err)
				}
			}()
		}
	}

	sys := console.NewSystem(cfg)
	defer sys.Close()

	if message := c.String("message"); message != "" {
		return console.RunOnce(ctx, cfg, sys, message)
	}
	return console.RunREPL(ctx, cfg, sys)
}
