package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"pkdindustries/deskshack/internal/config"
	"pkdindustries/deskshack/internal/core"
	"pkdindustries/deskshack/internal/orchestrator"
)

const sessionKey = "console"

// RunOnce handles a single message and prints the full outcome to stdout,
// including the tool activity that produced it.
func RunOnce(ctx context.Context, cfg *config.Configuration, sys core.System, message string) error {
	orch := orchestrator.New(sys.GetBackend(), sys.GetToolRegistry(), sys.GetFlagProvider())

	cctx, cancel := core.NewChatContext(ctx, cfg, sys, sessionKey)
	defer cancel()

	result, err := orch.HandleRequest(cctx, message)
	if err != nil {
		return err
	}

	printResult(os.Stdout, result, sys.GetBackend().Name())
	return nil
}

func printResult(w io.Writer, result *orchestrator.Result, backend string) {
	if result.UsedTools() {
		fmt.Fprintln(w, "--- Tool Activity ---")
		for _, call := range result.ToolCalls {
			fmt.Fprintf(w, "  %s(%v)\n", call.Name, call.Arguments)
			if res, ok := result.ResultFor(call.ID); ok {
				fmt.Fprintf(w, "    -> %s\n", res.Content())
			}
		}
	}
	fmt.Fprintln(w, "--- Final Response ---")
	fmt.Fprintln(w, result.FinalResponse)
	fmt.Fprintf(w, "--- Debug: backend=%s %s ---\n", backend, result.Flags.String())
}

// RunREPL reads messages from stdin until exit or EOF. One session spans
// the whole run, so follow-up questions see earlier turns.
func RunREPL(ctx context.Context, cfg *config.Configuration, sys core.System) error {
	return runREPL(ctx, cfg, sys, os.Stdin)
}

func runREPL(ctx context.Context, cfg *config.Configuration, sys core.System, in io.Reader) error {
	orch := orchestrator.New(sys.GetBackend(), sys.GetToolRegistry(), sys.GetFlagProvider())

	// Lines arrive on a channel so an interrupt exits the loop even while
	// blocked waiting for input.
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	fmt.Println("Type a support question. Commands: exit, clear, help.")
	for {
		fmt.Print("> ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Println("\nbye")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Println()
				return <-scanErr
			}
			line = l
		}

		line = strings.TrimSpace(line)
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit", "bye":
			fmt.Println("bye")
			return nil
		case "clear":
			sys.GetSessionStore().Get(sessionKey).Clear()
			fmt.Println("conversation cleared")
			continue
		case "help":
			fmt.Println("ask a support question, or: exit, quit, bye, clear, help")
			continue
		}

		cctx, cancel := core.NewChatContext(ctx, cfg, sys, sessionKey)
		result, err := orch.HandleRequest(cctx, line)
		cancel()
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}

		fmt.Println(result.FinalResponse)
		if result.UsedTools() {
			fmt.Printf("(used tools: %s)\n", strings.Join(result.ToolNames(), ", "))
		}
	}
}
