package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/omnitech/supportagent/pkg/usecase/agent"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		cfg      config
		customer string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "customer",
			Aliases:     []string{"c"},
			Usage:       "Customer email for context lookup",
			Sources:     cli.EnvVars("SUPPORTAGENT_CUSTOMER_ID"),
			Destination: &customer,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive support session",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			a, err := cfg.newAgent(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize input")
			}
			defer rl.Close()

			w := c.Root().Writer
			fmt.Fprintf(w, "Support session %s started. Type 'exit' to quit, 'help' for commands.\n", a.SessionID())

			for {
				line, err := rl.Readline()
				if err != nil { // io.EOF or interrupt
					break
				}
				input := strings.TrimSpace(line)
				if input == "" {
					continue
				}

				switch {
				case input == "exit" || input == "quit":
					fmt.Fprintln(w, "Goodbye.")
					return nil
				case input == "help":
					printChatHelp(w)
					continue
				case input == "clear":
					a.ClearHistory()
					fmt.Fprintln(w, "Conversation history cleared.")
					continue
				case input == "stats":
					printSessionStats(ctx, w, a)
					continue
				case input == "demo":
					runDemo(ctx, w, a, customer)
					continue
				case strings.HasPrefix(input, "email:"):
					customer = strings.TrimSpace(strings.TrimPrefix(input, "email:"))
					fmt.Fprintf(w, "Customer set to %s\n", customer)
					continue
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				sp.Suffix = " thinking..."
				sp.Start()
				result := a.Process(ctx, input, customer)
				sp.Stop()

				printResult(w, result)
			}

			fmt.Fprintln(w, "\nSession ended.")
			return nil
		},
	}
}

func printChatHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  exit          Quit the session")
	fmt.Fprintln(w, "  clear         Forget the conversation history")
	fmt.Fprintln(w, "  stats         Show session and host statistics")
	fmt.Fprintln(w, "  demo          Run a few sample queries")
	fmt.Fprintln(w, "  email:<addr>  Attach a customer email to following questions")
}

var demoQueries = []string{
	"How do I reset my password?",
	"I was charged twice for my subscription",
	"Tell me about OmniTech",
	"My device won't turn on after the update",
}

// runDemo answers the built-in sample queries in sequence
func runDemo(ctx context.Context, w io.Writer, a *agent.Agent, customer string) {
	for _, q := range demoQueries {
		fmt.Fprintf(w, "\n> %s\n", q)
		printResult(w, a.Process(ctx, q, customer))
	}
}

func printSessionStats(ctx context.Context, w io.Writer, a *agent.Agent) {
	fmt.Fprintf(w, "session: %s\n", a.SessionID())
	fmt.Fprintf(w, "history: %d exchanges\n", a.HistoryLen())
	fmt.Fprintf(w, "tool calls recorded: %d\n", len(a.ToolCalls()))
	fmt.Fprintf(w, "security events recorded: %d\n", len(a.SecurityEvents()))

	if stats, err := a.ServerStats(ctx); err == nil {
		if data, err := json.MarshalIndent(stats, "", "  "); err == nil {
			fmt.Fprintf(w, "host stats: %s\n", string(data))
		}
	}
}
