package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var (
		cfg      config
		customer string
		showJSON bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "customer",
			Aliases:     []string{"c"},
			Usage:       "Customer email for context lookup",
			Sources:     cli.EnvVars("SUPPORTAGENT_CUSTOMER_ID"),
			Destination: &customer,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print the full result as JSON",
			Destination: &showJSON,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a single question",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("question is required")
			}

			ctx = cfg.setupLogger(ctx)

			a, err := cfg.newAgent(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			result := a.Process(ctx, query, customer)

			if showJSON {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return goerr.Wrap(err, "failed to encode result")
				}
				fmt.Fprintln(c.Root().Writer, string(data))
				return nil
			}

			printResult(c.Root().Writer, result)
			return nil
		},
	}
}
