package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func statsCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "stats",
		Usage: "Show capability host statistics",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			a, err := cfg.newAgent(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			stats, err := a.ServerStats(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to fetch host stats")
			}

			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to encode stats")
			}
			fmt.Fprintln(c.Root().Writer, string(data))
			return nil
		},
	}
}
