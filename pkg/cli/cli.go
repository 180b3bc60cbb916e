package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/omnitech/supportagent/pkg/model"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "supportagent",
		Usage: "Customer support agent over a capability host",
		Commands: []*cli.Command{
			askCommand(),
			chatCommand(),
			statsCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

// printResult renders one answer for the terminal
func printResult(w io.Writer, result *model.AgentResult) {
	fmt.Fprintln(w, result.Response)

	fmt.Fprintf(w, "\n[%s] confidence=%.2f", result.Workflow, result.Confidence)
	if result.Classification != nil {
		fmt.Fprintf(w, " category=%s", result.Classification.Category)
	}
	if result.ActionNeeded != model.ActionNone {
		fmt.Fprintf(w, " action=%s", result.ActionNeeded)
	}
	fmt.Fprintln(w)

	if len(result.Sources) > 0 {
		fmt.Fprintf(w, "sources: %s\n", strings.Join(result.Sources, ", "))
	}
}
