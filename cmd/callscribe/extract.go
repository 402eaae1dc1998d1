package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"callscribe/internal/domain"
	"callscribe/internal/service"
)

// errExtractionFailed makes the process exit non-zero after the result was printed.
var errExtractionFailed = errors.New("extraction failed")

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract one call and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(journalReadWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := a.svc.Extract(ctx, service.Request{URL: args[0], Source: domain.SourceCLI})
			if err != nil {
				return err
			}
			if err := printJSON(res); err != nil {
				return err
			}
			if !res.OK() {
				return errExtractionFailed
			}
			return nil
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// commandContext falls back to Background when cobra did not set one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
