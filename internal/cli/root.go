package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/urbanfIare/dmt-app/internal/app"
	"github.com/urbanfIare/dmt-app/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
}

var validFormats = []string{"text", "json"}

// NewRootCommand creates the studyctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "studyctl",
		Short: "Operate the study session engine",
		Long: `studyctl runs maintenance tasks against the study session store:
schema migrations, one-off sweeps and restriction lookups.

It reads the same environment as the server (DATABASE_URL, REDIS_URL, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewRestrictionCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// openStores loads configuration and connects to the configured store.
func openStores(ctx context.Context) (*config.Config, *app.Stores, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, stores, nil
}

// emit writes v as indented JSON, or text via the given printer.
func emit(w io.Writer, opts *RootOptions, v interface{}, text func(io.Writer)) error {
	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
