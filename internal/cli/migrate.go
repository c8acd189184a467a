package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, stores, err := openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer stores.Close()

			result := map[string]string{"backend": stores.Backend, "status": "migrated"}
			return emit(cmd.OutOrStdout(), rootOpts, result, func(w io.Writer) {
				fmt.Fprintf(w, "✓ %s schema is up to date\n", stores.Backend)
			})
		},
	}
}
