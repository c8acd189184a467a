package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/urbanfIare/dmt-app/internal/config"
	"github.com/urbanfIare/dmt-app/internal/middleware"
)

// NewTokenCommand creates the token command, which mints an access token
// signed with JWT_SECRET for local testing against the API.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <userID>",
		Short: "Mint an API access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			token, err := middleware.NewJWTAuth(cfg.JWTSecret).GenerateToken(userID, ttl)
			if err != nil {
				return err
			}
			result := map[string]string{"user_id": userID.String(), "token": token}
			return emit(cmd.OutOrStdout(), rootOpts, result, func(w io.Writer) {
				fmt.Fprintln(w, token)
			})
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
