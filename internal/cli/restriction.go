package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/urbanfIare/dmt-app/internal/app"
	"github.com/urbanfIare/dmt-app/internal/clock"
)

type restrictionVerdict struct {
	UserID     uuid.UUID  `json:"user_id"`
	SessionID  *uuid.UUID `json:"session_id,omitempty"`
	Restricted bool       `json:"restricted"`
	CheckedAt  time.Time  `json:"checked_at"`
}

// NewRestrictionCommand creates the restriction command.
func NewRestrictionCommand(rootOpts *RootOptions) *cobra.Command {
	var sessionFlag string

	cmd := &cobra.Command{
		Use:   "restriction <userID>",
		Short: "Print whether a user's phone is restricted now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			var sessionID *uuid.UUID
			if sessionFlag != "" {
				id, err := uuid.Parse(sessionFlag)
				if err != nil {
					return fmt.Errorf("invalid session id %q: %w", sessionFlag, err)
				}
				sessionID = &id
			}

			ctx := cmd.Context()
			_, stores, err := openStores(ctx)
			if err != nil {
				return err
			}
			defer stores.Close()

			engine := app.NewEngine(stores, nil, clock.System{})
			verdict := restrictionVerdict{UserID: userID, SessionID: sessionID, CheckedAt: engine.Clock.Now()}
			if sessionID != nil {
				verdict.Restricted, err = engine.Restriction.IsRestricted(ctx, userID, *sessionID)
			} else {
				verdict.Restricted, err = engine.Restriction.IsCurrentlyRestricted(ctx, userID)
			}
			if err != nil {
				return err
			}

			return emit(cmd.OutOrStdout(), rootOpts, verdict, func(w io.Writer) {
				state := "unrestricted"
				if verdict.Restricted {
					state = "restricted"
				}
				if sessionID != nil {
					fmt.Fprintf(w, "user %s in session %s: %s\n", userID, *sessionID, state)
					return
				}
				fmt.Fprintf(w, "user %s: %s\n", userID, state)
			})
		},
	}

	cmd.Flags().StringVar(&sessionFlag, "session", "", "evaluate a single session instead of all current ones")
	return cmd
}
