package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dskow/replay-probe/internal/token"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint and print a signed upload token",
	Long: `Token prints a bearer token with the same claims the run command
uses, valid for one hour. Handy for curl-based debugging:

  curl -H "Authorization: Bearer $(replayprobe token)" ...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSecrets(false); err != nil {
			return err
		}
		signed, err := token.Issue(cfg.Auth.Secret, cfg.Auth.UserID, cfg.Auth.RoleID, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), signed)
		return nil
	},
}
