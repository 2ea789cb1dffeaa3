package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"vehicle-data-service/internal/infrastructure/oauth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Fetch an MOT API access token to verify the OAuth credentials",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !cfg.MOTOAuthEnabled() {
			return eris.New("MOT_CLIENT_ID, MOT_CLIENT_SECRET and MOT_TOKEN_URL must be set")
		}

		motAuth := oauth.NewMOTOAuth(cfg.MOTClientID, cfg.MOTClientSecret, cfg.MOTTokenURL, cfg.MOTScope, log)
		token, err := motAuth.FetchToken(cmd.Context())
		if err != nil {
			return err
		}

		out, err := motAuth.TokenToJSON(token)
		if err != nil {
			return eris.Wrap(err, "encode token")
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
