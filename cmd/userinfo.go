package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/authflow/internal/config"
	"github.com/teemow/authflow/internal/flow"
)

func newUserinfoCmd() *cobra.Command {
	var (
		issuer       string
		providerName string
		accessToken  string
	)

	cmd := &cobra.Command{
		Use:   "userinfo",
		Short: "Fetch the user profile for an existing access token",
		Long: `Fetch the authenticated user's profile from the provider's user-info
endpoint using an access token obtained earlier (e.g. from 'authflow login
--show-tokens'). The token is read from --token or, if unset, from the
AUTHFLOW_ACCESS_TOKEN environment variable so it stays out of shell history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			envCfg, err := config.Load()
			if err != nil {
				return err
			}
			if issuer == "" {
				issuer = envCfg.Issuer
			}
			if providerName == "" {
				providerName = envCfg.Provider
			}
			if accessToken == "" {
				accessToken = os.Getenv("AUTHFLOW_ACCESS_TOKEN")
			}
			if accessToken == "" {
				return fmt.Errorf("an access token is required (--token or AUTHFLOW_ACCESS_TOKEN)")
			}

			disc, _, err := resolveProvider(cmd.Context(), providerName, issuer, flow.Config{})
			if err != nil {
				return err
			}
			// One-shot fetch in a short-lived process; there is no metrics
			// endpoint alive long enough to scrape, so no recorder is wired.
			user, err := flow.NewUserInfoFetcher(nil, nil, nil).Fetch(cmd.Context(), accessToken, disc)
			if err != nil {
				return err
			}
			printUser(user)
			return nil
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "OIDC issuer URL for live discovery (or AUTHFLOW_ISSUER)")
	cmd.Flags().StringVar(&providerName, "provider", "", "Built-in provider preset, e.g. 'google' (or AUTHFLOW_PROVIDER)")
	cmd.Flags().StringVar(&accessToken, "token", "", "Access token (prefer AUTHFLOW_ACCESS_TOKEN)")

	return cmd
}
