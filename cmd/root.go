package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the authflow application
var rootCmd = &cobra.Command{
	Use:   "authflow",
	Short: "Runs browser-based OAuth 2.0 / OIDC authorization flows",
	Long: `authflow drives interactive OAuth 2.0 and OpenID Connect authorization
flows from the command line: it opens the provider's consent page in your
browser, captures the redirect on a loopback listener, exchanges the
authorization code for tokens and can fetch the authenticated user's
profile.

Configuration comes from flags, AUTHFLOW_* environment variables, or a
.env file in the working directory.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "authflow version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newUserinfoCmd())
	rootCmd.AddCommand(newVersionCmd())
}
