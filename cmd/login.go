package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/authflow/internal/config"
	"github.com/teemow/authflow/internal/discovery"
	"github.com/teemow/authflow/internal/flow"
	"github.com/teemow/authflow/internal/instrumentation"
	"github.com/teemow/authflow/internal/logging"
	"github.com/teemow/authflow/internal/presenter"
	"github.com/teemow/authflow/internal/provider"
	"github.com/teemow/authflow/internal/server"
)

func newLoginCmd() *cobra.Command {
	var (
		clientID     string
		clientSecret string
		issuer       string
		providerName string
		scopes       []string
		responseType string
		noPKCE       bool
		plainPKCE    bool
		loginHint    string
		language     string
		selectAcct   bool
		listenAddr   string
		fetchUser    bool
		showTokens   bool
		timeout      time.Duration
		metricsAddr  string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Run an interactive authorization flow",
		Long: `Run a complete authorization flow: open the provider's consent page in
the system browser, capture the redirect on a loopback listener and, for
the authorization-code grant, exchange the code for tokens.

The provider is selected either with --provider (built-in preset) or with
--issuer (live OIDC discovery). Access tokens are printed only with
--show-tokens; by default only their length is reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			envCfg, err := config.Load()
			if err != nil {
				return err
			}
			if clientID == "" {
				clientID = envCfg.ClientID
			}
			if clientSecret == "" {
				clientSecret = envCfg.ClientSecret
			}
			if issuer == "" {
				issuer = envCfg.Issuer
			}
			if providerName == "" {
				providerName = envCfg.Provider
			}
			if len(scopes) == 0 {
				scopes = envCfg.Scopes
			}
			if listenAddr == "" {
				listenAddr = envCfg.ListenAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			cfg := flow.Config{
				ClientID:              clientID,
				ClientSecret:          clientSecret,
				Scopes:                scopes,
				ResponseType:          flow.ResponseType(responseType),
				UsePKCE:               !noPKCE,
				PlainPKCE:             plainPKCE,
				LoginHint:             loginHint,
				LanguageHint:          language,
				ForceAccountSelection: selectAcct,
			}

			disc, cfg, err := resolveProvider(ctx, providerName, issuer, cfg)
			if err != nil {
				return err
			}

			// Instrumentation is opt-in via OTEL_* variables; a disabled
			// provider records nothing.
			instrConfig := instrumentation.DefaultConfig()
			instrConfig.ServiceVersion = version
			instrProvider, err := instrumentation.NewProvider(ctx, instrConfig)
			if err != nil {
				return fmt.Errorf("failed to create instrumentation provider: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := instrProvider.Shutdown(shutdownCtx); err != nil {
					log.Printf("Error during instrumentation shutdown: %v", err)
				}
			}()

			var metricsServer *server.MetricsServer
			if metricsAddr != "" && instrProvider.Enabled() {
				metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
					Addr:                    metricsAddr,
					InstrumentationProvider: instrProvider,
				})
				if err != nil {
					return fmt.Errorf("failed to create metrics server: %w", err)
				}
				go func() {
					if err := metricsServer.Start(); err != nil {
						slog.Warn("metrics server stopped", logging.Err(err))
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					_ = metricsServer.Shutdown(shutdownCtx)
				}()
			}

			loopback := presenter.NewLoopbackPresenter(presenter.LoopbackConfig{
				ListenAddr: listenAddr,
			})
			defer func() { _ = loopback.Close() }()

			orch, err := flow.NewOrchestrator(flow.OrchestratorConfig{
				Presenter:       loopback,
				RedirectURIs:    loopback,
				Instrumentation: instrProvider,
			})
			if err != nil {
				return err
			}

			res, err := orch.Run(ctx, cfg, disc)
			if err != nil {
				return err
			}
			if !res.Result.Success() {
				fmt.Printf("Flow ended: %s\n", res.Result.Outcome)
				return nil
			}

			printFlowResult(res, showTokens)

			if fetchUser {
				token := accessTokenFrom(res)
				if token == "" {
					return fmt.Errorf("no access token available for user-info fetch")
				}
				user, err := flow.NewUserInfoFetcher(nil, nil, instrProvider.Metrics()).Fetch(ctx, token, disc)
				if err != nil {
					return err
				}
				printUser(user)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth client ID (or AUTHFLOW_CLIENT_ID)")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth client secret for confidential clients (or AUTHFLOW_CLIENT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", "", "OIDC issuer URL for live discovery (or AUTHFLOW_ISSUER)")
	cmd.Flags().StringVar(&providerName, "provider", "", "Built-in provider preset, e.g. 'google' (or AUTHFLOW_PROVIDER)")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Requested scopes (repeatable, or AUTHFLOW_SCOPES)")
	cmd.Flags().StringVar(&responseType, "response-type", "code", "Response type: code, token or id_token")
	cmd.Flags().BoolVar(&noPKCE, "no-pkce", false, "Disable PKCE for the authorization-code grant")
	cmd.Flags().BoolVar(&plainPKCE, "plain-pkce", false, "Use the plain PKCE challenge method instead of S256")
	cmd.Flags().StringVar(&loginHint, "login-hint", "", "Pre-fill the provider's account field")
	cmd.Flags().StringVar(&language, "language", "", "Preferred consent page language")
	cmd.Flags().BoolVar(&selectAcct, "select-account", false, "Force the provider's account chooser")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Loopback callback listener address (default 127.0.0.1:0)")
	cmd.Flags().BoolVar(&fetchUser, "userinfo", false, "Fetch the authenticated user's profile after the flow")
	cmd.Flags().BoolVar(&showTokens, "show-tokens", false, "Print raw token values instead of redacted placeholders")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall flow timeout (0 disables)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the flow runs")

	return cmd
}

// resolveProvider turns the preset or issuer selection into a discovery
// document, folding preset scope and parameter rules into the config.
func resolveProvider(ctx context.Context, providerName, issuer string, cfg flow.Config) (*flow.DiscoveryDocument, flow.Config, error) {
	switch {
	case providerName != "":
		preset, err := provider.Lookup(providerName)
		if err != nil {
			return nil, cfg, err
		}
		cfg = preset.Apply(cfg)
		disc := preset.Discovery
		return &disc, cfg, nil
	case issuer != "":
		disc, err := discovery.Fetch(ctx, issuer)
		if err != nil {
			return nil, cfg, err
		}
		return disc, cfg, nil
	default:
		return nil, cfg, fmt.Errorf("either --provider or --issuer is required")
	}
}

// printFlowResult reports the flow outcome without leaking token material
// unless explicitly asked to.
func printFlowResult(res *flow.FlowResult, showTokens bool) {
	fmt.Println("Authorization flow completed.")
	if res.Token != nil {
		if showTokens {
			fmt.Printf("  access_token:  %s\n", res.Token.AccessToken)
			if res.Token.RefreshToken != "" {
				fmt.Printf("  refresh_token: %s\n", res.Token.RefreshToken)
			}
			if res.Token.IDToken != "" {
				fmt.Printf("  id_token:      %s\n", res.Token.IDToken)
			}
		} else {
			fmt.Printf("  access_token:  %s\n", logging.SanitizeToken(res.Token.AccessToken))
			if res.Token.RefreshToken != "" {
				fmt.Printf("  refresh_token: %s\n", logging.SanitizeToken(res.Token.RefreshToken))
			}
		}
		fmt.Printf("  token_type:    %s\n", res.Token.TokenType)
		if !res.Token.Expiry().IsZero() {
			fmt.Printf("  expires:       %s\n", res.Token.Expiry().Format(time.RFC3339))
		}
		if res.Token.Scope != "" {
			fmt.Printf("  scope:         %s\n", res.Token.Scope)
		}
		return
	}

	// Implicit flow: tokens arrived in the redirect itself.
	if tok := res.Result.Params["access_token"]; tok != "" {
		if showTokens {
			fmt.Printf("  access_token:  %s\n", tok)
		} else {
			fmt.Printf("  access_token:  %s\n", logging.SanitizeToken(tok))
		}
	}
	if idt := res.Result.Params["id_token"]; idt != "" && showTokens {
		fmt.Printf("  id_token:      %s\n", idt)
	}
}

// accessTokenFrom prefers the exchanged token over implicit-flow parameters.
func accessTokenFrom(res *flow.FlowResult) string {
	if res.Token != nil {
		return res.Token.AccessToken
	}
	return res.Result.Params["access_token"]
}

func printUser(user *flow.User) {
	fmt.Println("Authenticated user:")
	if user.ID != "" {
		fmt.Printf("  id:      %s\n", user.ID)
	}
	if user.Name != "" {
		fmt.Printf("  name:    %s\n", user.Name)
	}
	if user.Email != "" {
		fmt.Printf("  email:   %s\n", user.Email)
	}
	if user.Picture != "" {
		fmt.Printf("  picture: %s\n", user.Picture)
	}
	extra := make([]string, 0, len(user.ProviderData))
	for k := range user.ProviderData {
		switch k {
		case "sub", "id", "user_id", "name", "display_name", "login", "email", "picture", "avatar_url":
			continue
		}
		extra = append(extra, k)
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		fmt.Printf("  extra claims: %s\n", strings.Join(extra, ", "))
	}
}
