package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deepgram/schwab-mcp/internal/auth"
	"github.com/deepgram/schwab-mcp/internal/config"
	mcphandler "github.com/deepgram/schwab-mcp/internal/handlers/mcp"
	"github.com/deepgram/schwab-mcp/internal/services"
	"github.com/deepgram/schwab-mcp/internal/services/authcode"
	"github.com/deepgram/schwab-mcp/internal/services/tools"
	"github.com/deepgram/schwab-mcp/pkg/httpext"
	"github.com/deepgram/schwab-mcp/pkg/logger"
	"github.com/deepgram/schwab-mcp/pkg/metrics"
	"github.com/deepgram/schwab-mcp/pkg/telemetry"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
)

const serviceName = "schwab-mcp"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	envFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Read-only Schwab brokerage tools over the Model Context Protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Optional dotenv file with SCHWAB_* settings")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newAuthCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))
	cmd.AddCommand(newToolsCommand())
	return cmd
}

// bootstrap loads settings, configures logging and wires the services.
func bootstrap(opts *rootOptions) (*config.Settings, *services.Services, error) {
	settings, err := config.Load(opts.envFile)
	if err != nil {
		return nil, nil, err
	}
	logger.Configure(settings.LogLevel, settings.LogFormat, os.Stderr)

	svc, err := services.InitializeServices(settings)
	if err != nil {
		return nil, nil, err
	}
	return settings, svc, nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		transport string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if transport != "stdio" && transport != "http" {
				return fmt.Errorf("unsupported transport %q (want stdio or http)", transport)
			}

			settings, svc, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			shutdown, middleware, err := telemetry.Init(ctx, serviceName, settings.OTLPEndpoint)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					logger.Warn(logger.APP, "Telemetry shutdown failed: %v", err)
				}
			}()

			handler := mcphandler.NewToolHandler(svc.GetToolService(), svc.GetToolExecutor())
			srv, err := mcphandler.NewServer(handler)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			if status := svc.GetTokenManager().Status(); status.State == auth.StateUnloaded {
				logger.Warn(logger.APP, "No token at %s - run '%s auth login' first", status.TokenPath, serviceName)
			}

			if transport == "stdio" {
				logger.Info(logger.APP, "Serving MCP over stdio")
				return mcphandler.ServeStdio(ctx, srv)
			}

			router := setupRouter(svc, mcphandler.HTTPHandler(ctx, srv, addr))
			return serveHTTP(ctx, addr, middleware(router))
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport: stdio or http")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address for the http transport")
	return cmd
}

func setupRouter(svc *services.Services, mcp http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := svc.GetTokenManager().Status()
		httpext.JsonResponse(w, http.StatusOK, map[string]string{
			"status": "ok",
			"token":  string(status.State),
		})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(mcp)
	return r
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(logger.APP, "Server starting on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info(logger.APP, "Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func newAuthCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Obtain the initial token with the authorization code flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "url",
		Short: "Print the authorization URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			fmt.Fprintln(cmd.OutOrStdout(), svc.GetAuthCodeService().AuthURL(""))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "exchange <redirect-url>",
		Short: "Exchange the code in a pasted redirect URL for a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _, err := authcode.ParseRedirect(args[0])
			if err != nil {
				return err
			}

			_, svc, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			token, err := svc.GetAuthCodeService().Exchange(cmd.Context(), code)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s (expires %s)\n",
				svc.GetTokenManager().Store().Path(), token.Expiry().Format(time.RFC3339))
			return nil
		},
	})

	cmd.AddCommand(newAuthLoginCommand(opts))
	return cmd
}

func newAuthLoginCommand(opts *rootOptions) *cobra.Command {
	var (
		certFile string
		keyFile  string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize in a browser and capture the redirect on the callback URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			codes := svc.GetAuthCodeService()
			state := uuid.NewString()
			fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize:\n\n  %s\n\n", codes.AuthURL(state))

			code, err := codes.WaitForCode(ctx, state, certFile, keyFile)
			if err != nil {
				return err
			}
			token, err := codes.Exchange(ctx, code)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s (expires %s)\n",
				svc.GetTokenManager().Store().Path(), token.Expiry().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&certFile, "tls-cert", "", "Certificate for an https callback URL")
	cmd.Flags().StringVar(&keyFile, "tls-key", "", "Private key for an https callback URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the redirect")
	return cmd
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect or refresh the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether a usable token is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			status := svc.GetTokenManager().Status()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "path:    %s\n", status.TokenPath)
			fmt.Fprintf(out, "state:   %s\n", status.State)
			if !status.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "expires: %s\n", status.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Refresh the access token now",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			token, err := svc.GetTokenManager().Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token refreshed (expires %s)\n", token.Expiry().Format(time.RFC3339))
			return nil
		},
	})

	return cmd
}

func newToolsCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			service := tools.NewService()

			var v interface{}
			switch format {
			case "mcp":
				v, _ = mcphandler.NewToolHandler(service, nil).ListTools(cmd.Context(), nil)
			case "openai":
				v = service.GetTools()
			default:
				return fmt.Errorf("unsupported format %q (want mcp or openai)", format)
			}

			data, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "mcp", "Output format: mcp or openai")
	return cmd
}
