package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keydesk/keydesk/internal/server"
	"github.com/keydesk/keydesk/internal/service"
)

func newServeCmd(a *app) *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the keydesk HTTP server",
		Long:  "Start the HTTP server with the key registry, the API key dashboard and the admin JSON API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, a, dev)
		},
	}

	cmd.Flags().IntP("port", "p", 3000, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging)")

	a.v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	a.v.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(cmd *cobra.Command, a *app, dev bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog := newLogger(cfg.Log, dev, cmd.ErrOrStderr())
	defer closeLog.Close()

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("store opened", "driver", st.Driver())

	auth, err := newAuthService(cfg)
	if err != nil {
		st.Close()
		return err
	}

	if cfg.Auth.AdminPass == "" {
		logger.Warn("auth.admin_pass is not set; dashboard login is disabled")
	} else if !service.IsBcryptHash(cfg.Auth.AdminPass) {
		logger.Warn("auth.admin_pass is plaintext; store a hash from 'keydesk admin hash-password'")
	}
	if cfg.Auth.AdminSecret == "" {
		logger.Warn("auth.admin_secret is not set; /add-key rejects every request")
	}
	if cfg.Auth.SessionSecret == "" {
		logger.Info("auth.session_secret is not set; sessions end when the process restarts")
	}

	srv := server.New(server.ConfigFrom(cfg, a.version), server.Services{
		Store:    st,
		Registry: service.NewRegistryService(st, cfg.Auth.AdminSecret),
		APIKeys:  service.NewAPIKeyService(st),
		Auth:     auth,
	}, logger)

	out := cmd.OutOrStdout()
	base := cfg.PublicURL()
	fmt.Fprintf(out, "→ keydesk %s\n", versionString(a.version))
	fmt.Fprintf(out, "→ Listening on http://%s\n", cfg.Addr())
	fmt.Fprintf(out, "→ Dashboard:  %s/dashboard\n", base)
	fmt.Fprintf(out, "→ OpenAPI:    %s/openapi.json\n", base)
	fmt.Fprintf(out, "→ Health:     %s/healthz\n", base)
	fmt.Fprintln(out)

	return srv.ListenAndServe(ctx)
}
