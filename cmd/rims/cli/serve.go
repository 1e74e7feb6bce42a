package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/regionops/rims/internal/directory/fallback"
	"github.com/regionops/rims/internal/directory/memory"
	"github.com/regionops/rims/internal/directory/sqlstore"
	"github.com/regionops/rims/internal/server"
	"github.com/regionops/rims/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the RIMS console server",
		Long:  "Start the HTTP server that exposes the admin console API: sessions, user management, audit log, and telemetry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging, insecure cookies)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(dev bool) error {
	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// Durable directory is optional: no DSN (or RIMS_DATA_MODE=memory) means
	// the console runs entirely from the seeded in-memory store, and any
	// startup failure degrades the same way instead of aborting.
	var durable *sqlstore.Store
	if databaseModeRequested() {
		store, err := sqlstore.New(viper.GetString("database.driver"), viper.GetString("database.dsn"), logger)
		if err != nil {
			logger.Warn("durable directory unusable at startup", "error", err)
		} else {
			durable = store
			defer durable.Close()
			logger.Info("durable directory initialized", "driver", viper.GetString("database.driver"))
		}
	}

	dir := newFallbackDirectory(durable, logger)

	cfg := server.DefaultConfig()
	cfg.Host = viper.GetString("server.host")
	cfg.Port = viper.GetInt("server.port")
	cfg.SecureCookies = !dev

	srv := server.New(cfg, dir, telemetry.New(), logger)
	return srv.ListenAndServe()
}

// databaseModeRequested reports whether durable-backend mode is configured.
// RIMS_DATA_MODE=memory forces memory-only operation even when a DSN is set.
func databaseModeRequested() bool {
	if viper.GetString("data.mode") == "memory" {
		return false
	}
	return viper.GetString("database.dsn") != ""
}

func newFallbackDirectory(durable *sqlstore.Store, logger *slog.Logger) *fallback.Directory {
	if durable == nil {
		return fallback.New(nil, memory.New(), logger)
	}
	return fallback.New(durable, memory.New(), logger)
}
