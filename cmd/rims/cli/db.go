package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/regionops/rims/internal/config"
	"github.com/regionops/rims/internal/directory"
	"github.com/regionops/rims/internal/directory/sqlstore"
	"github.com/regionops/rims/internal/model"
)

// openStore opens the configured durable store for direct CLI access.
func openStore() (*sqlstore.Store, error) {
	driver := viper.GetString("database.driver")
	dsn := viper.GetString("database.dsn")
	if dsn == "" {
		return nil, fmt.Errorf("no database configured: set database.dsn in rims.yaml or RIMS_DATABASE_DSN")
	}
	if driver == "" {
		driver = "sqlite"
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return sqlstore.New(driver, dsn, logger)
}

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the console database",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBSeedCmd())

	return cmd
}

func newDBInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database schema and canonical bootstrap accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			// Any read forces the migration and idempotent seed to run.
			users, err := store.ListUsers(context.Background())
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}
			fmt.Printf("Database ready (%d accounts)\n", len(users))
			return nil
		},
	}
}

func newDBSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Bootstrap accounts from a YAML file",
		Long:  "Load accounts from a YAML file into the database. Existing usernames are skipped, so re-running is safe.",
		Example: `  rims db seed --file seed.yaml

  # seed.yaml:
  # accounts:
  #   - username: carol
  #     name: Carol Ops
  #     password: changeme
  #     role: ADMIN`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBSeed(file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "seed.yaml", "Path to the YAML seed file")

	return cmd
}

func runDBSeed(file string) error {
	sf, err := config.LoadSeedFile(file)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	created, skipped := 0, 0
	for _, a := range sf.Accounts {
		_, err := store.CreateUser(ctx, directory.CreateUserInput{
			Username: a.Username,
			Name:     a.Name,
			Password: a.Password,
			Role:     model.Role(a.Role),
		}, cliActor)
		if errors.Is(err, directory.ErrDuplicateUsername) {
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("seed account %q: %w", a.Username, err)
		}
		created++
	}

	fmt.Printf("Seeded %d account(s), skipped %d existing\n", created, skipped)
	return nil
}
