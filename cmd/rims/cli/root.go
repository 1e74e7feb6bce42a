package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rims",
		Short: "Regional Infrastructure Management System admin console",
		Long: `RIMS: the internal administration console for regional operations.

The console authenticates operators, manages user accounts under role-based
access control, records every privileged action to an append-only audit
trail, and serves a mock telemetry feed. Accounts live in a relational store
(sqlite, postgres, or mysql) with automatic fallback to a seeded in-memory
store when the database is unreachable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./rims.yaml)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("rims")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.rims")
	}

	viper.SetEnvPrefix("RIMS")
	viper.AutomaticEnv()
	viper.ReadInConfig() // config file is optional
}
