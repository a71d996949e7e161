package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yeremiapane/restaurant-reservation/config"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "restaurant-reservation",
		Short:         "Table holds, payment confirmation and check-in for restaurant reservations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newMigrateCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the settings every command shares.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	utils.InitLogger(cfg.LogFormat, cfg.LogLevel)
	utils.SetJWTSecret(cfg.JWTSecret)
	return cfg, nil
}
