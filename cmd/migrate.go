package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeremiapane/restaurant-reservation/config"
	"github.com/yeremiapane/restaurant-reservation/database"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := config.InitDB(cfg)
			if err != nil {
				return err
			}
			if err := database.AutoMigrate(db); err != nil {
				return err
			}
			utils.InfoLogger.Info("AutoMigrate completed")
			return nil
		},
	}
}
