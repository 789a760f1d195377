package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/echocare/caregiver-api/internal/repository/postgres"
)

func newMigrateCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Database.MigrationsDir
			}

			db, err := openDB(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := postgres.NewMigrator(postgres.NewBaseRepository(db), dir).Up(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("applied", applied).Str("dir", dir).Msg("Migrations complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to database.migrations_dir)")
	return cmd
}
