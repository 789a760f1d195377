package main

import (
	"os"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/echocare/caregiver-api/internal/config"
	"github.com/echocare/caregiver-api/pkg/logger"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:           "caregiver-api",
		Short:         "EchoCare caregiver dashboard API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config.yaml")

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newImportPatientsCommand(),
	)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the global logger.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Output:     os.Stdout,
		Console:    cfg.Log.Console,
	})
	logger.SetGlobal(l)
	return cfg, l, nil
}
