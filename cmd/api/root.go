package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/swenlog/carrier-directory/internal/config"
	"github.com/swenlog/carrier-directory/internal/logging"
)

type app struct {
	cfg    *config.Config
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		envFile string
		debug   bool
	)

	cmd := &cobra.Command{
		Use:           "carrier-directory",
		Short:         "Carrier, port and shipping service directory API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if envFile != "" {
				files = []string{envFile}
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			if debug {
				cfg.Log.Level = "debug"
			}
			a.cfg = cfg
			a.logger = logging.New(cfg.Log.Level, cfg.Log.Format, nil)
			logrus.SetLevel(a.logger.GetLevel())
			logrus.SetFormatter(a.logger.Formatter)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load instead of .env and .env.local")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newServeCmd(a), newMigrateCmd(a), newSeedCmd(a))
	return cmd
}
