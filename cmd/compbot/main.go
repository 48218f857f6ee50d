package main

import (
	"fmt"
	"os"

	"github.com/calvinmclean/compbot/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	err := newRootCommand().Execute()
	if err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "compbot",
		Short:         "Competition robot control program",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to a TOML config file")

	cmd.AddCommand(
		newRunCommand(opts),
		newRoutinesCommand(opts),
		newAutonCommand(opts),
	)
	return cmd
}

// loadConfig reads the config file if one is given and applies COMPBOT_ environment overrides
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if o.configFile != "" {
		f, err := os.Open(o.configFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("error opening config: %w", err)
		}
		defer f.Close()

		cfg, err = config.Load(f)
		if err != nil {
			return config.Config{}, err
		}
	}

	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(cfg.Level())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}
