package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lukaszgryglicki/adjointmc/internal/config"
	"github.com/lukaszgryglicki/adjointmc/internal/observability"
)

// Version is set at build time.
var Version = "dev"

// cli carries the state shared by the subcommands.
type cli struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	config.SetDefaults(c.v)

	root := &cobra.Command{
		Use:           "adjointmc",
		Short:         "Adjoint Monte Carlo simulation of particles reaching a detector.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.initializeConfig(); err != nil {
				return err
			}
			cfg, err := config.NewConfigFromViper(c.v)
			if err != nil {
				return err
			}
			c.cfg = cfg
			observability.InitializeLogger(cfg.Logger)
			c.log = observability.GetLogger()
			c.log.Debug("configuration loaded", zap.String("file", c.v.ConfigFileUsed()))
			return nil
		},
	}
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "config file (default is ./adjointmc.yaml)")
	root.PersistentFlags().String("db", "", "SQLite database for saved runs")
	_ = c.v.BindPFlag("output.db", root.PersistentFlags().Lookup("db"))
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = c.v.BindPFlag("logger.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newRunCmd(c), newConfigCmd(c), newRecordsCmd(c))
	return root
}

// initializeConfig reads the config file, if any, and ADJOINTMC_* variables.
func (c *cli) initializeConfig() error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	} else {
		c.v.AddConfigPath(".")
		c.v.SetConfigName("adjointmc")
		c.v.SetConfigType("yaml")
	}
	config.BindEnv(c.v)

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
