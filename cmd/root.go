package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/akmonengine/ragdoll/internal/config"
	"github.com/akmonengine/ragdoll/internal/observability"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app is the state shared by the commands of one invocation
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// NewRootCommand builds a fresh command tree, with its own configuration
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)
	config.BindEnv(a.v)

	rootCmd := &cobra.Command{
		Use:           "ragdoll",
		Short:         "Builds a humanoid ragdoll and simulates it with soft ball-joint limits.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initializeConfig(); err != nil {
				return err
			}

			cfg, err := config.NewConfigFromViper(a.v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "ragdoll"})
				return err
			}
			a.cfg = cfg

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Configuration loaded",
				zap.String("version", Version),
				zap.String("config_file", a.v.ConfigFileUsed()))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./ragdoll.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newBuildCommand(a), newSimulateCommand(a))

	return rootCmd
}

// Execute runs the command line and logs the error it may end with
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()

	return err
}

// initializeConfig reads the config file, if any
func (a *app) initializeConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("ragdoll")
		a.v.SetConfigType("yaml")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
