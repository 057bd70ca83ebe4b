// Package main provides the aero-race command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lowaak/aero-race/internal/config"
	"github.com/lowaak/aero-race/internal/logging"
)

var configPath string

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "aero-race",
		Short:         "Indoor running race driven by an air bike",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runRideCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/aero-race/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	addRideFlags(rootCmd)

	rootCmd.AddCommand(newRideCmd())
	rootCmd.AddCommand(newPedalSimCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v, err := config.Load(cmd.Flags(), configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return v, nil
}

// consoleLogger is used by the subcommands that do not take over the terminal
func consoleLogger(v *viper.Viper) (zerolog.Logger, error) {
	settings, err := config.Log(v)
	if err != nil {
		return zerolog.Nop(), err
	}
	return logging.Console(settings.Level), nil
}

// signalContext is cancelled on Ctrl-C and SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
