package main

import (
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/lowaak/aero-race/internal/config"
	"github.com/lowaak/aero-race/internal/pedalsim"
)

func newPedalSimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pedalsim",
		Short: "Serve simulated pedal strokes over websocket",
		RunE:  runPedalSimCmd,
	}
	cmd.Flags().String("addr", "", "listen address (default :8001)")
	cmd.Flags().Float64("rpm", 0, "strokes per minute")
	return cmd
}

func runPedalSimCmd(cmd *cobra.Command, _ []string) error {
	v, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := consoleLogger(v)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	server := pedalsim.NewServer(config.PedalSim(v), clockwork.NewRealClock(), logger)
	return server.Run(ctx)
}
