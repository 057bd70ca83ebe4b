package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lowaak/aero-race/internal/config"
	"github.com/lowaak/aero-race/internal/history"
)

const defaultHistoryLast = 20

var historyLast int

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent reps",
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLast, "last", defaultHistoryLast, "number of reps to show (0 for all)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	v, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := consoleLogger(v)
	if err != nil {
		return err
	}

	settings := config.HistorySettings(v)
	lister, closeLister, err := history.OpenLister(settings)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer func() {
		if err := closeLister(); err != nil {
			logger.Warn().Err(err).Msg("closing history")
		}
	}()

	records, err := lister.List(cmd.Context(), historyLast)
	if err != nil {
		return fmt.Errorf("failed to list reps: %w", err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), history.Report(records))
	return err
}
