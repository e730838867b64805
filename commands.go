package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"funnelscope/api/config"
	"funnelscope/api/logger"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the optimization report for the persisted funnel state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Close()

			a, err := newApp(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			a.engine.SweepAbandoned(cmd.Context())
			fmt.Fprint(cmd.OutOrStdout(), a.engine.GenerateOptimizationReport())
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the persisted funnel state as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Close()

			a, err := newApp(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			a.engine.IdentifyOptimizationOpportunities()
			data, err := a.engine.ExportData()
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			logger.Component("cli").WithField("path", out).Info("funnel data exported")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all persisted funnel progress, events and history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear funnel data without --yes")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Close()

			a, err := newApp(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.engine.ClearData(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func newStagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "Validate and print the configured funnel stages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Close()

			stages, err := config.LoadStages(cfg.StagesFile)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stages)
		},
	}
}
