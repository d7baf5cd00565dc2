package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/devadigapratham/filavault/importer"
	"github.com/devadigapratham/filavault/preset"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Show the presets a .bbsflmt bundle or JSON file would import",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imp := importer.New(preset.NewNormalizer(), zap.NewNop())

			var entries []importer.Entry
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				found, err := importer.Extract(filepath.Base(path), data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				entries = append(entries, found...)
			}

			res := imp.Import(entries)
			out := cmd.OutOrStdout()

			if len(res.Presets) == 0 {
				fmt.Fprintln(out, "No presets found.")
			} else {
				rows := make([][]string, 0, len(res.Presets))
				for _, p := range res.Presets {
					plate, _ := p.BedSettings.Get(p.DefaultPlate)
					rows = append(rows, []string{
						p.Brand,
						p.Type,
						fmt.Sprintf("%d-%d", p.TempMin, p.TempMax),
						formatFloat(p.FlowRatio),
						formatFloat(p.PressureAdvance),
						formatFloat(p.MaxVolumetricSpeed),
						fmt.Sprintf("%s %s/%s", p.DefaultPlate, formatFloat(plate.Initial), formatFloat(plate.Other)),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Brand", "Type", "Nozzle °C", "Flow", "PA", "Max Vol.", "Plate"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
			}

			if len(res.Skipped) > 0 {
				rows := make([][]string, 0, len(res.Skipped))
				for _, s := range res.Skipped {
					rows = append(rows, []string{s.Name, s.Reason})
				}
				fmt.Fprintln(out, renderTable([]string{"Skipped", "Reason"}, rows, nil))
			}
			return nil
		},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
