package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pocket-tracker/tracker/internal/export"
	"github.com/pocket-tracker/tracker/internal/track"
)

var (
	exportOutput    string
	exportVehicleID string
	exportAll       bool
)

var exportCmd = &cobra.Command{
	Use:   "export-gtfsrt <track.geojson>",
	Short: "Convert a track file to a GTFS-Realtime VehiclePositions feed",
	Long: `export-gtfsrt reads a track file and writes a binary GTFS-Realtime
FeedMessage. By default only the latest position is exported; --all emits one
entity per recorded feature.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: track path with .pb extension)")
	exportCmd.Flags().StringVar(&exportVehicleID, "vehicle-id", "", "vehicle ID written to each entity (default tracker)")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export every feature instead of only the latest")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	trackPath := args[0]

	fc, err := track.Load(trackPath)
	if err != nil {
		return err
	}

	data, err := export.Marshal(fc, export.Options{VehicleID: exportVehicleID, All: exportAll})
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", trackPath, err)
	}

	output := exportOutput
	if output == "" {
		output = strings.TrimSuffix(trackPath, track.Extension) + ".pb"
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write feed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d features from %s to %s (%d bytes)\n",
		exportedCount(len(fc.Features), exportAll), trackPath, output, len(data))
	return nil
}

func exportedCount(features int, all bool) int {
	if all {
		return features
	}
	return 1
}
