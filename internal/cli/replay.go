package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"token-band-alerts/internal/app"
)

var (
	replayCSVPath string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a CSV price series through the detectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayCSVPath == "" {
			return fmt.Errorf("--csv must be provided")
		}

		opts := app.ReplayOptions{
			CSVPath: replayCSVPath,
		}

		return getApp().Replay(cmd.Context(), opts)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayCSVPath, "csv", "", "CSV file of timestamp,price rows")
}
