package cmd

import (
	"onlycut/internal/app"

	"github.com/spf13/cobra"
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe <resource>",
	Short: "Run the sidecar on a resource and log its output",
	Long: `Run the configured sidecar (ffprobe by default) as

  ffprobe -hide_banner <resolved resource path>

Standard output is logged at info level and standard error at error level
until the process terminates.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := createContext()
		defer cancel()

		commands, err := app.NewCommands(cfg, nil, logger)
		if err != nil {
			return err
		}
		if err := commands.Probe(ctx, args[0]); err != nil {
			return err
		}
		commands.WaitProbes()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
