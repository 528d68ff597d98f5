package cmd

import (
	"fmt"

	"onlycut/internal/app"
	"onlycut/internal/peer"
	"onlycut/internal/signalling"
	"onlycut/internal/ui"
	"onlycut/pkg/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type ReceiveFlags struct {
	DstPath string
	Code    string
}

var receiveFlags ReceiveFlags

// receiveCmd represents the receive command
var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Receive a resource from a peer (responds to offer)",
	Long: `Receive a resource from a peer via WebRTC. This will:

1. Ask for the session code printed by the sender (or take --code)
2. Fetch the SDP offer and publish an answer
3. Write chunks to the destination until the end-of-stream marker

Use --dst to specify a directory or file path to save the resource to.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateReceiveFlags(&receiveFlags)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Infof("Starting receiver, will save to: %s", receiveFlags.DstPath)
		if err := runReceiverApp(&receiveFlags); err != nil {
			return fmt.Errorf("receiver failed: %w", err)
		}
		return nil
	},
}

// validateReceiveFlags validates the receive command flags
func validateReceiveFlags(flags *ReceiveFlags) error {
	if flags.DstPath == "" {
		return fmt.Errorf("destination path is required")
	}
	if flags.Code != "" && !utils.IsValidCode(flags.Code) {
		return fmt.Errorf("session code must be %d letters or digits, e.g. ABCD-EFGH", utils.CodeLength)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(receiveCmd)

	receiveCmd.Flags().StringVarP(&receiveFlags.DstPath, "dst", "d", "", "Destination directory or file path (required)")
	receiveCmd.Flags().StringVarP(&receiveFlags.Code, "code", "c", "", "Session code from the sender")
	receiveCmd.MarkFlagRequired("dst")

	// Bind flags to viper for environment variable support
	viper.BindPFlag("receive.dst", receiveCmd.Flags().Lookup("dst"))
	viper.BindPFlag("receive.code", receiveCmd.Flags().Lookup("code"))
}

// runReceiverApp creates and runs the receiver application
func runReceiverApp(flags *ReceiveFlags) error {
	ctx, cancel := createContext()
	defer cancel()

	signalingService, err := signalling.NewDefaultSignalingService(ctx, cfg)
	if err != nil {
		return err
	}

	receiverApp := app.NewReceiverApp(cfg, peer.NewService(&cfg.WebRTC), signalingService, ui.NewProgressUI(nil), logger)
	return receiverApp.Run(ctx, &app.ReceiverOptions{
		DestPath: flags.DstPath,
		Code:     flags.Code,
	})
}
