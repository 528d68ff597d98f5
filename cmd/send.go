package cmd

import (
	"fmt"

	"onlycut/internal/app"
	"onlycut/internal/peer"
	"onlycut/internal/resource"
	"onlycut/internal/signalling"
	"onlycut/internal/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type SendFlags struct {
	Resource string
}

var sendFlags SendFlags

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a resource to a peer (creates offer)",
	Long: `Send a resource to a peer via WebRTC. This will:

1. Create a WebRTC peer connection and data channel
2. Publish the SDP offer and print a session code
3. Wait for the receiver to answer
4. Stream the resource in chunks once connected

Use --resource to specify the resource path, relative to the resource directory.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateSendFlags(&sendFlags)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Infof("Starting sender for resource: %s", sendFlags.Resource)
		if err := runSenderApp(&sendFlags); err != nil {
			return fmt.Errorf("sender failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&sendFlags.Resource, "resource", "r", "", "Resource path to send (required)")
	sendCmd.MarkFlagRequired("resource")

	// Bind flags to viper for environment variable support
	viper.BindPFlag("send.resource", sendCmd.Flags().Lookup("resource"))
}

// validateSendFlags validates the send command flags
func validateSendFlags(flags *SendFlags) error {
	if flags.Resource == "" {
		return fmt.Errorf("resource path is required")
	}
	return nil
}

// runSenderApp creates and runs the sender application
func runSenderApp(flags *SendFlags) error {
	ctx, cancel := createContext()
	defer cancel()

	signalingService, err := signalling.NewDefaultSignalingService(ctx, cfg)
	if err != nil {
		return err
	}
	resolver, err := resource.NewResolver(cfg.Resources.BaseDir)
	if err != nil {
		return err
	}

	senderApp := app.NewSenderApp(cfg, peer.NewService(&cfg.WebRTC), signalingService, resolver, ui.NewProgressUI(nil), logger)
	return senderApp.Run(ctx, &app.SenderOptions{Resource: flags.Resource})
}
