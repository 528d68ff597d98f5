package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"onlycut/internal/config"
	"onlycut/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg     *config.Config
	cfgFile string
	logger  *logging.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "onlycut",
	Short: "onlycut - media backend for streaming resources and probing them with ffprobe",
	Long: `onlycut streams media resources in fixed-size chunks and runs ffprobe on
them, reporting everything the sidecar prints as it happens.

Usage:
  Serve the HTTP/websocket API:  onlycut serve --addr 127.0.0.1:8080
  Probe a resource:              onlycut probe video/test.mp4
  Send a resource to a peer:     onlycut send --resource video/test.mp4
  Receive it on another machine: onlycut receive --dst ./downloads

Resource paths are relative to the resource directory (--resources).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initConfig()

		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded

		logger, err = logging.NewFromConfig(cfg.Log.File, cfg.Log.Debug)
		if err != nil {
			return err
		}
		logging.SetDefault(logger)
		log.SetOutput(logger.Writer())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	},
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.onlycut.yaml)")
	rootCmd.PersistentFlags().String("resources", "resources", "directory resource paths are resolved against")
	rootCmd.PersistentFlags().String("log-file", "", "append logs to this file instead of stderr")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	viper.BindPFlag("resources.base_dir", rootCmd.PersistentFlags().Lookup("resources"))
	viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("log.debug", rootCmd.PersistentFlags().Lookup("debug"))

	// Set up viper environment variable support
	viper.SetEnvPrefix("ONLYCUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	config.RegisterDefaults(viper.GetViper())
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			log.Printf("Warning: Could not find home directory: %v", err)
			return
		}

		// Search config in home directory with name ".onlycut" (without extension)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".onlycut")
	}

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		log.Printf("Using config file: %s", viper.ConfigFileUsed())
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// createContext creates a context that cancels on interrupt signals
func createContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nReceived interrupt signal, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
