package cmd

import (
	"onlycut/internal/app"
	"onlycut/internal/server"
	"onlycut/internal/transport"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Events buffered per websocket subscriber before new ones are dropped
const eventBuffer = 256

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the resource and probe API over HTTP and websockets",
	Long: `Serve the HTTP/websocket API:

  GET  /ws/resource?path=<rel>  stream a resource as binary frames, empty frame ends it
  POST /api/probe               {"filePath": "<rel>"} runs the sidecar on a resource
  GET  /ws/events               lifecycle and sidecar events as JSON text frames
  GET  /api/health              liveness check`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := createContext()
		defer cancel()

		bus := transport.NewBus(eventBuffer)
		commands, err := app.NewCommands(cfg, bus, logger)
		if err != nil {
			return err
		}

		srv := server.New(ctx, commands, bus, logger,
			server.WithAllowedOrigins(cfg.Server.AllowedOrigins...))
		err = srv.ListenAndServe(cfg.Server.Addr)
		commands.WaitProbes()
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "address to listen on")
	serveCmd.Flags().StringSlice("allow-origin", nil, "browser origin allowed to call the API (repeatable)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("server.allowed_origins", serveCmd.Flags().Lookup("allow-origin"))
}
