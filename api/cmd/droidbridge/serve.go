package droidbridge

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/helixml/droidbridge/api/pkg/bridge"
	"github.com/helixml/droidbridge/api/pkg/config"
	"github.com/helixml/droidbridge/api/pkg/data"
)

type serveOptions struct {
	port    int
	profile string
	mode    string
	wsInput bool
	lock    bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the input bridge.",
		Long: `Start the input bridge.

The control server waits for the Android input daemon to connect and streams
touch, scroll and key records to it. Flags override the environment.`,
		Example: "  droidbridge serve --port 10721 --profile ~/.config/droidbridge/shooter.yaml --mode mapping",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadBridgeConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			opts.apply(cmd, &cfg)
			return serve(cmd, cfg)
		},
	}

	serveCmd.Flags().IntVar(&opts.port, "port", 0, "Control server port (env: CONTROL_PORT)")
	serveCmd.Flags().StringVar(&opts.profile, "profile", "", "Key mapping profile (env: KEYMAP_PROFILE)")
	serveCmd.Flags().StringVar(&opts.mode, "mode", "", "Input mode, default or mapping (env: INPUT_MODE)")
	serveCmd.Flags().BoolVar(&opts.wsInput, "ws-input", false, "Accept raw input over WebSocket (env: WSINPUT_ENABLED)")
	serveCmd.Flags().BoolVar(&opts.lock, "lock-pointer", false, "Lock the pointer on start (env: POINTER_LOCK_ON_START)")

	serveCmd.Long += "\n\nEnvironment Variables:\n" + generateEnvHelpText(config.BridgeConfig{})

	return serveCmd
}

func (o serveOptions) apply(cmd *cobra.Command, cfg *config.BridgeConfig) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = o.port
	}
	if flags.Changed("profile") {
		cfg.KeyMap.Profile = o.profile
	}
	if flags.Changed("mode") {
		cfg.KeyMap.Mode = o.mode
	}
	if flags.Changed("ws-input") {
		cfg.WSInput.Enabled = o.wsInput
	}
	if flags.Changed("lock-pointer") {
		cfg.PointerLock.LockOnStart = o.lock
	}
}

func serve(cmd *cobra.Command, cfg config.BridgeConfig) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("version", data.GetVersion()).
		Int("port", cfg.Server.Port).
		Str("profile", cfg.KeyMap.Profile).
		Bool("gamepad", cfg.Gamepad.Enabled).
		Bool("ws_input", cfg.WSInput.Enabled).
		Msg("starting droidbridge")

	app, err := bridge.New(cfg)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
