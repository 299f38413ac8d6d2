package droidbridge

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var Fatal = FatalErrorHandler

func NewRootCmd() *cobra.Command {
	var logLevel string

	RootCmd := &cobra.Command{
		Use:   getCommandLineExecutable(),
		Short: "droidbridge",
		Long:  `Relays desktop input to an Android container as touch and key events`,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogging(logLevel)
		},
	}

	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOrDefault("LOG_LEVEL", "info"), "Log level (trace, debug, info, warn, error)")

	RootCmd.AddCommand(newServeCmd())
	RootCmd.AddCommand(newVersionCommand())
	RootCmd.AddCommand(newKeyMapCmd())

	return RootCmd
}

func Execute() {
	RootCmd := NewRootCmd()
	RootCmd.SetContext(context.Background())
	RootCmd.SetOutput(os.Stdout)

	if err := RootCmd.Execute(); err != nil {
		Fatal(RootCmd, err.Error(), 1)
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	// JSON when stderr is not a terminal, e.g. under a service manager
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
