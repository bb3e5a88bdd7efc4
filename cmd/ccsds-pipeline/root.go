package main

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var version = "dev"

// envOr mirrors cmd/prism/main.go's environment-override helper.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ccsds-pipeline",
		Short:         "Encode/decode a CCSDS telemetry/telecommand data-link pipeline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogger()
		},
	}
	cmd.AddCommand(newEncodeCommand())
	cmd.AddCommand(newDecodeCommand())
	return cmd
}

// setupLogger installs the process-wide slog handler, colorized via
// tint when attached to a terminal and plain text otherwise, the same
// split cmd/prism/main.go and DMRHub's setupLogger draw.
func setupLogger() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
