package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"renohub/internal/app"
	"renohub/internal/cli"
	"renohub/internal/config"
	"renohub/internal/log"
)

func main() {
	var root = &cobra.Command{
		Use:           "renohubctl",
		Short:         "Inspect and mirror the renovation dashboard from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(snapshotCMD(), promptCMD(), summarizeCMD(), mirrorCMD())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads .env and the environment and logs to stderr so stdout stays
// machine readable.
func setup() (*config.Config, *log.Logger, error) {
	cli.LoadEnvFile()
	cfg := config.Load()

	lcfg := log.DefaultConfig()
	lcfg.Level = log.ParseLevel(cfg.LogLevel)
	lcfg.Output = os.Stderr
	logger := log.New(lcfg)
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func openApp(ctx context.Context) (*app.App, *log.Logger, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
