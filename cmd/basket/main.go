// Command basket mines association rules from retail transactions. It runs
// the HTTP API (serve) and offline commands that read CSV and split-JSON
// files and print split JSON.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/akins11/market-basket-analysis-web-app/internal/logging"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/config"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

// app carries the loaded configuration to the subcommands.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "basket",
		Short:         "Market basket analysis rule engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.Logging.Level = a.logLevel
			}
			logging.Init(logging.Config{
				Level:     cfg.Logging.Level,
				Format:    cfg.Logging.Format,
				Caller:    cfg.Logging.Caller,
				Timestamp: true,
				Output:    cmd.ErrOrStderr(),
			})
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (defaults to $"+config.ConfigPathEnvVar+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCmd(a),
		newMineCmd(a),
		newCollapseCmd(a),
		newFilterCmd(a),
		newDescribeCmd(a),
		newRecommendCmd(a),
		newExportCmd(a),
	)
	return root
}
