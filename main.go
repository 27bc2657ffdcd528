package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/blase-lsp/blase/config"
	"github.com/blase-lsp/blase/metrics"
	lsp "github.com/blase-lsp/blase/providers"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var rootCmd = &cobra.Command{
	Use:           "blase",
	Short:         "Language server for Blade templates",
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the server version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", lsp.Name, lsp.Version)
	},
}

func init() {
	config.Flags(rootCmd.Flags())
	rootCmd.AddCommand(versionCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())

	if err != nil {
		return err
	}

	var logFile *string

	if cfg.LogFile != "" {
		logFile = &cfg.LogFile
	}

	commonlog.Configure(cfg.Verbosity, logFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				commonlog.GetLogger("blase").Errorf("metrics: %s", err)
			}
		}()
	}

	return lsp.StartServer(*cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
