package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"vehicle-data-service/internal/app"
	"vehicle-data-service/internal/infrastructure/config"
	"vehicle-data-service/pkg/logger"
)

var (
	cfg *config.Config
	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:           "vehiclectl",
	Short:         "Operator tools for the vehicle data service",
	Long:          "Runs vehicle checks, listing reconciliation and data migrations against the live stores.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadConfig()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c
		log = logger.NewLoggerWithLevel(cfg.LogLevel)
		return nil
	},
}

// openApp connects to the stores; callers must Close the result
func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, cfg, log, prometheus.NewRegistry())
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
