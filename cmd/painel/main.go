package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/config"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/handlers"
)

var (
	cfgFile string
	v       *viper.Viper
	rootCmd = &cobra.Command{
		Use:   "painel",
		Short: "Billing dashboard for shipping routes",
		Long: `painel loads billing records from a spreadsheet feed and serves an
interactive dashboard with KPIs, route rankings, a monthly time series and
AI-generated commentary.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables take precedence")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, text)")
	rootCmd.PersistentFlags().String("source", "", "feed location: file path, http(s) URL, sheets://<id>[/range] or gs://<bucket>/<object>")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	var err error
	v, err = config.NewViper(cfgFile)
	if err != nil {
		return err
	}

	return bindFlags(cmd.Flags(), map[string]string{
		"LOG_LEVEL":   "log-level",
		"LOG_FORMAT":  "log-format",
		"FEED_SOURCE": "source",
	})
}

// bindFlags lets explicitly set flags override environment and file values.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		flag := flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if v == nil {
		return config.Load()
	}
	return config.FromViper(v)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			slog.Debug("painel version", "version", handlers.Version)
			fmt.Fprintln(cmd.OutOrStdout(), "painel", handlers.Version)
		},
	}
}
