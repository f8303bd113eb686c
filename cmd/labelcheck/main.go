// Package main provides the labelcheck command line tool.
// labelcheck embeds a labeled text collection, clusters it and reports
// examples whose assigned label disagrees with the rest of their cluster.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"yashubustudio/labelcheck/labelcheck"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "labelcheck"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Find suspicious labels in a text collection",
		Long: `labelcheck embeds every example, clusters the embeddings and scores each
assigned label by how common it is inside the example's cluster. Examples
whose assigned label scores below --min-score are reported as suspects.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (JSON or YAML, default ./config.json)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(auditCmd(opts))
	cmd.AddCommand(clusterCmd(opts))
	cmd.AddCommand(configCmd(opts))
	cmd.AddCommand(columnsCmd(opts))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})
	return cmd
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(level)}))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newService loads the embedder selected by cfg and wraps it in a service.
func newService(cfg labelcheck.Config, logger *slog.Logger, metrics *labelcheck.Metrics) (*labelcheck.Service, error) {
	embedder, err := labelcheck.NewEmbedder(cfg.Embedder, metrics)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	svc, err := labelcheck.NewService(embedder, cfg,
		labelcheck.WithLogger(logger),
		labelcheck.WithMetrics(metrics),
	)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("init service: %w", err)
	}
	return svc, nil
}
