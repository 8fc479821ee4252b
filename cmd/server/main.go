package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/mjlescano/playcha/internal/infrastructure/config"
	"github.com/mjlescano/playcha/internal/infrastructure/server"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		host string
		port string
		dev  bool
	)

	rootCmd := &cobra.Command{
		Use:          "playcha",
		Short:        "Playcha - browser based challenge solving proxy",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if dev {
				cfg.Logging.Development = true
				cfg.Logging.Level = "debug"
			}
			applyTimeZone(cfg.TZ)
			return serve(cmd.Context(), cfg)
		},
	}

	rootCmd.Flags().StringVar(&host, "host", "", "Listen host (or set HOST)")
	rootCmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (or set PORT)")
	rootCmd.Flags().BoolVar(&dev, "dev", false, "Development mode: console logs at debug level")

	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// applyTimeZone sets the process zone used for log timestamps
func applyTimeZone(tz string) {
	if tz == "" {
		return
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		time.Local = loc
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	srv, err := server.NewServer(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-ctx.Done():
	case err := <-errChan:
		if err != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Close(shutdownCtx)
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Close(shutdownCtx)
}
