package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/andy6609/localchat/internal/chat"
	"github.com/andy6609/localchat/internal/config"
	"github.com/andy6609/localchat/internal/log"
	"github.com/andy6609/localchat/internal/monitor"
)

type options struct {
	configPath string
	noConsole  bool
	overrides  config.Config
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "localchat-server",
		Short:         "Run the LAN text chat server",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts.noConsole)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.overrides.Addr, "addr", "", "chat listen address (default 0.0.0.0:5555)")
	flags.StringVar(&opts.overrides.MetricsAddr, "metrics-addr", "", "metrics listen address, \"off\" disables (default :9090)")
	flags.StringVar(&opts.overrides.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.DurationVar(&opts.overrides.WriteTimeout, "write-timeout", 0, "per-client write timeout")
	flags.BoolVar(&opts.noConsole, "no-console", false, "do not read admin commands from stdin")

	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			out, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})

	return root
}

func loadConfig(opts *options) (config.Config, error) {
	cfg, _, err := config.Load(nil, opts.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.UpdateFrom(opts.overrides)
	if cfg.MetricsAddr == "off" {
		cfg.MetricsAddr = ""
	}
	return cfg, nil
}

func run(parent context.Context, cfg config.Config, noConsole bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New(cfg.LogLevel, nil)

	srv := chat.NewServer(cfg, logger)
	if err := srv.Listen(); err != nil {
		logger.Error().Err(err).Msg("failed to start server")
		return err
	}

	fmt.Printf("🚀 Chat Server started on %s\n", srv.Addr())
	fmt.Printf("📡 Local IP: %s\n", localIP())
	fmt.Println("💡 Tell others to connect using: localchat-client <your-ip>")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(); err != nil {
			logger.Error().Err(err).Msg("no longer accepting connections; existing sessions continue")
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-srv.Done():
		}
		srv.Stop()
		return nil
	})

	if cfg.MetricsAddr != "" {
		metrics := monitor.NewServer(cfg.MetricsAddr, srv.Registry())
		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				logger.Warn().Err(err).Msg("metrics server stopped")
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-gctx.Done():
			case <-srv.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return metrics.Shutdown(shutdownCtx)
		})
	}

	if !noConsole {
		console := chat.NewConsole(srv, os.Stdin, os.Stdout)
		g.Go(func() error {
			return console.Run(gctx)
		})
	}

	err := g.Wait()
	fmt.Println("\n🛑 Chat server stopped")
	return err
}

// localIP returns the address the host would use for outbound traffic.
// No packets are sent; a UDP "connect" only selects a route.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
