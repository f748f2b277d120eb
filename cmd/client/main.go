package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/andy6609/localchat/internal/client"
	"github.com/andy6609/localchat/internal/log"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel    string
		dialTimeout time.Duration
	)

	root := &cobra.Command{
		Use:   "localchat-client [server-address] [port]",
		Short: "Connect to a LAN text chat server",
		Example: `  localchat-client 192.168.1.100
  localchat-client localhost
  localchat-client 10.0.0.5 5555`,
		Args: func(cmd *cobra.Command, args []string) error {
			return reportErr(cmd, cobra.MaximumNArgs(2)(cmd, args))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(logLevel, nil)
			stdin := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			host, port, err := target(args, stdin, out)
			if err != nil {
				fmt.Fprintf(out, "❌ %v\n", err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := client.Address(host, port)
			fmt.Fprintf(out, "🔗 Connecting to %s...\n", addr)
			c, err := client.Dial(ctx, addr, dialTimeout, logger)
			if err != nil {
				var connErr *client.ConnectError
				if errors.As(err, &connErr) {
					fmt.Fprintf(out, "❌ Connection failed: %v\n", connErr.Err)
					fmt.Fprintln(out, "💡 Make sure the server is running and IP address is correct")
				}
				return err
			}

			fmt.Fprintln(out, "✅ Connected to chat server!")
			fmt.Fprint(out, "💡 Type '/quit' or '/exit' to leave the chat\n\n")

			err = c.Run(ctx, stdin, out)
			if err != nil {
				fmt.Fprintf(out, "\n❌ %v", err)
			}
			fmt.Fprintln(out, "\n🔌 Disconnected from server")
			return err
		},
	}

	root.SetFlagErrorFunc(reportErr)
	root.Flags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.Flags().DurationVar(&dialTimeout, "dial-timeout", 10*time.Second, "connection timeout")

	return root
}

// reportErr prints err once; cobra's own error output is silenced.
func reportErr(cmd *cobra.Command, err error) error {
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "❌ %v\n", err)
	}
	return err
}

// target resolves the server host and port from args, prompting for the host
// when it was not given.
func target(args []string, in *bufio.Reader, out io.Writer) (string, int, error) {
	port := client.DefaultPort
	if len(args) == 2 {
		p, err := client.ParsePort(args[1])
		if err != nil {
			return "", 0, err
		}
		port = p
	}

	if len(args) >= 1 {
		return args[0], port, nil
	}

	fmt.Fprintln(out, "💡 Common local network IP ranges:")
	fmt.Fprintln(out, "   • 192.168.x.x (most home networks)")
	fmt.Fprintln(out, "   • 10.x.x.x (corporate networks)")
	fmt.Fprintln(out, "   • 172.16.x.x - 172.31.x.x (private networks)")
	fmt.Fprintln(out, "   • localhost or 127.0.0.1 (same computer)")
	fmt.Fprint(out, "\nEnter server IP address: ")

	line, err := in.ReadString('\n')
	host := strings.TrimSpace(line)
	if host == "" {
		if err != nil && !errors.Is(err, io.EOF) {
			return "", 0, fmt.Errorf("read server address: %w", err)
		}
		return "", 0, errors.New("no IP address provided")
	}
	return host, port, nil
}
