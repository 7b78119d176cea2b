package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/logicloom/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the tutoring API: /api/chat, /api/chat_stream (SSE), /execute and
/api/check_syntax. Sessions are kept server-side when a conversation_id is sent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, debug := newLogger(cmd)
		port, _ := cmd.Flags().GetString("port")
		metricsPort, _ := cmd.Flags().GetString("metrics-port")
		stateless, _ := cmd.Flags().GetBool("stateless")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := cli.Build(ctx, cfg, logger, cli.BuildOptions{Debug: debug, Stateless: stateless})
		if err != nil {
			return err
		}

		ln, err := net.Listen("tcp", ":"+port)
		if err != nil {
			_ = app.Close(ctx)
			return fmt.Errorf("failed to listen on %s: %w", port, err)
		}
		var metricsLn net.Listener
		if metricsPort != "" {
			if metricsLn, err = net.Listen("tcp", ":"+metricsPort); err != nil {
				ln.Close()
				_ = app.Close(ctx)
				return fmt.Errorf("failed to listen on %s: %w", metricsPort, err)
			}
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Starting LogicLoom server on %s (prompts: %s)\n", ln.Addr(), cfg.PromptsDir)
		if err := cli.Serve(ctx, app, ln, metricsLn); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "LogicLoom server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8000", "Port to listen on")
	serveCmd.Flags().String("metrics-port", "", "Serve /metrics on a separate port instead of the API port")
	serveCmd.Flags().Bool("stateless", false, "Never persist sessions; clients echo the sub-stage fields")
}
