package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/logicloom/internal/cli"
	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/runner"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the tutor in the terminal",
	Long: `Runs an interactive tutoring session. The lesson state lives in the process;
pass --session to keep it in the session store and resume it later.
Type /help inside the chat for commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, debug := newLogger(cmd)
		sessionID, _ := cmd.Flags().GetString("session")
		stage, _ := cmd.Flags().GetString("stage")
		group, _ := cmd.Flags().GetString("group")
		studentID, _ := cmd.Flags().GetString("student")
		jsonMode, _ := cmd.Flags().GetBool("json")
		yes, _ := cmd.Flags().GetBool("yes")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
		defer stop()

		app, err := cli.Build(ctx, cfg, logger, cli.BuildOptions{Debug: debug, Stateless: sessionID == ""})
		if err != nil {
			return err
		}
		defer app.Close(context.Background())

		initial := domain.TurnRequest{
			ConversationID: sessionID,
			StudentID:      studentID,
			Group:          group,
			Stage:          domain.ParseStage(stage),
		}
		if !initial.Stage.Known() {
			return fmt.Errorf("unknown stage %q", stage)
		}
		if sessionID != "" && !cmd.Flags().Changed("stage") {
			state, err := app.Store.Load(ctx, sessionID)
			switch {
			case err == nil:
				initial.Stage = state.Stage
				fmt.Fprintf(cmd.ErrOrStderr(), ">>> Resuming session '%s' at stage %s.\n", sessionID, state.Stage)
			case !errors.Is(err, domain.ErrSessionNotFound):
				return fmt.Errorf("failed to load session %s: %w", sessionID, err)
			}
		}

		opts := []runner.Option{
			runner.WithLogger(logger),
			runner.WithHeadless(jsonMode),
			runner.WithInitialRequest(initial),
			runner.WithCodeRunner(app.Sandbox),
		}
		if jsonMode {
			opts = append(opts, runner.WithInputHandler(runner.NewJSONHandler(os.Stdin, os.Stdout)))
		}
		if yes {
			opts = append(opts, runner.WithInterceptor(runner.AutoApproveMiddleware()))
		}

		return runner.New(app.Engine, opts...).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("session", "", "Conversation ID to persist and resume")
	chatCmd.Flags().String("stage", string(domain.StageScenario), "Stage to start at")
	chatCmd.Flags().String("group", "", "Study group for the turn log: experimental or control")
	chatCmd.Flags().String("student", "", "Student ID for the turn log")
	chatCmd.Flags().Bool("json", false, "Use JSON Lines on stdin/stdout instead of the terminal UI")
	chatCmd.Flags().BoolP("yes", "y", false, "Run code with /run without asking")
}
