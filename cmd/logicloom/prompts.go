package main

import (
	"fmt"

	"github.com/aretw0/logicloom/internal/prompt"
	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/spf13/cobra"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Work with handler prompt files",
}

var promptsValidateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check that every handler prompt parses and renders",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dir := cfg.PromptsDir
		if len(args) > 0 {
			dir = args[0]
		}

		set, err := prompt.LoadDir(dir)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		out := cmd.OutOrStdout()
		found := make(map[domain.HandlerID]bool)
		for _, h := range set.Handlers() {
			found[h] = true
		}
		var missing int
		for _, h := range domain.Handlers {
			if found[h] {
				fmt.Fprintf(out, "  ok       %s\n", h)
			} else {
				fmt.Fprintf(out, "  missing  %s\n", h)
				missing++
			}
		}
		if missing > 0 {
			return fmt.Errorf("validation failed: %d handler prompt(s) missing in %s", missing, dir)
		}
		fmt.Fprintln(out, "Prompts are valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promptsCmd)
	promptsCmd.AddCommand(promptsValidateCmd)
}
