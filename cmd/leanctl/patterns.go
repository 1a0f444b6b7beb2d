package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	simpleGet := func(use, short, path string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := requireUser(); err != nil {
					return err
				}
				data, err := doGet(fmt.Sprintf("%s/api/users/%s/%s", apiFlag, userFlag, path))
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(os.Stdout, string(data))
				return nil
			},
		}
	}

	rootCmd.AddCommand(simpleGet("patterns", "Show learned patterns and streaks", "patterns"))
	rootCmd.AddCommand(simpleGet("insights", "Show ranked insights for the trailing month", "insights"))
	rootCmd.AddCommand(simpleGet("stats", "Show journal statistics", "stats"))

	contextCmd := &cobra.Command{
		Use:   "context TEXT...",
		Short: "Preview the relevance context for a draft entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			data, err := doPostJSON(
				fmt.Sprintf("%s/api/users/%s/context", apiFlag, userFlag),
				map[string]string{"text": strings.Join(args, " ")},
			)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rootCmd.AddCommand(contextCmd)
}
