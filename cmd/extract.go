package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <text>",
		Short: "Extract a date and time from text",
		Long: `Run the time extractor on free text and print the result formatted as
"2006-01-02 at 03:04 PM" in the configured TIME_ZONE, or "unknown".`,
		Example: `  calmate extract "meeting tomorrow at 5"
  calmate extract "Book a call next Friday 3pm"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			extracted := newParser(cfg).Extract(strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), extracted.String())
			return nil
		},
	}
}
