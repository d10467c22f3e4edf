package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/moodcap/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past analyses recorded by the service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		entries, err := svc.History(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		output.NewFormatter(cmd.OutOrStdout()).History(entries)
		return nil
	},
}

func init() {
	historyCmd.Flags().Bool("json", false, "print the history as JSON")
}
