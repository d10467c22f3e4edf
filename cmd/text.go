package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/moodcap/internal/output"
	"github.com/audiolibrelab/moodcap/internal/session"
)

var textCmd = &cobra.Command{
	Use:   "text [words...]",
	Short: "Analyze the emotional tone of free text",
	Long: `Send text to the analysis service and show the detected emotions.
The text is taken from the arguments, or from standard input when no
arguments are given. Blank text is not sent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if len(args) == 0 {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read text: %w", err)
			}
			text = string(data)
		}

		svc, err := newService()
		if err != nil {
			return err
		}

		f := output.NewFormatter(cmd.OutOrStdout())
		result, err := svc.AnalyzeText(cmd.Context(), text)
		if err != nil {
			f.Error(session.UserMessage(err))
			return fmt.Errorf("text analysis failed: %w", err)
		}
		if result == nil {
			f.Info("Nothing to analyze")
			return nil
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		f.Result("Text emotion analysis", *result)
		return nil
	},
}

func init() {
	textCmd.Flags().Bool("json", false, "print the result as JSON")
}
