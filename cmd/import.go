package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/brewtrail/brewtrail/internal/timeline"
)

var importUserID string

var importCmd = &cobra.Command{
	Use:   "import <timeline-export.json>",
	Short: "Import a Google Timeline export file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importUserID == "" {
			return eris.New("--user is required")
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read export file")
		}

		env, err := initPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		// CLI imports always run inline regardless of size; the async
		// threshold only protects HTTP request latency.
		places, err := timeline.Normalize(raw)
		if err != nil {
			return eris.Wrap(err, "parse export")
		}

		summary := env.Pipeline.Run(cmd.Context(), importUserID, places, filepath.Base(args[0]), "")

		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal summary")
		}
		fmt.Println(string(out))

		if !summary.Success {
			return eris.New("import failed")
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importUserID, "user", "", "user id to import visits for")
	rootCmd.AddCommand(importCmd)
}
