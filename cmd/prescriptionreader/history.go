package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Lllllllleong/prescriptionreader/internal/history"
	"github.com/Lllllllleong/prescriptionreader/internal/models"
	"github.com/Lllllllleong/prescriptionreader/internal/pipeline"
	"github.com/Lllllllleong/prescriptionreader/internal/surface"
	"github.com/spf13/cobra"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past scans, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ui := terminalUI{out: os.Stderr}

		scanner, err := newScanner(ctx)
		if err != nil {
			return err
		}
		defer scanner.Close()

		if err := signIn(ctx, scanner, ui); err != nil {
			return err
		}

		reader := history.NewReader(scanner.Docs, scanner.Session, scanner.Config().Collection, pipeline.DefaultConfig().RemoteTimeout)
		entries, err := reader.Load(ctx)
		if err != nil {
			return err
		}

		if historyJSON {
			out := make([]models.HistoryEntry, 0, len(entries))
			for _, e := range entries {
				out = append(out, models.HistoryEntry{ScanID: e.ScanID, Text: e.Text, ImageURL: e.URL, Timestamp: e.Timestamp})
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		dialog := &surface.HistoryDialog{Entries: entries}
		fmt.Fprint(os.Stdout, dialog.Render())
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print entries as JSON")
	rootCmd.AddCommand(historyCmd)
}
