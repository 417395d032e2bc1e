package main

import (
	"encoding/json"
	"os"

	"github.com/Lllllllleong/prescriptionreader/internal/services"
	"github.com/spf13/cobra"
)

var janitorCmd = &cobra.Command{
	Use:   "janitor",
	Short: "Delete image blobs no scan document references",
	RunE: func(cmd *cobra.Command, args []string) error {
		fn, err := services.NewJanitor(cmd.Context())
		if err != nil {
			return err
		}
		defer fn.Close()

		report, err := fn.Process(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(janitorCmd)
}
