package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Lllllllleong/prescriptionreader/internal/capture"
	"github.com/Lllllllleong/prescriptionreader/internal/models"
	"github.com/Lllllllleong/prescriptionreader/internal/pipeline"
	"github.com/Lllllllleong/prescriptionreader/internal/surface"
	"github.com/spf13/cobra"
)

var (
	scanImages  []string
	scanFlash   bool
	scanTimeout time.Duration
	scanJSON    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan prescription images and save the recognized text",
	Long: `scan feeds each --image through the pipeline as one camera capture:
capture, stage, recognize, upload, resolve URL and insert the scan document.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringSliceVarP(&scanImages, "image", "i", nil, "JPEG or PNG file to scan (repeatable)")
	scanCmd.Flags().BoolVar(&scanFlash, "flash", false, "turn the torch on before capturing")
	scanCmd.Flags().DurationVar(&scanTimeout, "capture-timeout", capture.DefaultTimeout, "bound on a single capture")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print persisted scans as JSON")
	scanCmd.MarkFlagRequired("image")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
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

	recognizer, err := newRecognizer(ctx, scanner)
	if err != nil {
		return err
	}
	deps := scanner.ScanDeps(&capture.FileDriver{Paths: scanImages}, recognizer, scanTimeout)
	screen, err := surface.OpenScanScreen(ctx, deps, ui, ui)
	if screen != nil {
		defer screen.Close()
	} else {
		recognizer.Close()
	}
	if err != nil {
		return err
	}

	if scanFlash {
		if err := screen.ToggleFlash(); err != nil {
			return err
		}
	}

	var failures int
	for range scanImages {
		switch o := screen.Capture(ctx).(type) {
		case pipeline.Persisted:
			if scanJSON {
				if err := json.NewEncoder(os.Stdout).Encode(models.ScanEvent{
					ScanID:    o.ScanID,
					ImageURL:  o.URL,
					ImageKey:  o.ImageKey,
					OwnerID:   o.OwnerID,
					Timestamp: o.Timestamp,
				}); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintf(os.Stdout, "%s\n%s\n", o.ScanID, o.Text)
		case pipeline.Failed:
			failures++
			switch o.Stage {
			case pipeline.StageUploadBlob, pipeline.StageResolveURL, pipeline.StageInsertDoc:
				// Recognition succeeded before the save failed.
				fmt.Fprintln(os.Stdout, screen.Text())
			}
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d scans failed", failures, len(scanImages))
	}
	return nil
}
