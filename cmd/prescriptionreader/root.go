package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Lllllllleong/prescriptionreader/internal/ocr"
	"github.com/Lllllllleong/prescriptionreader/internal/ocr/tesseract"
	"github.com/Lllllllleong/prescriptionreader/internal/services"
	"github.com/Lllllllleong/prescriptionreader/internal/surface"
	"github.com/spf13/cobra"
)

var (
	email    string
	password string
	local    bool
)

var rootCmd = &cobra.Command{
	Use:   "prescriptionreader",
	Short: "Scan paper prescriptions into text and browse past scans",
	Long: `prescriptionreader runs the prescription scan pipeline from a terminal.
Images are read from disk in place of a live camera. Scans are stored in
Cloud Storage and Firestore, or in memory with --local.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&email, "email", "e", os.Getenv("PRESCRIPTION_EMAIL"), "account email (env PRESCRIPTION_EMAIL)")
	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", os.Getenv("PRESCRIPTION_PASSWORD"), "account password (env PRESCRIPTION_PASSWORD)")
	rootCmd.PersistentFlags().BoolVar(&local, "local", false, "use in-memory stores and a throwaway account")
}

// terminalUI prints toasts and screen changes.
type terminalUI struct {
	out io.Writer
}

func (u terminalUI) Toast(msg string) {
	fmt.Fprintln(u.out, msg)
}

func (u terminalUI) Navigate(r surface.Route) {
	fmt.Fprintf(u.out, "-> %s\n", r)
}

func newScanner(ctx context.Context) (*services.ScannerFunction, error) {
	config, err := services.LoadScannerConfig(local)
	if err != nil {
		return nil, err
	}
	if local {
		return services.NewLocalScanner(config)
	}
	return services.NewScanner(ctx, config)
}

// signIn authenticates the session. Local scanners start with no accounts, so
// the account is registered first.
func signIn(ctx context.Context, scanner *services.ScannerFunction, ui terminalUI) error {
	if local {
		return surface.NewRegisterScreen(scanner.Session, ui, ui).Submit(ctx, email, password, password)
	}
	return surface.NewSignInScreen(scanner.Session, ui, ui).Submit(ctx, email, password)
}

func newRecognizer(ctx context.Context, scanner *services.ScannerFunction) (ocr.Recognizer, error) {
	config := scanner.Config()
	if config.OCREngine == services.EngineVertex {
		return scanner.NewVertexRecognizer(ctx)
	}
	engine, err := tesseract.New(config.OCRLanguages...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tesseract engine (languages %s): %w", strings.Join(config.OCRLanguages, "+"), err)
	}
	return engine, nil
}
