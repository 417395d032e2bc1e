package main

import (
	"os"

	"github.com/Lllllllleong/prescriptionreader/internal/surface"
	"github.com/spf13/cobra"
)

var registerConfirm string

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner, err := newScanner(cmd.Context())
		if err != nil {
			return err
		}
		defer scanner.Close()

		ui := terminalUI{out: os.Stdout}
		return surface.NewRegisterScreen(scanner.Session, ui, ui).Submit(cmd.Context(), email, password, registerConfirm)
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerConfirm, "confirm", "", "password confirmation")
	rootCmd.AddCommand(registerCmd)
}
