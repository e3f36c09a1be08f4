package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/takeshy/photorelay/internal/auth"
	"github.com/takeshy/photorelay/internal/photos"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize read access to Google Photos",
	Long: `Run the one-time OAuth consent for the Google Photos library.

Download an OAuth client (Desktop app) from the Google Cloud console as
credentials.json, run this command, open the printed URL, and paste the code
back. The token is saved to the token file and refreshed automatically.`,
	Args: cobra.NoArgs,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	oc, err := auth.LoadConfig(cfg.CredentialsFile, photos.Scope)
	if err != nil {
		return err
	}

	if _, err := auth.Authorize(cmd.Context(), oc, cfg.TokenFile, os.Stdin, os.Stdout); err != nil {
		return err
	}

	fmt.Printf("\n✓ Token saved to %s\n", cfg.TokenFile)
	return nil
}
