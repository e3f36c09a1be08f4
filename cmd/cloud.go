package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cloudOnce bool

var cloudCmd = &cobra.Command{
	Use:   "cloud",
	Short: "Relay new media from Google Photos",
	Long: `List the Google Photos library and post every item not yet sent.

Items are identified by their media item ID. Each one is downloaded to a
private temporary directory, sent, and deleted again. Run 'photorelay auth'
once beforehand to create the token file.`,
	Args: cobra.NoArgs,
	RunE: runCloud,
}

func init() {
	cloudCmd.Flags().BoolVar(&cloudOnce, "once", false, "List the library once and exit")
	rootCmd.AddCommand(cloudCmd)
}

func runCloud(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	env, err := openRelayEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	p, err := env.cloudPipeline(ctx, env.console)
	if err != nil {
		return err
	}

	if cloudOnce {
		return runOnce(ctx, p)
	}

	fmt.Printf("Polling Google Photos every %s\n\n", cfg.CloudPollInterval)
	return p.Run(ctx)
}
