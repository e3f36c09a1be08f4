package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	localOnce    bool
	localWatch   bool
	localExclude []string
)

var localCmd = &cobra.Command{
	Use:   "local [root]",
	Short: "Relay new media from a local directory tree",
	Long: `Walk a directory tree and post every new photo, video and GIF.

Files are identified by the SHA-256 of their contents, so a renamed or moved
file is never sent twice. Directories named in the exclusion list (and any
hidden directory) are never entered.

The tree is rescanned every poll interval; with --watch, filesystem events
start the next scan early.

Examples:
  # Scan the phone's internal storage forever
  photorelay local /storage/emulated/0

  # One pass, skipping an extra directory
  photorelay local ~/Pictures --once --exclude Screenshots`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLocal,
}

func init() {
	localCmd.Flags().BoolVar(&localOnce, "once", false, "Run a single scan and exit")
	localCmd.Flags().BoolVar(&localWatch, "watch", true, "Wake early on filesystem events")
	localCmd.Flags().StringSliceVarP(&localExclude, "exclude", "e", nil, "Additional directory names to skip")
	rootCmd.AddCommand(localCmd)
}

func runLocal(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.RootDir = args[0]
	}
	cfg.Exclusions = append(cfg.Exclusions, localExclude...)

	env, err := openRelayEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	p, stop, err := env.localPipeline(cfg.RootDir, env.console, localWatch && !localOnce)
	if err != nil {
		return err
	}
	defer stop()

	if localOnce {
		return runOnce(ctx, p)
	}

	fmt.Printf("Watching %s (every %s, exclusions: %v)\n\n", cfg.RootDir, cfg.PollInterval, cfg.Exclusions)
	return p.Run(ctx)
}
