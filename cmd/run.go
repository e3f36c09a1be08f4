package cmd

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/takeshy/photorelay/internal/relay"
	"github.com/takeshy/photorelay/internal/statusapi"
	"golang.org/x/sync/errgroup"
)

var (
	runStatusAddr string
	runNoCloud    bool
	runNoLocal    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the local and cloud relays side by side",
	Long: `Run both relays in one process against a shared ledger.

With --status-addr an HTTP endpoint reports each relay's last cycle:
  GET /healthz
  GET /api/v1/status
  GET /api/v1/ledger?limit=N
  GET /api/v1/ledger/:key`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runStatusAddr, "status-addr", "", "Serve the status API on this address (e.g. :8080)")
	runCmd.Flags().BoolVar(&runNoCloud, "no-cloud", false, "Disable the Google Photos relay")
	runCmd.Flags().BoolVar(&runNoLocal, "no-local", false, "Disable the local directory relay")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runNoCloud && runNoLocal {
		return fmt.Errorf("nothing to run: both relays disabled")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	env, err := openRelayEnv(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	board := relay.NewStatusBoard()
	reporter := relay.MultiReporter{env.console, board}

	g, ctx := errgroup.WithContext(cmd.Context())

	if !runNoCloud {
		p, err := env.cloudPipeline(ctx, reporter)
		if err != nil {
			return err
		}
		g.Go(func() error { return p.Run(ctx) })
	}

	if !runNoLocal {
		p, stop, err := env.localPipeline(cfg.RootDir, reporter, true)
		if err != nil {
			return err
		}
		defer stop()
		g.Go(func() error { return p.Run(ctx) })
	}

	if runStatusAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		router := statusapi.NewRouter(statusapi.NewHandler(board, env.ledger))
		g.Go(func() error { return statusapi.Serve(ctx, runStatusAddr, router) })
	}

	log.Printf("INFO: photorelay %s running", Version)
	return g.Wait()
}
