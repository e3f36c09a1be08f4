package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/takeshy/photorelay/internal/auth"
	"github.com/takeshy/photorelay/internal/config"
	"github.com/takeshy/photorelay/internal/fileutil"
	"github.com/takeshy/photorelay/internal/imaging"
	"github.com/takeshy/photorelay/internal/ledger"
	"github.com/takeshy/photorelay/internal/output"
	"github.com/takeshy/photorelay/internal/photos"
	"github.com/takeshy/photorelay/internal/relay"
	"github.com/takeshy/photorelay/internal/scanner"
	"github.com/takeshy/photorelay/internal/telegram"
	"github.com/takeshy/photorelay/internal/watch"
)

// relayEnv holds what every upload command shares: one ledger, one chat and
// one router
type relayEnv struct {
	cfg      *config.Config
	ledger   *ledger.Ledger
	router   *relay.Router
	uploader *relay.Uploader
	console  *output.Console
}

func openRelayEnv(ctx context.Context, cfg *config.Config) (*relayEnv, error) {
	if err := cfg.ValidateTelegram(); err != nil {
		return nil, err
	}

	l, err := ledger.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if n, err := l.Count(ctx); err == nil {
		log.Printf("INFO: ledger %s holds %d entries", cfg.DBPath, n)
	}

	tg := telegram.NewClient(cfg.BotToken, cfg.ChatID)
	me, err := tg.GetMe(ctx)
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}
	log.Printf("INFO: posting as @%s to chat %s", me.Username, cfg.ChatID)

	compressor := imaging.NewJPEGCompressor(cfg.JPEGQuality, cfg.TempDir)

	return &relayEnv{
		cfg:      cfg,
		ledger:   l,
		router:   relay.NewRouter(cfg.RouterConfig(), compressor),
		uploader: relay.NewUploader(tg),
		console:  output.NewConsole(os.Stdout, os.Stderr, cfg.Verbose),
	}, nil
}

func (e *relayEnv) Close() error {
	return e.ledger.Close()
}

// localPipeline builds the filesystem pipeline. With watchFS the pipeline
// also wakes early on filesystem events; the returned closer stops the watcher.
func (e *relayEnv) localPipeline(root string, reporter relay.Reporter, watchFS bool) (*relay.Pipeline, func(), error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("root directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("root %s is not a directory", root)
	}

	exclusions := fileutil.NewExclusionSet(e.cfg.Exclusions)
	var hooks []func(string)
	if e.cfg.Verbose {
		hooks = append(hooks, func(dir string) { log.Printf("INFO: scanning %s", dir) })
	}

	var opts []relay.PipelineOption
	closer := func() {}

	if watchFS {
		n, err := watch.NewNotifier(watch.WithFilter(func(dir string) bool {
			rel, err := filepath.Rel(root, dir)
			return err == nil && rel != "." && exclusions.ExcludesPath(rel)
		}))
		if err != nil {
			log.Printf("WARN: filesystem events unavailable, polling only: %v", err)
		} else {
			hooks = append(hooks, n.Add)
			n.Start()
			opts = append(opts, relay.WithWake(n.Wake()))
			closer = func() { n.Close() }
		}
	}

	src := scanner.NewLocal(root,
		scanner.WithExclusions(e.cfg.Exclusions),
		scanner.WithOnDir(func(dir string) {
			for _, h := range hooks {
				h(dir)
			}
		}),
	)

	opts = append(opts, relay.WithReporter(reporter))
	p := relay.NewPipeline(src, e.ledger, e.router, e.uploader, e.cfg.LocalPipelineConfig(), opts...)
	return p, closer, nil
}

// cloudPipeline builds the photo-library pipeline. The credential is checked
// here so a bad token stops the process before any scan starts.
func (e *relayEnv) cloudPipeline(ctx context.Context, reporter relay.Reporter) (*relay.Pipeline, error) {
	oc, err := auth.LoadConfig(e.cfg.CredentialsFile, photos.Scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", relay.ErrAuth, err)
	}
	httpClient, err := auth.HTTPClient(ctx, oc, e.cfg.TokenFile, e.cfg.ItemTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", relay.ErrAuth, err)
	}

	src := scanner.NewCloud(photos.NewClient(httpClient), e.cfg.TempDir)
	return relay.NewPipeline(src, e.ledger, e.router, e.uploader, e.cfg.CloudPipelineConfig(), relay.WithReporter(reporter)), nil
}

// runOnce performs a single cycle and fails if any item failed
func runOnce(ctx context.Context, p *relay.Pipeline) error {
	summary, err := p.RunCycle(ctx)
	if err != nil {
		return nil
	}
	if summary.ScanErr != nil {
		return summary.ScanErr
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d item(s) failed", summary.Failed)
	}
	return nil
}
