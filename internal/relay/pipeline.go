// Package relay is the upload pipeline: it scans a source, identifies each
// item, consults the ledger, routes by size and format, uploads, and records
// what was sent.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/takeshy/photorelay/internal/ledger"
	"github.com/takeshy/photorelay/internal/media"
	"golang.org/x/time/rate"
)

// OversizePolicy decides whether oversize skips are written to the ledger
type OversizePolicy string

const (
	// OversizeRecord records oversize items so they are never reconsidered
	OversizeRecord OversizePolicy = "record"
	// OversizeRetry leaves them unrecorded so a raised limit picks them up
	OversizeRetry OversizePolicy = "retry"
)

// ParseOversizePolicy validates a policy name
func ParseOversizePolicy(s string) (OversizePolicy, error) {
	switch OversizePolicy(s) {
	case OversizeRecord, OversizeRetry:
		return OversizePolicy(s), nil
	case "":
		return OversizeRecord, nil
	}
	return "", fmt.Errorf("unknown oversize policy %q (must be record or retry)", s)
}

// PipelineConfig configures the scan loop
type PipelineConfig struct {
	PollInterval   time.Duration // sleep between cycles
	ItemPause      time.Duration // minimum spacing between upload attempts
	ItemTimeout    time.Duration // upper bound on fetching, sending and recording one item
	OversizePolicy OversizePolicy
	NotifySummary  bool // send a chat message when a cycle uploaded something
}

// DefaultPipelineConfig returns the default loop configuration
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		PollInterval:   5 * time.Second,
		ItemPause:      time.Second,
		ItemTimeout:    10 * time.Minute,
		OversizePolicy: OversizeRecord,
	}
}

// Pipeline runs scan cycles for one source. It processes one item at a time
// and is the ledger's only writer for that source.
type Pipeline struct {
	source   Source
	ledger   Ledger
	router   *Router
	uploader *Uploader
	config   PipelineConfig
	reporter Reporter
	wake     <-chan struct{}
	limiter  *rate.Limiter
}

// PipelineOption is a functional option for configuring a Pipeline
type PipelineOption func(*Pipeline)

// WithReporter sets the progress reporter
func WithReporter(r Reporter) PipelineOption {
	return func(p *Pipeline) {
		p.reporter = r
	}
}

// WithWake sets a channel that cuts the inter-cycle sleep short
func WithWake(wake <-chan struct{}) PipelineOption {
	return func(p *Pipeline) {
		p.wake = wake
	}
}

// NewPipeline creates a pipeline
func NewPipeline(source Source, l Ledger, router *Router, uploader *Uploader, config PipelineConfig, opts ...PipelineOption) *Pipeline {
	if config.OversizePolicy == "" {
		config.OversizePolicy = OversizeRecord
	}

	p := &Pipeline{
		source:   source,
		ledger:   l,
		router:   router,
		uploader: uploader,
		config:   config,
		reporter: NopReporter{},
	}
	for _, opt := range opts {
		opt(p)
	}

	if config.ItemPause > 0 {
		p.limiter = rate.NewLimiter(rate.Every(config.ItemPause), 1)
	} else {
		p.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return p
}

// Run repeats scan cycles until ctx is cancelled. Cancellation is a clean
// stop and returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := p.RunCycle(ctx); err != nil {
			return nil
		}

		timer := time.NewTimer(p.config.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		case <-p.wake:
			timer.Stop()
		}
	}
}

// RunCycle performs one full scan. It returns ctx.Err() if the cycle was
// interrupted; source failures are reported in the summary.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleSummary, error) {
	summary := CycleSummary{Source: p.source.Name(), StartedAt: time.Now()}
	p.reporter.CycleStarted(summary.Source)

	for item, err := range p.source.Scan(ctx) {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		if err != nil {
			if errors.Is(err, ErrSourceEnumeration) {
				summary.ScanErr = err
				p.reporter.ScanError(summary.Source, err)
				continue
			}
			out := Outcome{Item: item, Status: StatusFailed, Failure: FailureItemRead, Err: err}
			summary.add(out)
			p.reporter.ItemDone(out)
			continue
		}

		out := p.processItem(ctx, item)
		summary.add(out)
		p.reporter.ItemDone(out)

		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	p.reporter.CycleDone(summary)

	if p.config.NotifySummary && summary.Uploaded > 0 {
		msg := fmt.Sprintf("photorelay: %d new item(s) from %s", summary.Uploaded, summary.Source)
		p.uploader.Notify(context.WithoutCancel(ctx), msg)
	}

	if summary.Interrupted {
		return summary, ctx.Err()
	}
	return summary, nil
}

// workContext outlives ctx cancellation but not ItemTimeout
func (p *Pipeline) workContext(ctx context.Context) (context.Context, context.CancelFunc) {
	work := context.WithoutCancel(ctx)
	if p.config.ItemTimeout > 0 {
		return context.WithTimeout(work, p.config.ItemTimeout)
	}
	return work, func() {}
}

// processItem takes one item from identification to ledger commit. Once the
// item is known to be new it runs to completion even if ctx is cancelled, so
// the ledger only ever reflects finished items. ItemTimeout still bounds it.
func (p *Pipeline) processItem(ctx context.Context, item media.Item) Outcome {
	out := Outcome{Item: item}
	fail := func(f Failure, stage string, err error) Outcome {
		out.Status = StatusFailed
		out.Failure = f
		out.Err = &ItemError{Item: out.Item, Stage: stage, Err: err}
		return out
	}

	if item.Kind == media.KindUnsupported {
		out.Status = StatusSkippedUnsupported
		out.Note = item.MimeType
		return out
	}

	key, err := p.source.Identify(ctx, item)
	if err != nil {
		return fail(FailureItemRead, "identify", err)
	}
	item.Key = key
	out.Item = item

	recorded, err := p.ledger.IsRecorded(ctx, key)
	if err != nil {
		return fail(FailureLedger, "ledger", fmt.Errorf("%w: %v", ErrLedger, err))
	}
	if recorded {
		out.Status = StatusAlreadyRecorded
		return out
	}

	if err := p.limiter.Wait(ctx); err != nil {
		out.Status = StatusInterrupted
		return out
	}
	work, cancelWork := p.workContext(ctx)
	defer cancelWork()

	payload, err := p.source.Fetch(work, item)
	if err != nil {
		if errors.Is(err, ErrDownload) {
			return fail(FailureDownload, "fetch", err)
		}
		return fail(FailureItemRead, "fetch", err)
	}
	defer payload.Release()

	item.Size = payload.Size
	out.Item = item

	plan := p.router.Route(work, item, payload)
	defer plan.Release()
	out.Action = plan.Action
	out.Note = plan.Reason
	if errors.Is(plan.Err, ErrCompression) {
		out.Degraded = plan.Err
	}

	if plan.Action == ActionSkip {
		if plan.Reason != SkipOversize {
			out.Status = StatusSkippedUnsupported
			return out
		}
		out.Status = StatusSkippedOversize
		out.Err = plan.Err
		if p.config.OversizePolicy == OversizeRecord {
			if err := p.ledger.Record(work, key, item.DisplayName+ledger.SkippedSizeSuffix); err != nil {
				return fail(FailureLedger, "ledger", fmt.Errorf("%w: %v", ErrLedger, err))
			}
		}
		return out
	}

	delivery := p.uploader.Upload(work, plan, item.DisplayName)
	if !delivery.OK {
		return fail(FailureTransport, "upload", delivery.Err)
	}

	if err := p.ledger.Record(work, key, item.DisplayName); err != nil {
		return fail(FailureLedger, "ledger", fmt.Errorf("%w: %v", ErrLedger, err))
	}
	out.Status = StatusUploaded
	return out
}
