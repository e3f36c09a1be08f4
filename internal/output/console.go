// Package output renders pipeline progress for the terminal.
package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/takeshy/photorelay/internal/relay"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	bold   = color.New(color.Bold)
)

// Console is a relay.Reporter that prints one line per item and a summary
// block per cycle. Quiet cycles print nothing unless Verbose is set.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	Verbose bool
}

// NewConsole creates a console reporter writing progress to out and
// failures to errOut
func NewConsole(out, errOut io.Writer, verbose bool) *Console {
	return &Console{out: out, errOut: errOut, Verbose: verbose}
}

func (c *Console) CycleStarted(source string) {
	if !c.Verbose {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "Scanning %s...\n", source)
}

func (c *Console) ItemDone(o relay.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := itemName(o)
	switch o.Status {
	case relay.StatusUploaded:
		detail := o.Action.String()
		if o.Note != "" {
			detail += ", " + o.Note
		}
		green.Fprintf(c.out, "✓ %s", name)
		fmt.Fprintf(c.out, " (%s)\n", detail)
		if o.Degraded != nil {
			yellow.Fprintf(c.out, "  ⚠ %v\n", o.Degraded)
		}
	case relay.StatusAlreadyRecorded:
		if c.Verbose {
			fmt.Fprintf(c.out, "  %s: already sent\n", name)
		}
	case relay.StatusSkippedOversize:
		yellow.Fprintf(c.out, "⊘ %s: %v\n", name, o.Err)
	case relay.StatusSkippedUnsupported:
		if c.Verbose {
			yellow.Fprintf(c.out, "⊘ %s: unsupported %s\n", name, o.Note)
		}
	case relay.StatusFailed:
		red.Fprintf(c.errOut, "✗ %s: %s: %v\n", name, o.Failure, o.Err)
	case relay.StatusInterrupted:
		fmt.Fprintf(c.out, "  %s: interrupted\n", name)
	}
}

func (c *Console) ScanError(source string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	red.Fprintf(c.errOut, "✗ %s scan aborted: %v\n", source, err)
}

func (c *Console) CycleDone(s relay.CycleSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Verbose && !eventful(s) {
		return
	}

	bold.Fprintf(c.out, "\n%s cycle complete (%s):\n", title(s.Source), s.Duration.Round(time.Millisecond))
	fmt.Fprintf(c.out, "  Seen:      %d\n", s.Seen)
	fmt.Fprintf(c.out, "  Uploaded:  %d", s.Uploaded)
	if s.Compressed > 0 || s.AsDocument > 0 {
		fmt.Fprintf(c.out, " (%d compressed, %d as document)", s.Compressed, s.AsDocument)
	}
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "  Known:     %d\n", s.AlreadyRecorded)
	fmt.Fprintf(c.out, "  Skipped:   %d\n", s.SkippedOversize+s.SkippedUnsupported)
	fmt.Fprintf(c.out, "  Failed:    %d\n", s.Failed)
	if s.Interrupted {
		yellow.Fprintln(c.out, "  Interrupted before the cycle finished")
	}
	fmt.Fprintln(c.out)
}

func eventful(s relay.CycleSummary) bool {
	return s.Uploaded > 0 || s.Failed > 0 || s.SkippedOversize > 0 || s.ScanErr != nil || s.Interrupted
}

func itemName(o relay.Outcome) string {
	if o.Item.RelPath != "" {
		return o.Item.RelPath
	}
	if o.Item.DisplayName != "" {
		return o.Item.DisplayName
	}
	return o.Item.Locator
}

func title(s string) string {
	if s == "" {
		return "Scan"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
