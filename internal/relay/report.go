package relay

import (
	"sort"
	"sync"
)

// Reporter receives progress from a pipeline
type Reporter interface {
	CycleStarted(source string)
	ItemDone(out Outcome)
	ScanError(source string, err error)
	CycleDone(summary CycleSummary)
}

// NopReporter discards everything
type NopReporter struct{}

func (NopReporter) CycleStarted(string)     {}
func (NopReporter) ItemDone(Outcome)        {}
func (NopReporter) ScanError(string, error) {}
func (NopReporter) CycleDone(CycleSummary)  {}

// MultiReporter fans out to several reporters
type MultiReporter []Reporter

func (m MultiReporter) CycleStarted(source string) {
	for _, r := range m {
		r.CycleStarted(source)
	}
}

func (m MultiReporter) ItemDone(out Outcome) {
	for _, r := range m {
		r.ItemDone(out)
	}
}

func (m MultiReporter) ScanError(source string, err error) {
	for _, r := range m {
		r.ScanError(source, err)
	}
}

func (m MultiReporter) CycleDone(summary CycleSummary) {
	for _, r := range m {
		r.CycleDone(summary)
	}
}

// SourceStatus is the live view of one pipeline
type SourceStatus struct {
	Source      string
	Running     bool
	Cycles      int
	LastCycle   *CycleSummary
	LastOutcome *Outcome
}

// StatusBoard tracks the latest cycle of every source. It is a Reporter and
// safe for concurrent readers.
type StatusBoard struct {
	mu      sync.RWMutex
	sources map[string]*SourceStatus
}

// NewStatusBoard creates an empty board
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{sources: make(map[string]*SourceStatus)}
}

func (b *StatusBoard) entry(source string) *SourceStatus {
	s, ok := b.sources[source]
	if !ok {
		s = &SourceStatus{Source: source}
		b.sources[source] = s
	}
	return s
}

func (b *StatusBoard) CycleStarted(source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entry(source).Running = true
}

func (b *StatusBoard) ItemDone(out Outcome) {
	if out.Status == StatusAlreadyRecorded {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o := out
	b.entry(out.Item.Source).LastOutcome = &o
}

func (b *StatusBoard) ScanError(string, error) {}

func (b *StatusBoard) CycleDone(summary CycleSummary) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.entry(summary.Source)
	s.Running = false
	s.Cycles++
	c := summary
	s.LastCycle = &c
}

// Snapshot returns a copy of every source's status
func (b *StatusBoard) Snapshot() []SourceStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]SourceStatus, 0, len(b.sources))
	for _, s := range b.sources {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}
