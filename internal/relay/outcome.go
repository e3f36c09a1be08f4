package relay

import (
	"time"

	"github.com/takeshy/photorelay/internal/media"
)

// Status is what happened to one item in a cycle
type Status int

const (
	StatusUploaded Status = iota
	StatusAlreadyRecorded
	StatusSkippedOversize
	StatusSkippedUnsupported
	StatusFailed
	StatusInterrupted
)

func (s Status) String() string {
	switch s {
	case StatusUploaded:
		return "uploaded"
	case StatusAlreadyRecorded:
		return "already recorded"
	case StatusSkippedOversize:
		return "skipped (oversize)"
	case StatusSkippedUnsupported:
		return "skipped (unsupported)"
	case StatusFailed:
		return "failed"
	default:
		return "interrupted"
	}
}

// Failure classifies why an item failed
type Failure int

const (
	FailureNone Failure = iota
	FailureItemRead
	FailureDownload
	FailureTransport
	FailureLedger
)

func (f Failure) String() string {
	switch f {
	case FailureItemRead:
		return "item read"
	case FailureDownload:
		return "download"
	case FailureTransport:
		return "transport"
	case FailureLedger:
		return "ledger"
	default:
		return "none"
	}
}

// Outcome is the result of processing one item
type Outcome struct {
	Item    media.Item
	Status  Status
	Failure Failure
	Action  Action
	Note    string
	Err     error // the failure, or ErrSizeExceeded for oversize skips
	// Degraded is set when a photo went out as a document because
	// compression failed
	Degraded error
}

// CycleSummary counts one full scan of a source
type CycleSummary struct {
	Source             string
	StartedAt          time.Time
	Duration           time.Duration
	Seen               int
	AlreadyRecorded    int
	Uploaded           int
	Compressed         int
	AsDocument         int
	SkippedOversize    int
	SkippedUnsupported int
	Failed             int
	ScanErr            error
	Interrupted        bool
}

func (s *CycleSummary) add(out Outcome) {
	s.Seen++
	switch out.Status {
	case StatusUploaded:
		s.Uploaded++
		switch out.Action {
		case ActionSendCompressed:
			s.Compressed++
		case ActionSendDocument:
			s.AsDocument++
		}
	case StatusAlreadyRecorded:
		s.AlreadyRecorded++
	case StatusSkippedOversize:
		s.SkippedOversize++
	case StatusSkippedUnsupported:
		s.SkippedUnsupported++
	case StatusFailed:
		s.Failed++
	case StatusInterrupted:
		s.Seen--
		s.Interrupted = true
	}
}
