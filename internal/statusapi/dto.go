package statusapi

import (
	"time"

	"github.com/takeshy/photorelay/internal/ledger"
	"github.com/takeshy/photorelay/internal/relay"
)

// CycleResponse is the JSON form of a cycle summary
type CycleResponse struct {
	StartedAt          time.Time `json:"started_at"`
	DurationMS         int64     `json:"duration_ms"`
	Seen               int       `json:"seen"`
	AlreadyRecorded    int       `json:"already_recorded"`
	Uploaded           int       `json:"uploaded"`
	Compressed         int       `json:"compressed"`
	AsDocument         int       `json:"as_document"`
	SkippedOversize    int       `json:"skipped_oversize"`
	SkippedUnsupported int       `json:"skipped_unsupported"`
	Failed             int       `json:"failed"`
	ScanError          string    `json:"scan_error,omitempty"`
	Interrupted        bool      `json:"interrupted,omitempty"`
}

// OutcomeResponse is the JSON form of the last non-trivial item outcome
type OutcomeResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Action string `json:"action,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SourceResponse describes one pipeline
type SourceResponse struct {
	Source      string           `json:"source"`
	Running     bool             `json:"running"`
	Cycles      int              `json:"cycles"`
	LastCycle   *CycleResponse   `json:"last_cycle,omitempty"`
	LastOutcome *OutcomeResponse `json:"last_outcome,omitempty"`
}

// StatusResponse is the body of GET /api/v1/status
type StatusResponse struct {
	Sources []SourceResponse `json:"sources"`
	Ledger  ledger.Stats     `json:"ledger"`
}

// LedgerListResponse is the body of GET /api/v1/ledger
type LedgerListResponse struct {
	Entries []ledger.Entry `json:"entries"`
	Count   int            `json:"count"`
}

// ErrorResponse is returned on failures
type ErrorResponse struct {
	Error string `json:"error"`
}

func toSourceResponse(s relay.SourceStatus) SourceResponse {
	resp := SourceResponse{Source: s.Source, Running: s.Running, Cycles: s.Cycles}

	if c := s.LastCycle; c != nil {
		cr := &CycleResponse{
			StartedAt:          c.StartedAt,
			DurationMS:         c.Duration.Milliseconds(),
			Seen:               c.Seen,
			AlreadyRecorded:    c.AlreadyRecorded,
			Uploaded:           c.Uploaded,
			Compressed:         c.Compressed,
			AsDocument:         c.AsDocument,
			SkippedOversize:    c.SkippedOversize,
			SkippedUnsupported: c.SkippedUnsupported,
			Failed:             c.Failed,
			Interrupted:        c.Interrupted,
		}
		if c.ScanErr != nil {
			cr.ScanError = c.ScanErr.Error()
		}
		resp.LastCycle = cr
	}

	if o := s.LastOutcome; o != nil {
		or := &OutcomeResponse{Name: o.Item.DisplayName, Status: o.Status.String()}
		if o.Status == relay.StatusUploaded {
			or.Action = o.Action.String()
		}
		if o.Err != nil {
			or.Error = o.Err.Error()
		}
		resp.LastOutcome = or
	}

	return resp
}
