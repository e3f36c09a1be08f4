package mcp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/takeshy/photorelay/internal/fileutil"
	"github.com/takeshy/photorelay/internal/ledger"
	"github.com/takeshy/photorelay/internal/media"
)

const defaultListLimit = 50

func textResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

func toItem(e ledger.Entry) LedgerItem {
	return LedgerItem{
		Key:         e.Key,
		Label:       e.Label,
		SizeSkipped: e.SizeSkipped(),
		RecordedAt:  e.RecordedAt.Format(time.RFC3339),
	}
}

// handleLedgerStats handles the ledger_stats tool
func (s *Server) handleLedgerStats(ctx context.Context, req *mcp.CallToolRequest, input LedgerStatsInput) (*mcp.CallToolResult, LedgerStatsOutput, error) {
	output := LedgerStatsOutput{}

	stats, err := s.ledger.Stats(ctx)
	if err != nil {
		return nil, output, fmt.Errorf("failed to read ledger: %w", err)
	}

	output.Total = stats.Total
	output.SizeSkipped = stats.SizeSkipped
	output.Uploaded = stats.Total - stats.SizeSkipped
	if !stats.LastEntryAt.IsZero() {
		output.LastEntryAt = stats.LastEntryAt.Format(time.RFC3339)
	}

	return textResult("%d items recorded (%d sent, %d skipped as too large)", output.Total, output.Uploaded, output.SizeSkipped), output, nil
}

// handleLedgerList handles the ledger_list tool
func (s *Server) handleLedgerList(ctx context.Context, req *mcp.CallToolRequest, input LedgerListInput) (*mcp.CallToolResult, LedgerListOutput, error) {
	output := LedgerListOutput{Items: []LedgerItem{}}

	var re *regexp.Regexp
	if input.Pattern != "" {
		var err error
		re, err = regexp.Compile(input.Pattern)
		if err != nil {
			return nil, output, fmt.Errorf("invalid pattern: %w", err)
		}
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	// filter after fetching so a pattern can reach past the first page
	fetch := limit
	if re != nil {
		fetch = 0
	}
	entries, err := s.ledger.List(ctx, fetch)
	if err != nil {
		return nil, output, fmt.Errorf("failed to list ledger: %w", err)
	}

	for _, e := range entries {
		if re != nil && !re.MatchString(e.Label) {
			continue
		}
		output.Items = append(output.Items, toItem(e))
		if len(output.Items) == limit {
			break
		}
	}
	output.Total = len(output.Items)

	return textResult("Found %d ledger entries", output.Total), output, nil
}

// handleIsRecorded handles the is_recorded tool
func (s *Server) handleIsRecorded(ctx context.Context, req *mcp.CallToolRequest, input IsRecordedInput) (*mcp.CallToolResult, IsRecordedOutput, error) {
	output := IsRecordedOutput{Key: input.Key}
	if input.Key == "" {
		return nil, output, fmt.Errorf("key is required")
	}

	entry, err := s.ledger.Get(ctx, input.Key)
	if errors.Is(err, ledger.ErrEntryNotFound) {
		return textResult("%s has not been relayed", input.Key), output, nil
	}
	if err != nil {
		return nil, output, fmt.Errorf("failed to read ledger: %w", err)
	}

	item := toItem(*entry)
	output.Recorded = true
	output.Entry = &item
	return textResult("%s was recorded as '%s' at %s", input.Key, item.Label, item.RecordedAt), output, nil
}

// handleIdentifyFile handles the identify_file tool
func (s *Server) handleIdentifyFile(ctx context.Context, req *mcp.CallToolRequest, input IdentifyFileInput) (*mcp.CallToolResult, IdentifyFileOutput, error) {
	output := IdentifyFileOutput{Path: input.Path}
	if input.Path == "" {
		return nil, output, fmt.Errorf("path is required")
	}

	key, err := fileutil.CalculateChecksum(input.Path)
	if err != nil {
		return nil, output, err
	}
	output.Key = key
	output.Kind = media.KindFromExt(input.Path).String()

	recorded, err := s.ledger.IsRecorded(ctx, key)
	if err != nil {
		return nil, output, fmt.Errorf("failed to read ledger: %w", err)
	}
	output.Recorded = recorded

	if recorded {
		return textResult("%s (%s) has already been relayed", input.Path, key), output, nil
	}
	return textResult("%s (%s) has not been relayed yet", input.Path, key), output, nil
}
