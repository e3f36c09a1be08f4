package mcp

// LedgerStatsInput represents input for the ledger_stats tool
type LedgerStatsInput struct{}

// LedgerStatsOutput represents output from the ledger_stats tool
type LedgerStatsOutput struct {
	Total       int64  `json:"total"`
	Uploaded    int64  `json:"uploaded"`
	SizeSkipped int64  `json:"size_skipped"`
	LastEntryAt string `json:"last_entry_at,omitempty"`
}

// LedgerListInput represents input for the ledger_list tool
type LedgerListInput struct {
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of entries to return (default 50)"`
	Pattern string `json:"pattern,omitempty" jsonschema:"regex pattern to filter results by file name"`
}

// LedgerListOutput represents output from the ledger_list tool
type LedgerListOutput struct {
	Items []LedgerItem `json:"items"`
	Total int          `json:"total"`
}

// LedgerItem represents a single ledger entry
type LedgerItem struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	SizeSkipped bool   `json:"size_skipped,omitempty"`
	RecordedAt  string `json:"recorded_at"`
}

// IsRecordedInput represents input for the is_recorded tool
type IsRecordedInput struct {
	Key string `json:"key" jsonschema:"content key to look up"`
}

// IsRecordedOutput represents output from the is_recorded tool
type IsRecordedOutput struct {
	Key      string      `json:"key"`
	Recorded bool        `json:"recorded"`
	Entry    *LedgerItem `json:"entry,omitempty"`
}

// IdentifyFileInput represents input for the identify_file tool
type IdentifyFileInput struct {
	Path string `json:"path" jsonschema:"path of a local file to hash"`
}

// IdentifyFileOutput represents output from the identify_file tool
type IdentifyFileOutput struct {
	Path     string `json:"path"`
	Key      string `json:"key"`
	Kind     string `json:"kind"`
	Recorded bool   `json:"recorded"`
}
