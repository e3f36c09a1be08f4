package ledger

import (
	"strings"
	"time"
)

// SkippedSizeSuffix marks entries recorded because the item exceeded the size limit
const SkippedSizeSuffix = " (SKIPPED_SIZE)"

// Entry is one relayed (or deliberately skipped) content key
type Entry struct {
	Key        string    `gorm:"column:id;primaryKey" json:"key"`
	Label      string    `gorm:"column:filename" json:"label"`
	RecordedAt time.Time `gorm:"column:uploaded_at;autoCreateTime" json:"recorded_at"`
}

func (Entry) TableName() string { return "uploaded_media" }

// SizeSkipped reports whether the entry was recorded as an oversize skip
func (e Entry) SizeSkipped() bool {
	return strings.HasSuffix(e.Label, SkippedSizeSuffix)
}

// Stats summarizes ledger contents
type Stats struct {
	Total       int64     `json:"total"`
	SizeSkipped int64     `json:"size_skipped"`
	LastEntryAt time.Time `json:"last_entry_at,omitempty"`
}
