package ledger

import "errors"

var (
	ErrEntryNotFound = errors.New("ledger entry not found")
	ErrEmptyKey      = errors.New("ledger key is empty")
)
