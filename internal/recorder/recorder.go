package recorder

import "StakePool/internal/model"

// Recorder persists ledger history for analysis.
type Recorder interface {
	RecordEvent(evt *model.LedgerEvent) error
	RecordSnapshot(snap *model.PoolSnapshot) error
	// History returns the newest events first. An empty participant means all.
	History(participant model.Address, limit int) ([]model.LedgerEvent, error)
	Close() error
}
