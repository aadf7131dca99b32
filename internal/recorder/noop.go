package recorder

import "StakePool/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordEvent(_ *model.LedgerEvent) error     { return nil }
func (n *NoopRecorder) RecordSnapshot(_ *model.PoolSnapshot) error { return nil }
func (n *NoopRecorder) History(_ model.Address, _ int) ([]model.LedgerEvent, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
