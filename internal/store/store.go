package store

import "github.com/yourorg/apicheck/pkg/types"

// Store keeps the history of finished runs.
type Store interface {
	SaveRun(rep *types.RunReport) (string, error)
	GetRun(id string) (*types.RunReport, error)
	ListRuns() ([]types.RunSummary, error)
	DeleteRun(id string) error

	Close() error
}

var _ Store = (*SQLiteStore)(nil)
