// Package store persists an audit trail of analysis runs. Two drivers exist:
// SQLite for single-machine use and Postgres for shared deployments.
package store

import (
	"context"

	"github.com/prepforge/prepforge/internal/model"
)

// Filter specifies criteria for listing analysis records.
type Filter struct {
	Mode   model.Mode           `json:"mode,omitempty"`
	Status model.AnalysisStatus `json:"status,omitempty"`
	Limit  int                  `json:"limit,omitempty"`
	Offset int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis history.
type Store interface {
	RecordAnalysis(ctx context.Context, rec *model.AnalysisRecord) error
	RecordBatch(ctx context.Context, recs []model.AnalysisRecord) (int64, error)
	GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error)
	ListAnalyses(ctx context.Context, filter Filter) ([]model.AnalysisRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
