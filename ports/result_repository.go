package ports

import (
	"context"

	"gogrowth/domain/core"
	"gogrowth/models"
)

// ResultRepository persists per-strain analysis summaries for later retrieval
type ResultRepository interface {
	SaveSummary(ctx context.Context, runID core.RunID, summary *models.StrainSummary) error
	ListSummaries(ctx context.Context, runID core.RunID) ([]models.StrainSummary, error)
}
