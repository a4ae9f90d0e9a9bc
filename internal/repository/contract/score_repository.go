package contract

import (
	"context"

	"assessment-sync-be/internal/entity"
	"assessment-sync-be/internal/repository/specification"
)

type ScoreRepository interface {
	// Upsert keys on (assessment_id, outcome_id). Replaying the same score —
	// including a duplicate replay after a partial failure — converges on one
	// row, which is what makes client-side retries safe.
	Upsert(ctx context.Context, score *entity.Score) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Score, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
