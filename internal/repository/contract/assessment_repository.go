package contract

import (
	"context"

	"assessment-sync-be/internal/entity"
	"assessment-sync-be/internal/repository/specification"

	"github.com/google/uuid"
)

type AssessmentRepository interface {
	Create(ctx context.Context, assessment *entity.Assessment) error
	Update(ctx context.Context, assessment *entity.Assessment) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Assessment, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Assessment, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type OverallFeedbackRepository interface {
	// Upsert keys on assessment_id so replaying a feedback save is idempotent.
	Upsert(ctx context.Context, feedback *entity.OverallFeedback) error
	FindByAssessmentId(ctx context.Context, assessmentId uuid.UUID) (*entity.OverallFeedback, error)
}
