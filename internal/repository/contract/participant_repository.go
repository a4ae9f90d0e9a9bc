package contract

import (
	"context"

	"assessment-sync-be/internal/entity"
	"assessment-sync-be/internal/repository/specification"
)

type ParticipantRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Participant, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Participant, error)
}
