package implementation

import (
	"context"
	"errors"

	"assessment-sync-be/internal/entity"
	"assessment-sync-be/internal/mapper"
	"assessment-sync-be/internal/model"
	"assessment-sync-be/internal/repository/contract"
	"assessment-sync-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ParticipantRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ParticipantMapper
}

func NewParticipantRepository(db *gorm.DB) contract.ParticipantRepository {
	return &ParticipantRepositoryImpl{
		db:     db,
		mapper: mapper.NewParticipantMapper(),
	}
}

func (r *ParticipantRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ParticipantRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Participant, error) {
	var m model.Participant
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ParticipantRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Participant, error) {
	var models []*model.Participant
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
