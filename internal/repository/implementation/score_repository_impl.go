package implementation

import (
	"context"

	"assessment-sync-be/internal/entity"
	"assessment-sync-be/internal/mapper"
	"assessment-sync-be/internal/model"
	"assessment-sync-be/internal/repository/contract"
	"assessment-sync-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScoreRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ScoreMapper
}

func NewScoreRepository(db *gorm.DB) contract.ScoreRepository {
	return &ScoreRepositoryImpl{
		db:     db,
		mapper: mapper.NewScoreMapper(),
	}
}

func (r *ScoreRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ScoreRepositoryImpl) Upsert(ctx context.Context, score *entity.Score) error {
	m := r.mapper.ToModel(score)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "assessment_id"}, {Name: "outcome_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "feedback", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*score = *r.mapper.ToEntity(m)
	return nil
}

func (r *ScoreRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Score, error) {
	var models []*model.Score
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ScoreRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Score{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
