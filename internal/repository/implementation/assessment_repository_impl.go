package implementation

import (
	"context"
	"errors"

	"assessment-sync-be/internal/entity"
	"assessment-sync-be/internal/mapper"
	"assessment-sync-be/internal/model"
	"assessment-sync-be/internal/repository/contract"
	"assessment-sync-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssessmentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AssessmentMapper
}

func NewAssessmentRepository(db *gorm.DB) contract.AssessmentRepository {
	return &AssessmentRepositoryImpl{
		db:     db,
		mapper: mapper.NewAssessmentMapper(),
	}
}

func (r *AssessmentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AssessmentRepositoryImpl) Create(ctx context.Context, assessment *entity.Assessment) error {
	m := r.mapper.ToModel(assessment)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*assessment = *r.mapper.ToEntity(m)
	return nil
}

func (r *AssessmentRepositoryImpl) Update(ctx context.Context, assessment *entity.Assessment) error {
	m := r.mapper.ToModel(assessment)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*assessment = *r.mapper.ToEntity(m)
	return nil
}

func (r *AssessmentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Assessment, error) {
	var m model.Assessment
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AssessmentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Assessment, error) {
	var models []*model.Assessment
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *AssessmentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Assessment{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type OverallFeedbackRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AssessmentMapper
}

func NewOverallFeedbackRepository(db *gorm.DB) contract.OverallFeedbackRepository {
	return &OverallFeedbackRepositoryImpl{
		db:     db,
		mapper: mapper.NewAssessmentMapper(),
	}
}

func (r *OverallFeedbackRepositoryImpl) Upsert(ctx context.Context, feedback *entity.OverallFeedback) error {
	m := r.mapper.OverallToModel(feedback)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "assessment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"summary", "rating", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*feedback = *r.mapper.OverallToEntity(m)
	return nil
}

func (r *OverallFeedbackRepositoryImpl) FindByAssessmentId(ctx context.Context, assessmentId uuid.UUID) (*entity.OverallFeedback, error) {
	var m model.OverallFeedback
	err := r.db.WithContext(ctx).Where("assessment_id = ?", assessmentId).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.OverallToEntity(&m), nil
}
