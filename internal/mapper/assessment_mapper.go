package mapper

import (
	"time"

	"assessment-sync-be/internal/entity"
	"assessment-sync-be/internal/model"
)

type AssessmentMapper struct{}

func NewAssessmentMapper() *AssessmentMapper {
	return &AssessmentMapper{}
}

func (m *AssessmentMapper) ToEntity(a *model.Assessment) *entity.Assessment {
	if a == nil {
		return nil
	}

	return &entity.Assessment{
		Id:            a.Id,
		CourseId:      a.CourseId,
		ParticipantId: a.ParticipantId,
		AssessorId:    a.AssessorId,
		Status:        a.Status,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     optionalTime(a.UpdatedAt),
	}
}

func (m *AssessmentMapper) ToEntities(models []*model.Assessment) []*entity.Assessment {
	entities := make([]*entity.Assessment, 0, len(models))
	for _, a := range models {
		entities = append(entities, m.ToEntity(a))
	}
	return entities
}

func (m *AssessmentMapper) ToModel(a *entity.Assessment) *model.Assessment {
	if a == nil {
		return nil
	}

	out := &model.Assessment{
		Id:            a.Id,
		CourseId:      a.CourseId,
		ParticipantId: a.ParticipantId,
		AssessorId:    a.AssessorId,
		Status:        a.Status,
		CreatedAt:     a.CreatedAt,
	}
	if a.UpdatedAt != nil {
		out.UpdatedAt = *a.UpdatedAt
	}
	return out
}

func (m *AssessmentMapper) OverallToEntity(f *model.OverallFeedback) *entity.OverallFeedback {
	if f == nil {
		return nil
	}

	return &entity.OverallFeedback{
		Id:           f.Id,
		AssessmentId: f.AssessmentId,
		Summary:      f.Summary,
		Rating:       f.Rating,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    optionalTime(f.UpdatedAt),
	}
}

func (m *AssessmentMapper) OverallToModel(f *entity.OverallFeedback) *model.OverallFeedback {
	if f == nil {
		return nil
	}

	out := &model.OverallFeedback{
		Id:           f.Id,
		AssessmentId: f.AssessmentId,
		Summary:      f.Summary,
		Rating:       f.Rating,
		CreatedAt:    f.CreatedAt,
	}
	if f.UpdatedAt != nil {
		out.UpdatedAt = *f.UpdatedAt
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	cp := t
	return &cp
}
