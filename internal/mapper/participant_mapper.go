package mapper

import (
	"assessment-sync-be/internal/entity"
	"assessment-sync-be/internal/model"
)

type ParticipantMapper struct{}

func NewParticipantMapper() *ParticipantMapper {
	return &ParticipantMapper{}
}

func (m *ParticipantMapper) ToEntity(p *model.Participant) *entity.Participant {
	if p == nil {
		return nil
	}

	return &entity.Participant{
		Id:        p.Id,
		CourseId:  p.CourseId,
		FullName:  p.FullName,
		CreatedAt: p.CreatedAt,
		UpdatedAt: optionalTime(p.UpdatedAt),
	}
}

func (m *ParticipantMapper) ToEntities(models []*model.Participant) []*entity.Participant {
	entities := make([]*entity.Participant, 0, len(models))
	for _, p := range models {
		entities = append(entities, m.ToEntity(p))
	}
	return entities
}

func (m *ParticipantMapper) ToModel(p *entity.Participant) *model.Participant {
	if p == nil {
		return nil
	}

	out := &model.Participant{
		Id:        p.Id,
		CourseId:  p.CourseId,
		FullName:  p.FullName,
		CreatedAt: p.CreatedAt,
	}
	if p.UpdatedAt != nil {
		out.UpdatedAt = *p.UpdatedAt
	}
	return out
}
