package mapper

import (
	"encoding/json"

	"assessment-sync-be/internal/entity"
	"assessment-sync-be/internal/model"

	"gorm.io/datatypes"
)

type ScoreMapper struct{}

func NewScoreMapper() *ScoreMapper {
	return &ScoreMapper{}
}

func (m *ScoreMapper) ToEntity(s *model.Score) *entity.Score {
	if s == nil {
		return nil
	}

	var feedback map[string]interface{}
	if len(s.Feedback) > 0 {
		// Tolerate malformed stored JSON rather than failing the read.
		_ = json.Unmarshal(s.Feedback, &feedback)
	}

	return &entity.Score{
		Id:           s.Id,
		AssessmentId: s.AssessmentId,
		OutcomeId:    s.OutcomeId,
		Value:        s.Value,
		Feedback:     feedback,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    optionalTime(s.UpdatedAt),
	}
}

func (m *ScoreMapper) ToEntities(models []*model.Score) []*entity.Score {
	entities := make([]*entity.Score, 0, len(models))
	for _, s := range models {
		entities = append(entities, m.ToEntity(s))
	}
	return entities
}

func (m *ScoreMapper) ToModel(s *entity.Score) *model.Score {
	if s == nil {
		return nil
	}

	out := &model.Score{
		Id:           s.Id,
		AssessmentId: s.AssessmentId,
		OutcomeId:    s.OutcomeId,
		Value:        s.Value,
		CreatedAt:    s.CreatedAt,
	}
	if s.UpdatedAt != nil {
		out.UpdatedAt = *s.UpdatedAt
	}
	if s.Feedback != nil {
		if data, err := json.Marshal(s.Feedback); err == nil {
			out.Feedback = datatypes.JSON(data)
		}
	}
	return out
}
