package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Score struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AssessmentId uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_scores_assessment_outcome"`
	OutcomeId    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_scores_assessment_outcome"`
	Value        int            `gorm:"not null"`
	Feedback     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
}

func (Score) TableName() string {
	return "scores"
}
