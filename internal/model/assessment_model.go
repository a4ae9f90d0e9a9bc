package model

import (
	"time"

	"github.com/google/uuid"
)

type Assessment struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CourseId      uuid.UUID `gorm:"type:uuid;not null;index"`
	ParticipantId uuid.UUID `gorm:"type:uuid;not null;index"`
	AssessorId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Status        string    `gorm:"type:varchar(32);not null;default:'draft'"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (Assessment) TableName() string {
	return "assessments"
}

type OverallFeedback struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AssessmentId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Summary      string    `gorm:"type:text"`
	Rating       int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (OverallFeedback) TableName() string {
	return "overall_feedbacks"
}
