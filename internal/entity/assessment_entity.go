package entity

import (
	"time"

	"github.com/google/uuid"
)

type Assessment struct {
	Id            uuid.UUID
	CourseId      uuid.UUID
	ParticipantId uuid.UUID
	AssessorId    uuid.UUID
	Status        string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// OverallFeedback is the single summary verdict per assessment.
type OverallFeedback struct {
	Id           uuid.UUID
	AssessmentId uuid.UUID
	Summary      string
	Rating       int
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
