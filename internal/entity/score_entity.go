package entity

import (
	"time"

	"github.com/google/uuid"
)

// Score is one graded outcome within an assessment. (assessment, outcome) is
// the natural key: saving the same pair twice must land on the same row.
type Score struct {
	Id           uuid.UUID
	AssessmentId uuid.UUID
	OutcomeId    uuid.UUID
	Value        int
	Feedback     map[string]interface{}
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
