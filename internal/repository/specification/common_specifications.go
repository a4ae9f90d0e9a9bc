package specification

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByID filters by ID
type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// ByParticipantID filters assessment rows by participant
type ByParticipantID struct {
	ParticipantID uuid.UUID
}

func (s ByParticipantID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("participant_id = ?", s.ParticipantID)
}

// ByAssessmentID filters score/feedback rows by owning assessment
type ByAssessmentID struct {
	AssessmentID uuid.UUID
}

func (s ByAssessmentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("assessment_id = ?", s.AssessmentID)
}

// ByCourseID filters by course scope
type ByCourseID struct {
	CourseID uuid.UUID
}

func (s ByCourseID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("course_id = ?", s.CourseID)
}

// OrderBy applies ordering
type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	return db.Order(fmt.Sprintf("%s %s", s.Field, direction))
}

// Pagination
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}
