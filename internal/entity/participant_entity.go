package entity

import (
	"time"

	"github.com/google/uuid"
)

type Participant struct {
	Id        uuid.UUID
	CourseId  uuid.UUID
	FullName  string
	CreatedAt time.Time
	UpdatedAt *time.Time
}
