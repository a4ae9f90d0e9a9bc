package model

import (
	"time"

	"github.com/google/uuid"
)

type Participant struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CourseId  uuid.UUID `gorm:"type:uuid;not null;index"`
	FullName  string    `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Participant) TableName() string {
	return "participants"
}
