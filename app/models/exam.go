package models

import "time"

// Exam is created by a teacher for one of the subjects they teach.
type Exam struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Title       string    `json:"title" gorm:"not null"`
	Content     string    `json:"content" gorm:"not null"`
	SubjectID   string    `json:"subject_id" gorm:"not null;index;type:uuid"`
	SubjectName string    `json:"subject_name,omitempty" gorm:"-"`
	CreatedBy   string    `json:"created_by" gorm:"not null;index;type:uuid;constraint:OnDelete:RESTRICT"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
