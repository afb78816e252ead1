package models

import (
	"encoding/json"
	"time"
)

// Submission is a student's uploaded answer to an exam. At most one exists
// per (exam, student) pair.
type Submission struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ExamID       string    `json:"exam_id" gorm:"uniqueIndex:uq_submission_exam_student;not null;type:uuid"`
	StudentID    string    `json:"student_id" gorm:"uniqueIndex:uq_submission_exam_student;not null;type:uuid;constraint:OnDelete:RESTRICT"`
	FileName     string    `json:"file_name" gorm:"uniqueIndex;not null"`
	OriginalName string    `json:"original_name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	SubmittedAt  time.Time `json:"submitted_at" gorm:"autoCreateTime"`
	Score        *float64  `json:"score,omitempty" gorm:"check:score >= 0 AND score <= 10"`
	GradedBy     *string   `json:"graded_by,omitempty" gorm:"type:uuid;constraint:OnDelete:RESTRICT"`

	// Joined for display and authorization.
	StudentName string `json:"student_name,omitempty" gorm:"-"`
	SubjectID   string `json:"subject_id,omitempty" gorm:"-"`
	ExamTitle   string `json:"exam_title,omitempty" gorm:"-"`
}

// URL is the mediated retrieval path for the stored file.
func (s *Submission) URL() string {
	return "/Files/Submission/" + s.FileName
}

func (s *Submission) Graded() bool { return s.Score != nil }

// MarshalJSON adds the retrieval URL to the stored fields.
func (s Submission) MarshalJSON() ([]byte, error) {
	type fields Submission
	return json.Marshal(struct {
		fields
		URL string `json:"url"`
	}{fields(s), s.URL()})
}
