package models

// Subject is static reference data seeded by migrations.
type Subject struct {
	ID   string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

// Enrollment ties an account to a subject. Standing records whether the
// account teaches the subject or studies it.
type Enrollment struct {
	AccountID string   `json:"account_id" gorm:"primaryKey;not null;type:uuid"`
	SubjectID string   `json:"subject_id" gorm:"primaryKey;not null;type:uuid"`
	Standing  Role     `json:"standing" gorm:"not null"`
	Account   *Account `json:"account,omitempty" gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE"`
	Subject   *Subject `json:"subject,omitempty" gorm:"foreignKey:SubjectID;references:ID;constraint:OnDelete:CASCADE"`
}
