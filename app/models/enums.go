package models

import "strings"

// Role is the single role an account holds.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleTeacher Role = "Teacher"
	RoleStudent Role = "Student"
)

// ParseRole accepts the canonical names case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "teacher":
		return RoleTeacher, true
	case "student":
		return RoleStudent, true
	}
	return "", false
}

// Gender defines the possible gender values for an account.
type Gender string

const (
	Male   Gender = "Male"
	Female Gender = "Female"
	Other  Gender = "Other"
)

// ParseGender falls back to Other for unknown values.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return Male
	case "female":
		return Female
	}
	return Other
}
