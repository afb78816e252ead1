package models

// DashboardStats summarizes the system for the admin dashboard.
type DashboardStats struct {
	Teachers    int `json:"teachers"`
	Students    int `json:"students"`
	Exams       int `json:"exams"`
	Submissions int `json:"submissions"`
	Ungraded    int `json:"ungraded"`
}
