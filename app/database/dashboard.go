package database

import (
	"context"

	"github.com/hungnqdz/exam-management/app/models"
)

const queryDashboardStats = `SELECT
		(SELECT COUNT(*) FROM accounts WHERE role = 'Teacher'),
		(SELECT COUNT(*) FROM accounts WHERE role = 'Student'),
		(SELECT COUNT(*) FROM exams),
		(SELECT COUNT(*) FROM submissions),
		(SELECT COUNT(*) FROM submissions WHERE score IS NULL)`

// GetDashboardStats returns statistics for the admin dashboard
func (s *Store) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}
	err := s.db.QueryRowContext(ctx, queryDashboardStats).Scan(
		&stats.Teachers, &stats.Students, &stats.Exams, &stats.Submissions, &stats.Ungraded)
	if err != nil {
		return nil, mapError(err, "dashboard")
	}
	return stats, nil
}
