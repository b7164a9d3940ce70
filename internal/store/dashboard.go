package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sidukcapil/apiserver/types"
)

// DashboardRepository computes read-only rollups over the other stores.
type DashboardRepository struct {
	db *sql.DB
}

func NewDashboardRepository(db *sql.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Counts holds the headline numbers shown on the admin dashboard.
type Counts struct {
	TotalPopulation      int
	TotalApplications    int
	PendingApplications  int
	ApprovedApplications int
	RejectedApplications int
	DocumentsUploaded    int
	DocumentsValidated   int
}

func (r *DashboardRepository) Counts(ctx context.Context) (Counts, error) {
	const query = `
		SELECT
			(SELECT COUNT(1) FROM population),
			(SELECT COUNT(1) FROM applications),
			(SELECT COUNT(1) FROM applications WHERE status IN ('SUBMITTED', 'PROCESSING')),
			(SELECT COUNT(1) FROM applications WHERE status = 'APPROVED'),
			(SELECT COUNT(1) FROM applications WHERE status = 'REJECTED'),
			(SELECT COUNT(1) FROM documents),
			(SELECT COUNT(1) FROM documents WHERE is_validated)`
	var c Counts
	err := r.db.QueryRowContext(ctx, query).Scan(
		&c.TotalPopulation,
		&c.TotalApplications,
		&c.PendingApplications,
		&c.ApprovedApplications,
		&c.RejectedApplications,
		&c.DocumentsUploaded,
		&c.DocumentsValidated,
	)
	if err != nil {
		return Counts{}, err
	}
	return c, nil
}

func (r *DashboardRepository) RecentApplications(ctx context.Context, limit int) ([]types.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications ORDER BY created_at DESC LIMIT $1`, applicationColumns)
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applications := make([]types.Application, 0, limit)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		applications = append(applications, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return applications, nil
}

func (r *DashboardRepository) ApplicationCountsByType(ctx context.Context) (map[types.ApplicationType]int, error) {
	const query = `SELECT application_type, COUNT(1) FROM applications GROUP BY application_type`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[types.ApplicationType]int)
	for rows.Next() {
		var appType types.ApplicationType
		var count int
		if err := rows.Scan(&appType, &count); err != nil {
			return nil, err
		}
		counts[appType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *DashboardRepository) PopulationCountsByRegion(ctx context.Context) (map[string]int, error) {
	const query = `SELECT kabupaten, COUNT(1) FROM population GROUP BY kabupaten`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kabupaten string
		var count int
		if err := rows.Scan(&kabupaten, &count); err != nil {
			return nil, err
		}
		counts[kabupaten] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
