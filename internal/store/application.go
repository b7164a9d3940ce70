package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sidukcapil/apiserver/types"
)

// ApplicationRepository handles persistence for service applications.
type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `id, application_number, application_type, applicant_id,
	population_id, status, application_data, notes, processed_by, processed_at,
	created_at, updated_at`

func scanApplication(row interface{ Scan(...any) error }) (types.Application, error) {
	var a types.Application
	var data []byte
	err := row.Scan(
		&a.ID,
		&a.ApplicationNumber,
		&a.ApplicationType,
		&a.ApplicantID,
		&a.PopulationID,
		&a.Status,
		&data,
		&a.Notes,
		&a.ProcessedBy,
		&a.ProcessedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	a.ApplicationData = data
	return a, err
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id int) (types.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE id = $1`, applicationColumns)
	a, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Application{}, ErrNotFound
		}
		return types.Application{}, err
	}
	return a, nil
}

// List returns applications matching the query, newest first, together with
// the total number of matches independent of the pagination window.
func (r *ApplicationRepository) List(ctx context.Context, query types.ApplicationQuery, offset, limit int) ([]types.Application, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]any, 0, 5)

	if query.Status != "" {
		args = append(args, query.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if query.ApplicationType != "" {
		args = append(args, query.ApplicationType)
		conditions = append(conditions, fmt.Sprintf("application_type = $%d", len(args)))
	}
	if query.ApplicantID != 0 {
		args = append(args, query.ApplicantID)
		conditions = append(conditions, fmt.Sprintf("applicant_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(1) FROM applications" + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, offset, limit)
	listQuery := fmt.Sprintf(
		`SELECT %s FROM applications%s ORDER BY created_at DESC OFFSET $%d LIMIT $%d`,
		applicationColumns, where, len(args)-1, len(args),
	)
	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	applications := make([]types.Application, 0, limit)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		applications = append(applications, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return applications, total, nil
}

func (r *ApplicationRepository) Create(ctx context.Context, a types.Application) (types.Application, error) {
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	const query = `
		INSERT INTO applications (
			application_number, application_type, applicant_id, population_id,
			status, application_data, notes, processed_by, processed_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		a.ApplicationNumber,
		a.ApplicationType,
		a.ApplicantID,
		a.PopulationID,
		a.Status,
		[]byte(a.ApplicationData),
		a.Notes,
		a.ProcessedBy,
		a.ProcessedAt,
		a.CreatedAt,
		a.UpdatedAt,
	).Scan(&a.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Application{}, ErrDuplicateKey
		}
		return types.Application{}, err
	}
	return a, nil
}

func (r *ApplicationRepository) Update(ctx context.Context, a types.Application) (types.Application, error) {
	a.UpdatedAt = time.Now()

	const query = `
		UPDATE applications
		SET status = $1,
			notes = $2,
			processed_by = $3,
			processed_at = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		a.Status,
		a.Notes,
		a.ProcessedBy,
		a.ProcessedAt,
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return types.Application{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Application{}, err
	}
	if affected == 0 {
		return types.Application{}, ErrNotFound
	}
	return a, nil
}

func (r *ApplicationRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM applications WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByPopulation reports how many applications reference a citizen record.
// Used as the referential guard before population deletion.
func (r *ApplicationRepository) CountByPopulation(ctx context.Context, populationID int) (int, error) {
	const query = `SELECT COUNT(1) FROM applications WHERE population_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, populationID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
