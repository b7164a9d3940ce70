package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sidukcapil/apiserver/types"
)

// DocumentRepository handles persistence for document metadata.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, population_id, document_type, document_number, file_path,
	file_name, file_size, mime_type, is_validated, validated_by, validated_at,
	uploaded_by, created_at`

func scanDocument(row interface{ Scan(...any) error }) (types.Document, error) {
	var d types.Document
	err := row.Scan(
		&d.ID,
		&d.PopulationID,
		&d.DocumentType,
		&d.DocumentNumber,
		&d.FilePath,
		&d.FileName,
		&d.FileSize,
		&d.MimeType,
		&d.IsValidated,
		&d.ValidatedBy,
		&d.ValidatedAt,
		&d.UploadedBy,
		&d.CreatedAt,
	)
	return d, err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int) (types.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1`, documentColumns)
	d, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Document{}, ErrNotFound
		}
		return types.Document{}, err
	}
	return d, nil
}

func (r *DocumentRepository) ListByPopulation(ctx context.Context, populationID int) ([]types.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE population_id = $1 ORDER BY id`, documentColumns)
	rows, err := r.db.QueryContext(ctx, query, populationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	documents := make([]types.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return documents, nil
}

func (r *DocumentRepository) Create(ctx context.Context, d types.Document) (types.Document, error) {
	d.CreatedAt = time.Now()

	const query = `
		INSERT INTO documents (
			population_id, document_type, document_number, file_path, file_name,
			file_size, mime_type, is_validated, validated_by, validated_at,
			uploaded_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		d.PopulationID,
		d.DocumentType,
		d.DocumentNumber,
		d.FilePath,
		d.FileName,
		d.FileSize,
		d.MimeType,
		d.IsValidated,
		d.ValidatedBy,
		d.ValidatedAt,
		d.UploadedBy,
		d.CreatedAt,
	).Scan(&d.ID); err != nil {
		return types.Document{}, err
	}
	return d, nil
}

// SetValidation overwrites the validation attestation on a document.
// It is re-invocable; a later call replaces the previous state.
func (r *DocumentRepository) SetValidation(ctx context.Context, id int, isValidated bool, validatedBy int, validatedAt time.Time) (types.Document, error) {
	const query = `
		UPDATE documents
		SET is_validated = $1,
			validated_by = $2,
			validated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, isValidated, validatedBy, validatedAt, id)
	if err != nil {
		return types.Document{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Document{}, err
	}
	if affected == 0 {
		return types.Document{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *DocumentRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM documents WHERE id = $1`
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

// CountByPopulation reports how many documents reference a citizen record.
// Used as the referential guard before population deletion.
func (r *DocumentRepository) CountByPopulation(ctx context.Context, populationID int) (int, error) {
	const query = `SELECT COUNT(1) FROM documents WHERE population_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, populationID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
