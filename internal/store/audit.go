package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sidukcapil/apiserver/types"
)

// AuditLogRepository handles persistence for the append-only audit trail.
type AuditLogRepository struct {
	db *sql.DB
}

func NewAuditLogRepository(db *sql.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, entry types.AuditLog) (types.AuditLog, error) {
	entry.CreatedAt = time.Now()

	oldJSON, err := marshalNullable(entry.OldValues)
	if err != nil {
		return types.AuditLog{}, err
	}
	newJSON, err := marshalNullable(entry.NewValues)
	if err != nil {
		return types.AuditLog{}, err
	}

	const query = `
		INSERT INTO audit_logs (
			user_id, action, table_name, record_id, old_values, new_values,
			ip_address, user_agent, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		entry.UserID,
		entry.Action,
		entry.TableName,
		entry.RecordID,
		oldJSON,
		newJSON,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Scan(&entry.ID); err != nil {
		return types.AuditLog{}, err
	}
	return entry, nil
}

// List returns audit entries newest first. When userID is non-zero, only
// that user's entries are returned.
func (r *AuditLogRepository) List(ctx context.Context, userID, offset, limit int) ([]types.AuditLog, int, error) {
	where := ""
	countArgs := []any{}
	if userID != 0 {
		where = " WHERE user_id = $1"
		countArgs = append(countArgs, userID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM audit_logs"+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args := append(countArgs, offset, limit)
	listQuery := `
		SELECT id, user_id, action, table_name, record_id, old_values, new_values,
		       ip_address, user_agent, created_at
		FROM audit_logs` + where
	if userID != 0 {
		listQuery += ` ORDER BY created_at DESC OFFSET $2 LIMIT $3`
	} else {
		listQuery += ` ORDER BY created_at DESC OFFSET $1 LIMIT $2`
	}

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]types.AuditLog, 0, limit)
	for rows.Next() {
		var entry types.AuditLog
		var oldJSON, newJSON []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Action,
			&entry.TableName,
			&entry.RecordID,
			&oldJSON,
			&newJSON,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal(oldJSON, &entry.OldValues)
		_ = json.Unmarshal(newJSON, &entry.NewValues)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func marshalNullable(values map[string]any) (any, error) {
	if values == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return data, nil
}
