package types

import "time"

// AuditLog is a single append-only record of who did what.
// Rows are written as a side effect of mutating operations and are never
// updated or deleted.
type AuditLog struct {
	// ID is the unique identifier of the log entry.
	ID int `json:"id" db:"id"`

	// UserID is the id of the user who performed the action.
	UserID int `json:"user_id" db:"user_id"`

	// Action is the short verb describing the operation, e.g. "CREATE".
	Action string `json:"action" db:"action"`

	// TableName is the table the action mutated.
	TableName string `json:"table_name" db:"table_name"`

	// RecordID is the primary key of the affected row, when known.
	RecordID *int `json:"record_id" db:"record_id"`

	// OldValues and NewValues are optional opaque snapshots of the row
	// before and after the mutation.
	OldValues map[string]any `json:"old_values" db:"old_values"`
	NewValues map[string]any `json:"new_values" db:"new_values"`

	// IPAddress is the client address the request originated from.
	IPAddress *string `json:"ip_address" db:"ip_address"`

	// UserAgent is the client user-agent string.
	UserAgent *string `json:"user_agent" db:"user_agent"`

	// CreatedAt is the timestamp when the entry was written.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
