package services

import (
	"context"
	"log/slog"

	"github.com/sidukcapil/apiserver/types"
)

// AuditLogRepository defines persistence operations for audit entries.
type AuditLogRepository interface {
	Create(ctx context.Context, entry types.AuditLog) (types.AuditLog, error)
	List(ctx context.Context, userID, offset, limit int) ([]types.AuditLog, int, error)
}

// AuditRecorder is the write side of the audit sink as seen by the other
// services. Implementations must never fail the caller.
type AuditRecorder interface {
	Record(ctx context.Context, entry types.AuditLog)
}

// AuditService appends who-did-what entries and serves the read side for
// administrators.
type AuditService struct {
	repo AuditLogRepository
}

func NewAuditService(repo AuditLogRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Record appends an audit entry. A failed write is logged and swallowed so
// that audit problems never block the user-facing action.
func (s *AuditService) Record(ctx context.Context, entry types.AuditLog) {
	if ip, ua, ok := RequestMetaFromContext(ctx); ok {
		if entry.IPAddress == nil && ip != "" {
			entry.IPAddress = &ip
		}
		if entry.UserAgent == nil && ua != "" {
			entry.UserAgent = &ua
		}
	}
	if _, err := s.repo.Create(ctx, entry); err != nil {
		slog.Warn("audit log write failed",
			"action", entry.Action,
			"table", entry.TableName,
			"user_id", entry.UserID,
			"error", err,
		)
	}
}

func (s *AuditService) List(ctx context.Context, page, limit int) ([]types.AuditLog, int, error) {
	offset, limit := normalizePage(page, limit)
	return s.repo.List(ctx, 0, offset, limit)
}

func (s *AuditService) ListByUser(ctx context.Context, userID, page, limit int) ([]types.AuditLog, int, error) {
	offset, limit := normalizePage(page, limit)
	return s.repo.List(ctx, userID, offset, limit)
}

type requestMetaKey struct{}

type requestMeta struct {
	ip        string
	userAgent string
}

// WithRequestMeta attaches the client address and user agent to the context
// so audit entries written further down the stack can carry them.
func WithRequestMeta(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, requestMeta{ip: ip, userAgent: userAgent})
}

// RequestMetaFromContext returns the client address and user agent attached
// by WithRequestMeta, if any.
func RequestMetaFromContext(ctx context.Context) (ip, userAgent string, ok bool) {
	meta, ok := ctx.Value(requestMetaKey{}).(requestMeta)
	return meta.ip, meta.userAgent, ok
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func normalizePage(page, limit int) (offset, normalized int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return (page - 1) * limit, limit
}
