package services

import (
	"context"

	"github.com/sidukcapil/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo  UserRepository
	audit AuditRecorder
}

func NewUserService(repo UserRepository, audit AuditRecorder) *UserService {
	return &UserService{repo: repo, audit: audit}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	s.audit.Record(ctx, types.AuditLog{
		UserID:    created.ID,
		Action:    "REGISTER",
		TableName: "users",
		RecordID:  &created.ID,
	})
	return created, nil
}

// Deactivate disables an account so it can no longer authenticate.
// The row is kept; users are never hard-deleted.
func (s *UserService) Deactivate(ctx context.Context, id, actorID int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	user.IsActive = false
	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	s.audit.Record(ctx, types.AuditLog{
		UserID:    actorID,
		Action:    "DEACTIVATE",
		TableName: "users",
		RecordID:  &updated.ID,
	})
	return updated, nil
}
