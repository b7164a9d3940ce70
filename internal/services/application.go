package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sidukcapil/apiserver/internal/store"
	"github.com/sidukcapil/apiserver/types"
)

// ApplicationRepository defines persistence operations for applications.
type ApplicationRepository interface {
	GetByID(ctx context.Context, id int) (types.Application, error)
	List(ctx context.Context, query types.ApplicationQuery, offset, limit int) ([]types.Application, int, error)
	Create(ctx context.Context, app types.Application) (types.Application, error)
	Update(ctx context.Context, app types.Application) (types.Application, error)
	Delete(ctx context.Context, id int) error
}

// PopulationFinder resolves citizen records referenced by applications.
type PopulationFinder interface {
	GetByID(ctx context.Context, id int) (types.Population, error)
}

// statusTransitions is the full transition table of the application
// lifecycle. DRAFT->SUBMITTED is reachable only through Submit; everything
// a staff member can do goes through UpdateStatus, which consults this
// table before mutating. APPROVED and REJECTED have no outgoing edges.
var statusTransitions = map[types.ApplicationStatus][]types.ApplicationStatus{
	types.StatusDraft:      {types.StatusSubmitted},
	types.StatusSubmitted:  {types.StatusProcessing, types.StatusRejected},
	types.StatusProcessing: {types.StatusApproved},
}

// CanTransition reports whether the lifecycle permits moving an
// application from one status to another.
func CanTransition(from, to types.ApplicationStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// processingRoles are the roles allowed to move applications through the
// staff-side transitions.
var processingRoles = map[types.UserRole]bool{
	types.RoleSuperAdmin: true,
	types.RoleAdmin:      true,
	types.RolePetugas:    true,
}

// CanProcessApplications reports whether a role may change application
// status on behalf of the office.
func CanProcessApplications(role types.UserRole) bool {
	return processingRoles[role]
}

// CreateApplicationInput is the payload for creating an application.
// ApplicationData is opaque to the engine: it is stored and returned
// byte-identical, and its keys are a concern of the presentation layer.
type CreateApplicationInput struct {
	ApplicationType types.ApplicationType `json:"application_type"`
	PopulationID    *int                  `json:"population_id"`
	ApplicationData json.RawMessage       `json:"application_data"`
	Notes           *string               `json:"notes"`
}

// ApplicationService owns the application entity, its status state
// machine, and the authorization policy gating each transition.
type ApplicationService struct {
	repo        ApplicationRepository
	populations PopulationFinder
	audit       AuditRecorder
	notifier    *Notifier
}

func NewApplicationService(repo ApplicationRepository, populations PopulationFinder, audit AuditRecorder, notifier *Notifier) *ApplicationService {
	return &ApplicationService{
		repo:        repo,
		populations: populations,
		audit:       audit,
		notifier:    notifier,
	}
}

// Create opens a new application in DRAFT for the given applicant. When a
// citizen record is referenced it must exist; the reference is not
// otherwise enforced afterwards.
func (s *ApplicationService) Create(ctx context.Context, input CreateApplicationInput, applicantID int) (types.Application, error) {
	if input.PopulationID != nil {
		if _, err := s.populations.GetByID(ctx, *input.PopulationID); err != nil {
			return types.Application{}, fmt.Errorf("population record: %w", err)
		}
	}

	data := input.ApplicationData
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	app := types.Application{
		ApplicationNumber: newApplicationNumber(),
		ApplicationType:   input.ApplicationType,
		ApplicantID:       applicantID,
		PopulationID:      input.PopulationID,
		Status:            types.StatusDraft,
		ApplicationData:   data,
		Notes:             input.Notes,
	}

	created, err := s.repo.Create(ctx, app)
	if err != nil {
		return types.Application{}, err
	}

	s.audit.Record(ctx, types.AuditLog{
		UserID:    applicantID,
		Action:    "CREATE",
		TableName: "applications",
		RecordID:  &created.ID,
		NewValues: map[string]any{
			"application_number": created.ApplicationNumber,
			"application_type":   string(created.ApplicationType),
			"status":             string(created.Status),
		},
	})
	s.notifier.ApplicationEvent(ctx, EventApplicationCreated, created)
	return created, nil
}

// Submit hands a draft application to the office. Only the owning
// applicant may submit; a non-owner gets the same not-found outcome as a
// missing application so existence is not leaked.
func (s *ApplicationService) Submit(ctx context.Context, id, actorID int) (types.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Application{}, err
	}
	if app.ApplicantID != actorID {
		return types.Application{}, store.ErrNotFound
	}
	if app.Status != types.StatusDraft {
		return types.Application{}, fmt.Errorf("only draft applications can be submitted: %w", ErrInvalidTransition)
	}

	oldStatus := app.Status
	app.Status = types.StatusSubmitted
	updated, err := s.repo.Update(ctx, app)
	if err != nil {
		return types.Application{}, err
	}

	s.audit.Record(ctx, types.AuditLog{
		UserID:    actorID,
		Action:    "SUBMIT",
		TableName: "applications",
		RecordID:  &updated.ID,
		OldValues: map[string]any{"status": string(oldStatus)},
		NewValues: map[string]any{"status": string(updated.Status)},
	})
	s.notifier.ApplicationEvent(ctx, EventApplicationSubmitted, updated)
	return updated, nil
}

// UpdateStatus moves an application through a staff-side transition. The
// actor must hold a processing role and the transition must be present in
// the lifecycle table; every legal target stamps the processor.
func (s *ApplicationService) UpdateStatus(ctx context.Context, id int, newStatus types.ApplicationStatus, actor types.User, notes *string) (types.Application, error) {
	if !CanProcessApplications(actor.Role) {
		return types.Application{}, ErrForbidden
	}
	if !newStatus.Valid() {
		return types.Application{}, fmt.Errorf("unknown status %q: %w", newStatus, ErrInvalidTransition)
	}

	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Application{}, err
	}
	if !CanTransition(app.Status, newStatus) {
		return types.Application{}, fmt.Errorf("cannot move application from %s to %s: %w", app.Status, newStatus, ErrInvalidTransition)
	}

	oldStatus := app.Status
	now := time.Now()
	app.Status = newStatus
	app.ProcessedBy = &actor.ID
	app.ProcessedAt = &now
	if notes != nil {
		app.Notes = notes
	}

	updated, err := s.repo.Update(ctx, app)
	if err != nil {
		return types.Application{}, err
	}

	s.audit.Record(ctx, types.AuditLog{
		UserID:    actor.ID,
		Action:    "UPDATE_STATUS",
		TableName: "applications",
		RecordID:  &updated.ID,
		OldValues: map[string]any{"status": string(oldStatus)},
		NewValues: map[string]any{"status": string(updated.Status)},
	})
	s.notifier.ApplicationEvent(ctx, EventApplicationProcessed, updated)
	return updated, nil
}

// Cancel withdraws an application before the office has picked it up and
// deletes the row. Only the owning applicant may cancel, and only while
// the application is still DRAFT or SUBMITTED.
func (s *ApplicationService) Cancel(ctx context.Context, id, actorID int) error {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if app.ApplicantID != actorID {
		return store.ErrNotFound
	}
	if app.Status != types.StatusDraft && app.Status != types.StatusSubmitted {
		return fmt.Errorf("cannot cancel application in current status: %w", ErrInvalidTransition)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, types.AuditLog{
		UserID:    actorID,
		Action:    "CANCEL",
		TableName: "applications",
		RecordID:  &id,
		OldValues: map[string]any{
			"application_number": app.ApplicationNumber,
			"status":             string(app.Status),
		},
	})
	s.notifier.ApplicationEvent(ctx, EventApplicationCancelled, app)
	return nil
}

func (s *ApplicationService) Get(ctx context.Context, id int) (types.Application, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ApplicationService) List(ctx context.Context, query types.ApplicationQuery) ([]types.Application, int, error) {
	offset, limit := normalizePage(query.Page, query.Limit)
	return s.repo.List(ctx, query, offset, limit)
}

// ListMine lists the caller's own applications; the applicant filter is
// forced to the caller regardless of what the query carries.
func (s *ApplicationService) ListMine(ctx context.Context, applicantID int, query types.ApplicationQuery) ([]types.Application, int, error) {
	query.ApplicantID = applicantID
	return s.List(ctx, query)
}

const applicationNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newApplicationNumber generates a unique, human-referenceable number:
// APP + unix milliseconds + 5 random uppercase alphanumerics. The unique
// index on application_number backstops the improbable collision.
func newApplicationNumber() string {
	var buf [5]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing means the process is in serious trouble;
		// fall back to the timestamp alone and let the unique index decide.
		return fmt.Sprintf("APP%dXXXXX", time.Now().UnixMilli())
	}
	suffix := make([]byte, len(buf))
	for i, b := range buf {
		suffix[i] = applicationNumberAlphabet[int(b)%len(applicationNumberAlphabet)]
	}
	return fmt.Sprintf("APP%d%s", time.Now().UnixMilli(), suffix)
}
