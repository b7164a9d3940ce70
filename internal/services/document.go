package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/sidukcapil/apiserver/types"
)

// maxDocumentSize caps uploaded files at 5 MiB.
const maxDocumentSize = 5 << 20

// allowedMimeTypes is the upload allow-list. Scans come in as PDFs or
// photos; nothing else is accepted.
var allowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
}

// DocumentRepository defines persistence operations for document metadata.
type DocumentRepository interface {
	GetByID(ctx context.Context, id int) (types.Document, error)
	ListByPopulation(ctx context.Context, populationID int) ([]types.Document, error)
	Create(ctx context.Context, doc types.Document) (types.Document, error)
	SetValidation(ctx context.Context, id int, isValidated bool, validatedBy int, validatedAt time.Time) (types.Document, error)
	Delete(ctx context.Context, id int) error
}

// BlobStore is the object-storage surface the document service needs.
// Satisfied by *storage.Storage regardless of backend.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// UploadDocumentInput is the payload for uploading a document file.
type UploadDocumentInput struct {
	PopulationID   int
	DocumentType   types.DocumentType
	DocumentNumber *string
	FileName       string
	FileSize       int64
	MimeType       string
	Body           io.Reader
}

// DocumentService owns document files and their validation state.
type DocumentService struct {
	repo        DocumentRepository
	blobs       BlobStore
	populations PopulationFinder
	audit       AuditRecorder
}

func NewDocumentService(repo DocumentRepository, blobs BlobStore, populations PopulationFinder, audit AuditRecorder) *DocumentService {
	return &DocumentService{
		repo:        repo,
		blobs:       blobs,
		populations: populations,
		audit:       audit,
	}
}

// Upload validates the file, writes the bytes to object storage, then
// records the metadata row. If the metadata insert fails the blob is
// removed best-effort so storage does not accumulate orphans.
func (s *DocumentService) Upload(ctx context.Context, input UploadDocumentInput, uploadedBy int) (types.Document, error) {
	if !allowedMimeTypes[input.MimeType] {
		return types.Document{}, fmt.Errorf("%w: %s", ErrInvalidFileType, input.MimeType)
	}
	if input.FileSize > maxDocumentSize {
		return types.Document{}, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, input.FileSize)
	}
	if _, err := s.populations.GetByID(ctx, input.PopulationID); err != nil {
		return types.Document{}, fmt.Errorf("population record: %w", err)
	}

	key := objectKey(input.PopulationID, input.DocumentType, input.FileName)
	if err := s.blobs.Put(ctx, key, input.Body, input.FileSize, input.MimeType); err != nil {
		return types.Document{}, fmt.Errorf("store file: %w", err)
	}

	doc := types.Document{
		PopulationID:   input.PopulationID,
		DocumentType:   input.DocumentType,
		DocumentNumber: input.DocumentNumber,
		FilePath:       key,
		FileName:       input.FileName,
		FileSize:       input.FileSize,
		MimeType:       input.MimeType,
		UploadedBy:     uploadedBy,
	}

	created, err := s.repo.Create(ctx, doc)
	if err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			slog.Warn("orphaned blob cleanup failed", "key", key, "error", delErr)
		}
		return types.Document{}, err
	}

	s.audit.Record(ctx, types.AuditLog{
		UserID:    uploadedBy,
		Action:    "UPLOAD",
		TableName: "documents",
		RecordID:  &created.ID,
		NewValues: map[string]any{
			"document_type": string(created.DocumentType),
			"file_name":     created.FileName,
			"file_size":     created.FileSize,
		},
	})
	return created, nil
}

// objectKey builds the storage key: upload nanos, owning record, and
// document type, keeping the original extension.
func objectKey(populationID int, docType types.DocumentType, fileName string) string {
	return fmt.Sprintf("%d_%d_%s%s", time.Now().UnixNano(), populationID, docType, filepath.Ext(fileName))
}

// Validate records a staff attestation on a document. Calling it again
// overwrites the previous attestation.
func (s *DocumentService) Validate(ctx context.Context, id int, isValidated bool, actor types.User) (types.Document, error) {
	if !CanProcessApplications(actor.Role) {
		return types.Document{}, ErrForbidden
	}

	updated, err := s.repo.SetValidation(ctx, id, isValidated, actor.ID, time.Now())
	if err != nil {
		return types.Document{}, err
	}

	s.audit.Record(ctx, types.AuditLog{
		UserID:    actor.ID,
		Action:    "VALIDATE",
		TableName: "documents",
		RecordID:  &updated.ID,
		NewValues: map[string]any{"is_validated": isValidated},
	})
	return updated, nil
}

func (s *DocumentService) Get(ctx context.Context, id int) (types.Document, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DocumentService) ListByPopulation(ctx context.Context, populationID int) ([]types.Document, error) {
	return s.repo.ListByPopulation(ctx, populationID)
}

// Download opens the file bytes for a document. Metadata without a blob
// behind it surfaces as ErrFileMissing rather than a backend error.
func (s *DocumentService) Download(ctx context.Context, id int) (types.Document, io.ReadCloser, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Document{}, nil, err
	}

	ok, err := s.blobs.Exists(ctx, doc.FilePath)
	if err != nil {
		return types.Document{}, nil, fmt.Errorf("check file: %w", err)
	}
	if !ok {
		return types.Document{}, nil, ErrFileMissing
	}

	body, err := s.blobs.Get(ctx, doc.FilePath)
	if err != nil {
		return types.Document{}, nil, fmt.Errorf("open file: %w", err)
	}
	return doc, body, nil
}

// Delete removes the metadata row, then the blob best-effort. A failed
// blob delete is logged; the row is already gone and the operation
// succeeds from the caller's point of view.
func (s *DocumentService) Delete(ctx context.Context, id, actorID int) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, doc.FilePath); err != nil {
		slog.Warn("document blob delete failed", "key", doc.FilePath, "error", err)
	}

	s.audit.Record(ctx, types.AuditLog{
		UserID:    actorID,
		Action:    "DELETE",
		TableName: "documents",
		RecordID:  &id,
		OldValues: map[string]any{
			"document_type": string(doc.DocumentType),
			"file_name":     doc.FileName,
		},
	})
	return nil
}
