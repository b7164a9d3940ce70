package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/sidukcapil/apiserver/internal/store"
	"github.com/sidukcapil/apiserver/types"
)

type fakeDocumentRepo struct {
	nextID     int
	docs       map[int]types.Document
	failCreate bool
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{nextID: 1, docs: make(map[int]types.Document)}
}

func (r *fakeDocumentRepo) GetByID(_ context.Context, id int) (types.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return types.Document{}, store.ErrNotFound
	}
	return doc, nil
}

func (r *fakeDocumentRepo) ListByPopulation(_ context.Context, populationID int) ([]types.Document, error) {
	var docs []types.Document
	for _, doc := range r.docs {
		if doc.PopulationID == populationID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (r *fakeDocumentRepo) Create(_ context.Context, doc types.Document) (types.Document, error) {
	if r.failCreate {
		return types.Document{}, errors.New("insert failed")
	}
	doc.ID = r.nextID
	r.nextID++
	doc.CreatedAt = time.Now()
	r.docs[doc.ID] = doc
	return doc, nil
}

func (r *fakeDocumentRepo) SetValidation(_ context.Context, id int, isValidated bool, validatedBy int, validatedAt time.Time) (types.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return types.Document{}, store.ErrNotFound
	}
	doc.IsValidated = isValidated
	doc.ValidatedBy = &validatedBy
	doc.ValidatedAt = &validatedAt
	r.docs[id] = doc
	return doc, nil
}

func (r *fakeDocumentRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.docs[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

type fakeBlobStore struct {
	objects    map[string][]byte
	failDelete bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (b *fakeBlobStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *fakeBlobStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBlobStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := b.objects[key]
	return ok, nil
}

func (b *fakeBlobStore) Delete(_ context.Context, key string) error {
	if b.failDelete {
		return errors.New("delete failed")
	}
	delete(b.objects, key)
	return nil
}

func newDocumentService(repo *fakeDocumentRepo, blobs *fakeBlobStore, populationIDs ...int) *DocumentService {
	ids := make(map[int]bool)
	for _, id := range populationIDs {
		ids[id] = true
	}
	return NewDocumentService(repo, blobs, &fakePopulationFinder{ids: ids}, nopAudit{})
}

func sampleUpload(populationID int) UploadDocumentInput {
	content := []byte("%PDF-1.4 test")
	return UploadDocumentInput{
		PopulationID: populationID,
		DocumentType: types.DocumentKTP,
		FileName:     "ktp.pdf",
		FileSize:     int64(len(content)),
		MimeType:     "application/pdf",
		Body:         bytes.NewReader(content),
	}
}

func TestUploadRejectsDisallowedMimeType(t *testing.T) {
	svc := newDocumentService(newFakeDocumentRepo(), newFakeBlobStore(), 1)

	input := sampleUpload(1)
	input.MimeType = "application/zip"
	if _, err := svc.Upload(context.Background(), input, 5); !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc := newDocumentService(newFakeDocumentRepo(), newFakeBlobStore(), 1)

	input := sampleUpload(1)
	input.FileSize = maxDocumentSize + 1
	if _, err := svc.Upload(context.Background(), input, 5); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestUploadRequiresExistingPopulation(t *testing.T) {
	svc := newDocumentService(newFakeDocumentRepo(), newFakeBlobStore())

	if _, err := svc.Upload(context.Background(), sampleUpload(1), 5); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUploadStoresBlobAndMetadata(t *testing.T) {
	repo := newFakeDocumentRepo()
	blobs := newFakeBlobStore()
	svc := newDocumentService(repo, blobs, 1)

	created, err := svc.Upload(context.Background(), sampleUpload(1), 5)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	keyPattern := regexp.MustCompile(`^\d+_1_KTP\.pdf$`)
	if !keyPattern.MatchString(created.FilePath) {
		t.Fatalf("unexpected object key %q", created.FilePath)
	}
	if _, ok := blobs.objects[created.FilePath]; !ok {
		t.Fatalf("expected blob stored under %q", created.FilePath)
	}
	if created.UploadedBy != 5 {
		t.Fatalf("expected uploaded_by 5, got %d", created.UploadedBy)
	}
	if created.IsValidated {
		t.Fatalf("new documents must not be validated")
	}
}

func TestUploadCleansBlobWhenInsertFails(t *testing.T) {
	repo := newFakeDocumentRepo()
	repo.failCreate = true
	blobs := newFakeBlobStore()
	svc := newDocumentService(repo, blobs, 1)

	if _, err := svc.Upload(context.Background(), sampleUpload(1), 5); err == nil {
		t.Fatalf("expected upload to fail")
	}
	if len(blobs.objects) != 0 {
		t.Fatalf("expected orphaned blob to be removed, %d left", len(blobs.objects))
	}
}

func TestValidateOverwritesPreviousAttestation(t *testing.T) {
	repo := newFakeDocumentRepo()
	blobs := newFakeBlobStore()
	svc := newDocumentService(repo, blobs, 1)
	ctx := context.Background()

	created, err := svc.Upload(ctx, sampleUpload(1), 5)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	actor := staffUser(types.RolePetugas)
	validated, err := svc.Validate(ctx, created.ID, true, actor)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !validated.IsValidated || validated.ValidatedBy == nil || *validated.ValidatedBy != actor.ID {
		t.Fatalf("expected validation stamped by %d", actor.ID)
	}

	revoked, err := svc.Validate(ctx, created.ID, false, actor)
	if err != nil {
		t.Fatalf("re-validate: %v", err)
	}
	if revoked.IsValidated {
		t.Fatalf("expected attestation to be overwritten")
	}
}

func TestValidateRequiresProcessingRole(t *testing.T) {
	repo := newFakeDocumentRepo()
	svc := newDocumentService(repo, newFakeBlobStore(), 1)
	ctx := context.Background()

	created, err := svc.Upload(ctx, sampleUpload(1), 5)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	citizen := staffUser(types.RolePenduduk)
	if _, err := svc.Validate(ctx, created.ID, true, citizen); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDownloadMissingBlob(t *testing.T) {
	repo := newFakeDocumentRepo()
	blobs := newFakeBlobStore()
	svc := newDocumentService(repo, blobs, 1)
	ctx := context.Background()

	created, err := svc.Upload(ctx, sampleUpload(1), 5)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	delete(blobs.objects, created.FilePath)
	if _, _, err := svc.Download(ctx, created.ID); !errors.Is(err, ErrFileMissing) {
		t.Fatalf("expected ErrFileMissing, got %v", err)
	}
}

func TestDownloadStreamsStoredBytes(t *testing.T) {
	repo := newFakeDocumentRepo()
	blobs := newFakeBlobStore()
	svc := newDocumentService(repo, blobs, 1)
	ctx := context.Background()

	created, err := svc.Upload(ctx, sampleUpload(1), 5)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	doc, body, err := svc.Download(ctx, created.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF-1.4") {
		t.Fatalf("unexpected body %q", data)
	}
	if doc.FileName != "ktp.pdf" {
		t.Fatalf("unexpected file name %q", doc.FileName)
	}
}

func TestDeleteDocumentSurvivesBlobFailure(t *testing.T) {
	repo := newFakeDocumentRepo()
	blobs := newFakeBlobStore()
	svc := newDocumentService(repo, blobs, 1)
	ctx := context.Background()

	created, err := svc.Upload(ctx, sampleUpload(1), 5)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	blobs.failDelete = true
	if err := svc.Delete(ctx, created.ID, 5); err != nil {
		t.Fatalf("delete should succeed despite blob failure: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected metadata row removed, got %v", err)
	}
}
