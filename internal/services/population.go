package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sidukcapil/apiserver/types"
)

// birthDateLayout is the wire format for tanggal_lahir. The column is a
// Postgres DATE, so only the calendar day is kept.
const birthDateLayout = "2006-01-02"

// PopulationRepository defines persistence operations for citizen records.
type PopulationRepository interface {
	GetByID(ctx context.Context, id int) (types.Population, error)
	GetByNIK(ctx context.Context, nik string) (types.Population, error)
	List(ctx context.Context, query types.PopulationQuery, offset, limit int) ([]types.Population, int, error)
	Create(ctx context.Context, p types.Population) (types.Population, error)
	Update(ctx context.Context, p types.Population) (types.Population, error)
	Delete(ctx context.Context, id int) error
}

// DependentCounter reports how many rows reference a citizen record.
// Both the document and application repositories satisfy it.
type DependentCounter interface {
	CountByPopulation(ctx context.Context, populationID int) (int, error)
}

// CreatePopulationInput is the payload for registering a citizen record.
type CreatePopulationInput struct {
	NIK              string              `json:"nik"`
	NamaLengkap      string              `json:"nama_lengkap"`
	TempatLahir      string              `json:"tempat_lahir"`
	TanggalLahir     string              `json:"tanggal_lahir"`
	JenisKelamin     types.Gender        `json:"jenis_kelamin"`
	Agama            types.Religion      `json:"agama"`
	StatusPerkawinan types.MaritalStatus `json:"status_perkawinan"`
	Pekerjaan        string              `json:"pekerjaan"`
	Kewarganegaraan  string              `json:"kewarganegaraan"`
	Alamat           string              `json:"alamat"`
	RT               string              `json:"rt"`
	RW               string              `json:"rw"`
	Kelurahan        string              `json:"kelurahan"`
	Kecamatan        string              `json:"kecamatan"`
	Kabupaten        string              `json:"kabupaten"`
	Provinsi         string              `json:"provinsi"`
	KodePos          string              `json:"kode_pos"`
	NomorKK          *string             `json:"nomor_kk"`
	NamaAyah         *string             `json:"nama_ayah"`
	NamaIbu          *string             `json:"nama_ibu"`
}

// UpdatePopulationInput carries a partial update. Nil fields keep the
// stored value; the NIK itself is immutable once registered.
type UpdatePopulationInput struct {
	NamaLengkap      *string              `json:"nama_lengkap"`
	TempatLahir      *string              `json:"tempat_lahir"`
	TanggalLahir     *string              `json:"tanggal_lahir"`
	JenisKelamin     *types.Gender        `json:"jenis_kelamin"`
	Agama            *types.Religion      `json:"agama"`
	StatusPerkawinan *types.MaritalStatus `json:"status_perkawinan"`
	Pekerjaan        *string              `json:"pekerjaan"`
	Kewarganegaraan  *string              `json:"kewarganegaraan"`
	Alamat           *string              `json:"alamat"`
	RT               *string              `json:"rt"`
	RW               *string              `json:"rw"`
	Kelurahan        *string              `json:"kelurahan"`
	Kecamatan        *string              `json:"kecamatan"`
	Kabupaten        *string              `json:"kabupaten"`
	Provinsi         *string              `json:"provinsi"`
	KodePos          *string              `json:"kode_pos"`
	NomorKK          *string              `json:"nomor_kk"`
	NamaAyah         *string              `json:"nama_ayah"`
	NamaIbu          *string              `json:"nama_ibu"`
}

// PopulationService owns the citizen registry.
type PopulationService struct {
	repo         PopulationRepository
	documents    DependentCounter
	applications DependentCounter
	audit        AuditRecorder
}

func NewPopulationService(repo PopulationRepository, documents, applications DependentCounter, audit AuditRecorder) *PopulationService {
	return &PopulationService{
		repo:         repo,
		documents:    documents,
		applications: applications,
		audit:        audit,
	}
}

// Create registers a new citizen record. NIK uniqueness is enforced by the
// store and surfaces as ErrDuplicateKey.
func (s *PopulationService) Create(ctx context.Context, input CreatePopulationInput, createdBy int) (types.Population, error) {
	born, err := parseBirthDate(input.TanggalLahir)
	if err != nil {
		return types.Population{}, err
	}

	p := types.Population{
		NIK:              input.NIK,
		NamaLengkap:      input.NamaLengkap,
		TempatLahir:      input.TempatLahir,
		TanggalLahir:     born,
		JenisKelamin:     input.JenisKelamin,
		Agama:            input.Agama,
		StatusPerkawinan: input.StatusPerkawinan,
		Pekerjaan:        input.Pekerjaan,
		Kewarganegaraan:  input.Kewarganegaraan,
		Alamat:           input.Alamat,
		RT:               input.RT,
		RW:               input.RW,
		Kelurahan:        input.Kelurahan,
		Kecamatan:        input.Kecamatan,
		Kabupaten:        input.Kabupaten,
		Provinsi:         input.Provinsi,
		KodePos:          input.KodePos,
		NomorKK:          input.NomorKK,
		NamaAyah:         input.NamaAyah,
		NamaIbu:          input.NamaIbu,
		CreatedBy:        createdBy,
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return types.Population{}, err
	}

	s.audit.Record(ctx, types.AuditLog{
		UserID:    createdBy,
		Action:    "CREATE",
		TableName: "population",
		RecordID:  &created.ID,
		NewValues: map[string]any{"nik": created.NIK, "nama_lengkap": created.NamaLengkap},
	})
	return created, nil
}

// Update applies a partial update to a citizen record. Only the fields set
// in the input change; everything else is carried over from the stored row.
func (s *PopulationService) Update(ctx context.Context, id int, input UpdatePopulationInput, actorID int) (types.Population, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Population{}, err
	}

	if err := applyPopulationUpdate(&p, input); err != nil {
		return types.Population{}, err
	}

	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return types.Population{}, err
	}

	s.audit.Record(ctx, types.AuditLog{
		UserID:    actorID,
		Action:    "UPDATE",
		TableName: "population",
		RecordID:  &updated.ID,
		NewValues: map[string]any{"nik": updated.NIK},
	})
	return updated, nil
}

func applyPopulationUpdate(p *types.Population, input UpdatePopulationInput) error {
	if input.NamaLengkap != nil {
		p.NamaLengkap = *input.NamaLengkap
	}
	if input.TempatLahir != nil {
		p.TempatLahir = *input.TempatLahir
	}
	if input.TanggalLahir != nil {
		born, err := parseBirthDate(*input.TanggalLahir)
		if err != nil {
			return err
		}
		p.TanggalLahir = born
	}
	if input.JenisKelamin != nil {
		p.JenisKelamin = *input.JenisKelamin
	}
	if input.Agama != nil {
		p.Agama = *input.Agama
	}
	if input.StatusPerkawinan != nil {
		p.StatusPerkawinan = *input.StatusPerkawinan
	}
	if input.Pekerjaan != nil {
		p.Pekerjaan = *input.Pekerjaan
	}
	if input.Kewarganegaraan != nil {
		p.Kewarganegaraan = *input.Kewarganegaraan
	}
	if input.Alamat != nil {
		p.Alamat = *input.Alamat
	}
	if input.RT != nil {
		p.RT = *input.RT
	}
	if input.RW != nil {
		p.RW = *input.RW
	}
	if input.Kelurahan != nil {
		p.Kelurahan = *input.Kelurahan
	}
	if input.Kecamatan != nil {
		p.Kecamatan = *input.Kecamatan
	}
	if input.Kabupaten != nil {
		p.Kabupaten = *input.Kabupaten
	}
	if input.Provinsi != nil {
		p.Provinsi = *input.Provinsi
	}
	if input.KodePos != nil {
		p.KodePos = *input.KodePos
	}
	if input.NomorKK != nil {
		p.NomorKK = input.NomorKK
	}
	if input.NamaAyah != nil {
		p.NamaAyah = input.NamaAyah
	}
	if input.NamaIbu != nil {
		p.NamaIbu = input.NamaIbu
	}
	return nil
}

func parseBirthDate(raw string) (time.Time, error) {
	born, err := time.Parse(birthDateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: tanggal_lahir %q", ErrInvalidDate, raw)
	}
	return born, nil
}

func (s *PopulationService) Get(ctx context.Context, id int) (types.Population, error) {
	return s.repo.GetByID(ctx, id)
}

// FindByNIK looks a record up by its exact national identity number.
func (s *PopulationService) FindByNIK(ctx context.Context, nik string) (types.Population, error) {
	return s.repo.GetByNIK(ctx, nik)
}

func (s *PopulationService) List(ctx context.Context, query types.PopulationQuery) ([]types.Population, int, error) {
	offset, limit := normalizePage(query.Page, query.Limit)
	return s.repo.List(ctx, query, offset, limit)
}

// Delete removes a citizen record. Records with dependent documents or
// applications are refused with ErrHasDependents so history is preserved.
func (s *PopulationService) Delete(ctx context.Context, id, actorID int) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	docCount, err := s.documents.CountByPopulation(ctx, id)
	if err != nil {
		return err
	}
	appCount, err := s.applications.CountByPopulation(ctx, id)
	if err != nil {
		return err
	}
	if docCount > 0 || appCount > 0 {
		return ErrHasDependents
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, types.AuditLog{
		UserID:    actorID,
		Action:    "DELETE",
		TableName: "population",
		RecordID:  &id,
		OldValues: map[string]any{"nik": p.NIK, "nama_lengkap": p.NamaLengkap},
	})
	return nil
}
