package types

import "time"

// DocumentType identifies the kind of civil-registry document a file holds.
type DocumentType string

// Supported document types.
const (
	DocumentKTP           DocumentType = "KTP"
	DocumentKartuKeluarga DocumentType = "KARTU_KELUARGA"
	DocumentAktaKelahiran DocumentType = "AKTA_KELAHIRAN"
	DocumentAktaKematian  DocumentType = "AKTA_KEMATIAN"
)

// Valid reports whether the document type is one of the supported values.
func (d DocumentType) Valid() bool {
	switch d {
	case DocumentKTP, DocumentKartuKeluarga, DocumentAktaKelahiran, DocumentAktaKematian:
		return true
	default:
		return false
	}
}

// Document is the metadata row for a file uploaded on behalf of a citizen.
// The bytes themselves live in object storage under FilePath; this record
// tracks provenance and the validation attestation.
type Document struct {
	// ID is the unique identifier of the document.
	ID int `json:"id" db:"id"`

	// PopulationID is the citizen record the document belongs to.
	PopulationID int `json:"population_id" db:"population_id"`

	// DocumentType is the kind of document held in the file.
	DocumentType DocumentType `json:"document_type" db:"document_type"`

	// DocumentNumber is the optional official number printed on the document.
	DocumentNumber *string `json:"document_number" db:"document_number"`

	// FilePath is the object-storage key the file bytes are stored under.
	FilePath string `json:"file_path" db:"file_path"`

	// FileName is the original file name supplied at upload, used as the
	// display name on download.
	FileName string `json:"file_name" db:"file_name"`

	// FileSize is the size of the file in bytes.
	FileSize int64 `json:"file_size" db:"file_size"`

	// MimeType is the declared content type of the file.
	MimeType string `json:"mime_type" db:"mime_type"`

	// IsValidated records a privileged role's boolean attestation that the
	// file is acceptable. A later validation call may overwrite it.
	IsValidated bool `json:"is_validated" db:"is_validated"`

	// ValidatedBy is the id of the user who last validated the document.
	ValidatedBy *int `json:"validated_by" db:"validated_by"`

	// ValidatedAt is the timestamp of the last validation action.
	ValidatedAt *time.Time `json:"validated_at" db:"validated_at"`

	// UploadedBy is the id of the user who uploaded the file.
	UploadedBy int `json:"uploaded_by" db:"uploaded_by"`

	// CreatedAt is the timestamp when the document was uploaded.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
