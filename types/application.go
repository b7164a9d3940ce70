package types

import (
	"encoding/json"
	"time"
)

// ApplicationType identifies the civil-registry service being requested.
type ApplicationType string

// Supported application types.
const (
	// ApplicationAktaKelahiran requests a birth certificate.
	ApplicationAktaKelahiran ApplicationType = "AKTA_KELAHIRAN"

	// ApplicationAktaKematian requests a death certificate.
	ApplicationAktaKematian ApplicationType = "AKTA_KEMATIAN"

	// ApplicationPerubahanData requests a correction of registered data.
	ApplicationPerubahanData ApplicationType = "PERUBAHAN_DATA"

	// ApplicationPindahDatang registers a change of address.
	ApplicationPindahDatang ApplicationType = "PINDAH_DATANG"

	// ApplicationKKBaru requests issuance of a new family card.
	ApplicationKKBaru ApplicationType = "KK_BARU"

	// ApplicationKTPBaru requests issuance of a new identity card.
	ApplicationKTPBaru ApplicationType = "KTP_BARU"
)

// ApplicationTypes returns all supported application types in a stable order.
func ApplicationTypes() []ApplicationType {
	return []ApplicationType{
		ApplicationAktaKelahiran,
		ApplicationAktaKematian,
		ApplicationPerubahanData,
		ApplicationPindahDatang,
		ApplicationKKBaru,
		ApplicationKTPBaru,
	}
}

// Valid reports whether the application type is one of the supported values.
func (t ApplicationType) Valid() bool {
	switch t {
	case ApplicationAktaKelahiran, ApplicationAktaKematian, ApplicationPerubahanData,
		ApplicationPindahDatang, ApplicationKKBaru, ApplicationKTPBaru:
		return true
	default:
		return false
	}
}

// ApplicationStatus is the lifecycle state of an application.
//
// DRAFT is the unique initial state. Status only moves forward;
// APPROVED and REJECTED are terminal.
type ApplicationStatus string

// Supported application statuses.
const (
	// StatusDraft is a freshly created application, editable by the applicant.
	StatusDraft ApplicationStatus = "DRAFT"

	// StatusSubmitted means the applicant has handed the application to the office.
	StatusSubmitted ApplicationStatus = "SUBMITTED"

	// StatusProcessing means a clerk has picked the application up.
	StatusProcessing ApplicationStatus = "PROCESSING"

	// StatusApproved is the terminal success state.
	StatusApproved ApplicationStatus = "APPROVED"

	// StatusRejected is the terminal failure state.
	StatusRejected ApplicationStatus = "REJECTED"
)

// Valid reports whether the status is one of the supported values.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusProcessing, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Application is a citizen's request for a civil-registry service.
//
// The applicant is the user who created the application; it is not
// necessarily the citizen (Population) the request concerns.
type Application struct {
	// ID is the unique identifier of the application.
	ID int `json:"id" db:"id"`

	// ApplicationNumber is the unique, human-referenceable number assigned
	// at creation. It never changes.
	ApplicationNumber string `json:"application_number" db:"application_number"`

	// ApplicationType is the service being requested.
	ApplicationType ApplicationType `json:"application_type" db:"application_type"`

	// ApplicantID is the id of the user who created the application.
	ApplicantID int `json:"applicant_id" db:"applicant_id"`

	// PopulationID optionally links the citizen record the request concerns.
	PopulationID *int `json:"population_id" db:"population_id"`

	// Status is the current lifecycle state.
	Status ApplicationStatus `json:"status" db:"status"`

	// ApplicationData is the type-specific payload. The engine stores and
	// returns it verbatim and never interprets its keys.
	ApplicationData json.RawMessage `json:"application_data" db:"application_data"`

	// Notes carries free-form remarks, typically set by processing staff.
	Notes *string `json:"notes" db:"notes"`

	// ProcessedBy is the id of the staff member who last moved the
	// application out of a submitted state.
	ProcessedBy *int `json:"processed_by" db:"processed_by"`

	// ProcessedAt is the timestamp of the last staff transition.
	ProcessedAt *time.Time `json:"processed_at" db:"processed_at"`

	// CreatedAt is the timestamp when the application was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
