package services

import "errors"

// Service-level failures surfaced to the HTTP boundary. Persistence-level
// failures (ErrNotFound, ErrDuplicateKey) live in the store package.
var (
	// ErrForbidden is returned when a role or ownership check fails.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition is returned when a status change is not
	// permitted from the application's current state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidDate is returned when a date field is not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidFileType is returned when an uploaded file's mime type is
	// not in the allow-list.
	ErrInvalidFileType = errors.New("file type not allowed")

	// ErrFileTooLarge is returned when an uploaded file exceeds the size cap.
	ErrFileTooLarge = errors.New("file too large")

	// ErrFileMissing is returned when document metadata exists but the
	// blob is absent from object storage.
	ErrFileMissing = errors.New("file missing from storage")

	// ErrHasDependents is returned when a citizen record cannot be deleted
	// because documents or applications still reference it.
	ErrHasDependents = errors.New("record has dependent rows")
)
