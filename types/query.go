package types

// PopulationQuery filters and paginates citizen-record listings.
// Search matches nama_lengkap or nik by case-insensitive substring;
// the region filters are exact-match and AND-composed.
type PopulationQuery struct {
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
	Search    string `json:"search,omitempty"`
	Kelurahan string `json:"kelurahan,omitempty"`
	Kecamatan string `json:"kecamatan,omitempty"`
	Kabupaten string `json:"kabupaten,omitempty"`
}

// ApplicationQuery filters and paginates application listings.
// All filters are exact-match and AND-composed.
type ApplicationQuery struct {
	Page            int               `json:"page"`
	Limit           int               `json:"limit"`
	Status          ApplicationStatus `json:"status,omitempty"`
	ApplicationType ApplicationType   `json:"application_type,omitempty"`
	ApplicantID     int               `json:"applicant_id,omitempty"`
}
