package types

import "time"

// Gender is the registered gender of a citizen.
type Gender string

// Supported gender values.
const (
	GenderMale   Gender = "LAKI_LAKI"
	GenderFemale Gender = "PEREMPUAN"
)

// Valid reports whether the gender is one of the supported values.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Religion is the registered religion of a citizen.
type Religion string

// Supported religion values.
const (
	ReligionIslam    Religion = "ISLAM"
	ReligionKristen  Religion = "KRISTEN"
	ReligionKatolik  Religion = "KATOLIK"
	ReligionHindu    Religion = "HINDU"
	ReligionBuddha   Religion = "BUDDHA"
	ReligionKonghucu Religion = "KONGHUCU"
)

// Valid reports whether the religion is one of the supported values.
func (r Religion) Valid() bool {
	switch r {
	case ReligionIslam, ReligionKristen, ReligionKatolik, ReligionHindu, ReligionBuddha, ReligionKonghucu:
		return true
	default:
		return false
	}
}

// MaritalStatus is the registered marital status of a citizen.
type MaritalStatus string

// Supported marital status values.
const (
	MaritalSingle   MaritalStatus = "BELUM_KAWIN"
	MaritalMarried  MaritalStatus = "KAWIN"
	MaritalDivorced MaritalStatus = "CERAI_HIDUP"
	MaritalWidowed  MaritalStatus = "CERAI_MATI"
)

// Valid reports whether the marital status is one of the supported values.
func (m MaritalStatus) Valid() bool {
	switch m {
	case MaritalSingle, MaritalMarried, MaritalDivorced, MaritalWidowed:
		return true
	default:
		return false
	}
}

// Population represents a citizen record in the civil registry.
//
// A Population row is independent of any User account: a citizen may have
// no login at all. The NIK is the immutable identity anchor; every other
// field may be corrected in place.
type Population struct {
	// ID is the unique identifier of the record.
	ID int `json:"id" db:"id"`

	// NIK is the 16-digit national citizen identity number.
	// It is globally unique and never changes once assigned.
	NIK string `json:"nik" db:"nik"`

	// NamaLengkap is the citizen's full legal name.
	NamaLengkap string `json:"nama_lengkap" db:"nama_lengkap"`

	// TempatLahir is the citizen's place of birth.
	TempatLahir string `json:"tempat_lahir" db:"tempat_lahir"`

	// TanggalLahir is the citizen's date of birth.
	TanggalLahir time.Time `json:"tanggal_lahir" db:"tanggal_lahir"`

	// JenisKelamin is the registered gender.
	JenisKelamin Gender `json:"jenis_kelamin" db:"jenis_kelamin"`

	// Agama is the registered religion.
	Agama Religion `json:"agama" db:"agama"`

	// StatusPerkawinan is the registered marital status.
	StatusPerkawinan MaritalStatus `json:"status_perkawinan" db:"status_perkawinan"`

	// Pekerjaan is the citizen's occupation.
	Pekerjaan string `json:"pekerjaan" db:"pekerjaan"`

	// Kewarganegaraan is the citizen's nationality. Defaults to INDONESIA.
	Kewarganegaraan string `json:"kewarganegaraan" db:"kewarganegaraan"`

	// Alamat is the free-form street address.
	Alamat string `json:"alamat" db:"alamat"`

	// RT and RW are the neighbourhood and community unit numbers.
	RT string `json:"rt" db:"rt"`
	RW string `json:"rw" db:"rw"`

	// Kelurahan, Kecamatan, Kabupaten, and Provinsi are the administrative
	// units the address decomposes into, smallest first.
	Kelurahan string `json:"kelurahan" db:"kelurahan"`
	Kecamatan string `json:"kecamatan" db:"kecamatan"`
	Kabupaten string `json:"kabupaten" db:"kabupaten"`
	Provinsi  string `json:"provinsi" db:"provinsi"`

	// KodePos is the postal code.
	KodePos string `json:"kode_pos" db:"kode_pos"`

	// NomorKK is the optional family-card number.
	NomorKK *string `json:"nomor_kk" db:"nomor_kk"`

	// NamaAyah and NamaIbu are the optional parent names.
	NamaAyah *string `json:"nama_ayah" db:"nama_ayah"`
	NamaIbu  *string `json:"nama_ibu" db:"nama_ibu"`

	// CreatedBy is the id of the user who created the record.
	CreatedBy int `json:"created_by" db:"created_by"`

	// CreatedAt is the timestamp when the record was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the record.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
