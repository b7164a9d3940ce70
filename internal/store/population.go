package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sidukcapil/apiserver/types"
)

// PopulationRepository handles persistence for citizen records.
type PopulationRepository struct {
	db *sql.DB
}

func NewPopulationRepository(db *sql.DB) *PopulationRepository {
	return &PopulationRepository{db: db}
}

const populationColumns = `id, nik, nama_lengkap, tempat_lahir, tanggal_lahir, jenis_kelamin,
	agama, status_perkawinan, pekerjaan, kewarganegaraan, alamat, rt, rw,
	kelurahan, kecamatan, kabupaten, provinsi, kode_pos, nomor_kk,
	nama_ayah, nama_ibu, created_by, created_at, updated_at`

func scanPopulation(row interface{ Scan(...any) error }) (types.Population, error) {
	var p types.Population
	err := row.Scan(
		&p.ID,
		&p.NIK,
		&p.NamaLengkap,
		&p.TempatLahir,
		&p.TanggalLahir,
		&p.JenisKelamin,
		&p.Agama,
		&p.StatusPerkawinan,
		&p.Pekerjaan,
		&p.Kewarganegaraan,
		&p.Alamat,
		&p.RT,
		&p.RW,
		&p.Kelurahan,
		&p.Kecamatan,
		&p.Kabupaten,
		&p.Provinsi,
		&p.KodePos,
		&p.NomorKK,
		&p.NamaAyah,
		&p.NamaIbu,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (r *PopulationRepository) GetByID(ctx context.Context, id int) (types.Population, error) {
	query := fmt.Sprintf(`SELECT %s FROM population WHERE id = $1`, populationColumns)
	p, err := scanPopulation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Population{}, ErrNotFound
		}
		return types.Population{}, err
	}
	return p, nil
}

func (r *PopulationRepository) GetByNIK(ctx context.Context, nik string) (types.Population, error) {
	query := fmt.Sprintf(`SELECT %s FROM population WHERE nik = $1`, populationColumns)
	p, err := scanPopulation(r.db.QueryRowContext(ctx, query, nik))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Population{}, ErrNotFound
		}
		return types.Population{}, err
	}
	return p, nil
}

// List returns citizen records matching the query, newest first, together
// with the total number of matches independent of the pagination window.
func (r *PopulationRepository) List(ctx context.Context, query types.PopulationQuery, offset, limit int) ([]types.Population, int, error) {
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 6)

	if search := strings.TrimSpace(query.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(nama_lengkap ILIKE $%d OR nik ILIKE $%d)", len(args), len(args)))
	}
	if query.Kelurahan != "" {
		args = append(args, query.Kelurahan)
		conditions = append(conditions, fmt.Sprintf("kelurahan = $%d", len(args)))
	}
	if query.Kecamatan != "" {
		args = append(args, query.Kecamatan)
		conditions = append(conditions, fmt.Sprintf("kecamatan = $%d", len(args)))
	}
	if query.Kabupaten != "" {
		args = append(args, query.Kabupaten)
		conditions = append(conditions, fmt.Sprintf("kabupaten = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(1) FROM population" + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, offset, limit)
	listQuery := fmt.Sprintf(
		`SELECT %s FROM population%s ORDER BY created_at DESC OFFSET $%d LIMIT $%d`,
		populationColumns, where, len(args)-1, len(args),
	)
	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := make([]types.Population, 0, limit)
	for rows.Next() {
		p, err := scanPopulation(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *PopulationRepository) Create(ctx context.Context, p types.Population) (types.Population, error) {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	const query = `
		INSERT INTO population (
			nik, nama_lengkap, tempat_lahir, tanggal_lahir, jenis_kelamin,
			agama, status_perkawinan, pekerjaan, kewarganegaraan, alamat, rt, rw,
			kelurahan, kecamatan, kabupaten, provinsi, kode_pos, nomor_kk,
			nama_ayah, nama_ibu, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		p.NIK,
		p.NamaLengkap,
		p.TempatLahir,
		p.TanggalLahir,
		p.JenisKelamin,
		p.Agama,
		p.StatusPerkawinan,
		p.Pekerjaan,
		p.Kewarganegaraan,
		p.Alamat,
		p.RT,
		p.RW,
		p.Kelurahan,
		p.Kecamatan,
		p.Kabupaten,
		p.Provinsi,
		p.KodePos,
		p.NomorKK,
		p.NamaAyah,
		p.NamaIbu,
		p.CreatedBy,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Population{}, ErrDuplicateKey
		}
		return types.Population{}, err
	}
	return p, nil
}

func (r *PopulationRepository) Update(ctx context.Context, p types.Population) (types.Population, error) {
	p.UpdatedAt = time.Now()

	const query = `
		UPDATE population
		SET nik = $1,
			nama_lengkap = $2,
			tempat_lahir = $3,
			tanggal_lahir = $4,
			jenis_kelamin = $5,
			agama = $6,
			status_perkawinan = $7,
			pekerjaan = $8,
			kewarganegaraan = $9,
			alamat = $10,
			rt = $11,
			rw = $12,
			kelurahan = $13,
			kecamatan = $14,
			kabupaten = $15,
			provinsi = $16,
			kode_pos = $17,
			nomor_kk = $18,
			nama_ayah = $19,
			nama_ibu = $20,
			updated_at = $21
		WHERE id = $22`
	result, err := r.db.ExecContext(
		ctx,
		query,
		p.NIK,
		p.NamaLengkap,
		p.TempatLahir,
		p.TanggalLahir,
		p.JenisKelamin,
		p.Agama,
		p.StatusPerkawinan,
		p.Pekerjaan,
		p.Kewarganegaraan,
		p.Alamat,
		p.RT,
		p.RW,
		p.Kelurahan,
		p.Kecamatan,
		p.Kabupaten,
		p.Provinsi,
		p.KodePos,
		p.NomorKK,
		p.NamaAyah,
		p.NamaIbu,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Population{}, ErrDuplicateKey
		}
		return types.Population{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Population{}, err
	}
	if affected == 0 {
		return types.Population{}, ErrNotFound
	}
	return p, nil
}

func (r *PopulationRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM population WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
