package store

import (
	"context"

	"medivault-api/internal/model"
)

const userCols = `id, role, name, email, password_hash, phone_number, specialization,
	consultation_fee::float8, created_at, updated_at`

func scanUser(row scanner, u *model.User) error {
	return row.Scan(&u.ID, &u.Role, &u.Name, &u.Email, &u.PasswordHash, &u.PhoneNumber,
		&u.Specialization, &u.ConsultationFee, &u.CreatedAt, &u.UpdatedAt)
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, role, name, email, password_hash, phone_number, specialization, consultation_fee)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING created_at, updated_at`,
		u.ID, u.Role, u.Name, u.Email, u.PasswordHash, u.PhoneNumber, u.Specialization, u.ConsultationFee,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return model.ErrConflict
	}
	return err
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	row := s.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email)
	if err := scanUser(row, u); err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, model.ErrNotFound
	}
	u := &model.User{}
	row := s.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	if err := scanUser(row, u); err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *Store) ListDoctors(ctx context.Context) ([]model.DoctorSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, specialization FROM users WHERE role = 'doctor' ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.DoctorSummary{}
	for rows.Next() {
		var d model.DoctorSummary
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &d.Specialization); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
