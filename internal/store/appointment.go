package store

import (
	"context"

	"medivault-api/internal/model"
)

const appointmentCols = `id, patient_id, doctor_id, date, time, reason, symptoms,
	consultation_fee::float8, status, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row scanner, a *model.Appointment) error {
	return row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.Time, &a.Reason,
		&a.Symptoms, &a.ConsultationFee, &a.Status, &a.CreatedAt, &a.UpdatedAt)
}

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO appointments (id, patient_id, doctor_id, date, time, reason, symptoms, consultation_fee, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.Date, a.Time, a.Reason, a.Symptoms, a.ConsultationFee, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	if !validID(id) {
		return nil, model.ErrNotFound
	}
	a := &model.Appointment{}
	row := s.pool.QueryRow(ctx, `SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id)
	if err := scanAppointment(row, a); err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *Store) ListAppointments(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error) {
	q := `SELECT ` + appointmentCols + ` FROM appointments WHERE TRUE`
	var args []any

	if f.PatientID != "" {
		if !validID(f.PatientID) {
			return nil, nil
		}
		args = append(args, f.PatientID)
		q += ` AND patient_id = $1`
	}
	if f.DoctorID != "" {
		if !validID(f.DoctorID) {
			return nil, nil
		}
		args = append(args, f.DoctorID)
		if len(args) == 1 {
			q += ` AND doctor_id = $1`
		} else {
			q += ` AND doctor_id = $2`
		}
	}
	q += ` ORDER BY seq`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := scanAppointment(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAppointment writes the mutable fields. Participants and fee are fixed
// at creation.
func (s *Store) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	if !validID(a.ID) {
		return model.ErrNotFound
	}
	err := s.pool.QueryRow(ctx,
		`UPDATE appointments
		 SET date=$1, time=$2, reason=$3, symptoms=$4, status=$5, updated_at=NOW()
		 WHERE id=$6
		 RETURNING updated_at`,
		a.Date, a.Time, a.Reason, a.Symptoms, a.Status, a.ID,
	).Scan(&a.UpdatedAt)
	return notFound(err)
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	if !validID(id) {
		return model.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
