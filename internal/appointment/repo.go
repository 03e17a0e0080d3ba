package appointment

import (
	"context"

	"medivault-api/internal/model"
)

// Store persists appointments. Implementations set CreatedAt/UpdatedAt and
// return model.ErrNotFound for missing ids. List returns records in insertion order.
type Store interface {
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	ListAppointments(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error)
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error
}

// Directory is read-only access to users.
type Directory interface {
	UserByID(ctx context.Context, id string) (*model.User, error)
	ListDoctors(ctx context.Context) ([]model.DoctorSummary, error)
}
