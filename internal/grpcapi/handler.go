package grpcapi

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"medivault-api/internal/apperr"
	"medivault-api/internal/appointment"
	"medivault-api/internal/auth"
	"medivault-api/internal/middleware"
	"medivault-api/internal/model"
)

type Handler struct {
	appts    *appointment.Service
	accounts *auth.Accounts
}

func NewHandler(appts *appointment.Service, accounts *auth.Accounts) *Handler {
	return &Handler{appts: appts, accounts: accounts}
}

var codeByKind = map[apperr.Kind]codes.Code{
	apperr.KindValidation:   codes.InvalidArgument,
	apperr.KindNotFound:     codes.NotFound,
	apperr.KindForbidden:    codes.PermissionDenied,
	apperr.KindConflict:     codes.AlreadyExists,
	apperr.KindUnauthorized: codes.Unauthenticated,
	apperr.KindRateLimited:  codes.ResourceExhausted,
	apperr.KindInternal:     codes.Internal,
}

// toStatus maps service errors onto gRPC codes. The cause of an internal
// error stays in the server log.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(codeByKind[apperr.KindOf(err)], apperr.Message(err))
}

func caller(ctx context.Context) (model.Caller, error) {
	c, ok := middleware.CallerFromContext(ctx)
	if !ok {
		return model.Caller{}, status.Error(codes.Unauthenticated, "no caller")
	}
	return c, nil
}

func (h *Handler) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*AppointmentResponse, error) {
	c, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	v, err := h.appts.Create(ctx, c, appointment.CreateInput{
		DoctorID: req.DoctorID,
		Date:     req.Date,
		Time:     req.Time,
		Reason:   req.Reason,
		Symptoms: req.Symptoms,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &AppointmentResponse{Appointment: v}, nil
}

func (h *Handler) ListAppointments(ctx context.Context, _ *ListAppointmentsRequest) (*ListAppointmentsResponse, error) {
	c, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	views, err := h.appts.List(ctx, c)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListAppointmentsResponse{Appointments: views, Count: len(views)}, nil
}

func (h *Handler) GetAppointment(ctx context.Context, req *GetAppointmentRequest) (*AppointmentResponse, error) {
	c, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	v, err := h.appts.Get(ctx, c, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &AppointmentResponse{Appointment: v}, nil
}

func (h *Handler) UpdateAppointment(ctx context.Context, req *UpdateAppointmentRequest) (*AppointmentResponse, error) {
	c, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	v, err := h.appts.Update(ctx, c, req.ID, appointment.Patch{
		Status:   req.Status,
		Date:     req.Date,
		Time:     req.Time,
		Reason:   req.Reason,
		Symptoms: req.Symptoms,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &AppointmentResponse{Appointment: v}, nil
}

func (h *Handler) DeleteAppointment(ctx context.Context, req *DeleteAppointmentRequest) (*DeleteAppointmentResponse, error) {
	c, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	if err := h.appts.Delete(ctx, c, req.ID); err != nil {
		return nil, toStatus(err)
	}
	return &DeleteAppointmentResponse{Message: "Appointment deleted successfully"}, nil
}

func (h *Handler) ListDoctors(ctx context.Context, _ *ListDoctorsRequest) (*ListDoctorsResponse, error) {
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	docs, err := h.appts.ListDoctors(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListDoctorsResponse{Doctors: docs, Count: len(docs)}, nil
}

func (h *Handler) Register(ctx context.Context, req *RegisterRequest) (*auth.Session, error) {
	s, err := h.accounts.Register(ctx, auth.Registration{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		Role:            req.Role,
		PhoneNumber:     req.PhoneNumber,
		Specialization:  req.Specialization,
		ConsultationFee: req.ConsultationFee,
	})
	return s, toStatus(err)
}

func (h *Handler) Login(ctx context.Context, req *LoginRequest) (*auth.Session, error) {
	if req.Email == "" || req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "email and password required")
	}
	s, err := h.accounts.Login(ctx, req.Email, req.Password)
	return s, toStatus(err)
}

func (h *Handler) Refresh(ctx context.Context, req *RefreshRequest) (*auth.Session, error) {
	s, err := h.accounts.Refresh(ctx, req.RefreshToken)
	return s, toStatus(err)
}
