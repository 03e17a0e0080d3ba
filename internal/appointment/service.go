package appointment

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medivault-api/internal/apperr"
	"medivault-api/internal/events"
	"medivault-api/internal/lifecycle"
	"medivault-api/internal/model"
	"medivault-api/internal/policy"
)

type Service struct {
	store  Store
	users  Directory
	engine *lifecycle.Engine
	events events.Publisher
	log    zerolog.Logger
}

func NewService(st Store, users Directory, engine *lifecycle.Engine, pub events.Publisher, log zerolog.Logger) *Service {
	if engine == nil {
		engine = lifecycle.New(false)
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{store: st, users: users, engine: engine, events: pub, log: log}
}

type CreateInput struct {
	DoctorID string
	Date     string
	Time     string
	Reason   string
	Symptoms string
}

// Patch holds the updatable fields; nil means "leave as is".
type Patch struct {
	Status   *string
	Date     *string
	Time     *string
	Reason   *string
	Symptoms *string
}

func (s *Service) Create(ctx context.Context, caller model.Caller, in CreateInput) (*model.AppointmentView, error) {
	in.DoctorID = strings.TrimSpace(in.DoctorID)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Reason = strings.TrimSpace(in.Reason)
	if in.DoctorID == "" || in.Date == "" || in.Time == "" || in.Reason == "" {
		return nil, apperr.Validation("Please provide all required fields")
	}

	doc, err := s.users.UserByID(ctx, in.DoctorID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && doc.Role != model.RoleDoctor) {
		return nil, apperr.NotFound("Doctor not found")
	}
	if err != nil {
		return nil, s.internal("create", err)
	}

	appt := &model.Appointment{
		ID:              uuid.New().String(),
		PatientID:       caller.ID,
		DoctorID:        doc.ID,
		Date:            in.Date,
		Time:            in.Time,
		Reason:          in.Reason,
		Symptoms:        strings.TrimSpace(in.Symptoms),
		ConsultationFee: doc.ConsultationFee,
		Status:          lifecycle.Initial,
	}
	if d := policy.CanAccess(caller, appt, policy.OpCreate); !d.Allowed {
		return nil, apperr.Forbidden(d.Reason)
	}

	if err := s.store.CreateAppointment(ctx, appt); err != nil {
		return nil, s.internal("create", err)
	}
	s.events.Publish(ctx, events.New(events.AppointmentCreated, caller, appt))

	return s.join(ctx, appt, map[string]*model.Party{}, false)
}

// List returns the caller's appointments ordered by date, then time. Ties keep
// store order.
func (s *Service) List(ctx context.Context, caller model.Caller) ([]*model.AppointmentView, error) {
	var f model.AppointmentFilter
	switch caller.Role {
	case model.RolePatient:
		f.PatientID = caller.ID
	case model.RoleDoctor:
		f.DoctorID = caller.ID
	case model.RoleAdmin:
	default:
		return nil, apperr.Forbidden("Not authorized to list appointments")
	}

	appts, err := s.store.ListAppointments(ctx, f)
	if err != nil {
		return nil, s.internal("list", err)
	}
	sort.SliceStable(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date < appts[j].Date
		}
		return appts[i].Time < appts[j].Time
	})

	parties := map[string]*model.Party{}
	out := make([]*model.AppointmentView, 0, len(appts))
	for i := range appts {
		v, err := s.join(ctx, &appts[i], parties, true)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, caller model.Caller, id string) (*model.AppointmentView, error) {
	appt, err := s.fetch(ctx, "get", id)
	if err != nil {
		return nil, err
	}
	if d := policy.CanAccess(caller, appt, policy.OpRead); !d.Allowed {
		return nil, apperr.Forbidden(d.Reason)
	}
	return s.join(ctx, appt, map[string]*model.Party{}, true)
}

func (s *Service) Update(ctx context.Context, caller model.Caller, id string, p Patch) (*model.AppointmentView, error) {
	appt, err := s.fetch(ctx, "update", id)
	if err != nil {
		return nil, err
	}
	if d := policy.CanAccess(caller, appt, policy.OpUpdate); !d.Allowed {
		return nil, apperr.Forbidden(d.Reason)
	}

	next := *appt
	if p.Status != nil {
		if err := s.engine.Apply(&next, *p.Status); err != nil {
			return nil, err
		}
	}
	for _, f := range []struct {
		name string
		in   *string
		dst  *string
	}{
		{"date", p.Date, &next.Date},
		{"time", p.Time, &next.Time},
		{"reason", p.Reason, &next.Reason},
	} {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if v == "" {
			return nil, apperr.Validation(f.name + " cannot be empty")
		}
		*f.dst = v
	}
	if p.Symptoms != nil {
		next.Symptoms = strings.TrimSpace(*p.Symptoms)
	}

	// nothing changed: skip the write so repeated terminal updates are no-ops
	if next == *appt {
		return s.join(ctx, appt, map[string]*model.Party{}, false)
	}

	if err := s.store.UpdateAppointment(ctx, &next); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, apperr.NotFound("Appointment not found")
		}
		return nil, s.internal("update", err)
	}

	ev := events.New(events.AppointmentUpdated, caller, &next)
	if next.Status != appt.Status {
		ev.PreviousStatus = appt.Status
	}
	s.events.Publish(ctx, ev)

	return s.join(ctx, &next, map[string]*model.Party{}, false)
}

func (s *Service) Delete(ctx context.Context, caller model.Caller, id string) error {
	appt, err := s.fetch(ctx, "delete", id)
	if err != nil {
		return err
	}
	if d := policy.CanAccess(caller, appt, policy.OpDelete); !d.Allowed {
		return apperr.Forbidden(d.Reason)
	}
	if err := s.store.DeleteAppointment(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return apperr.NotFound("Appointment not found")
		}
		return s.internal("delete", err)
	}
	s.events.Publish(ctx, events.New(events.AppointmentDeleted, caller, appt))
	return nil
}

// ListDoctors is open to every authenticated caller.
func (s *Service) ListDoctors(ctx context.Context) ([]model.DoctorSummary, error) {
	docs, err := s.users.ListDoctors(ctx)
	if err != nil {
		return nil, s.internal("list_doctors", err)
	}
	if docs == nil {
		docs = []model.DoctorSummary{}
	}
	return docs, nil
}

func (s *Service) fetch(ctx context.Context, op, id string) (*model.Appointment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.NotFound("Appointment not found")
	}
	appt, err := s.store.GetAppointment(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, apperr.NotFound("Appointment not found")
	}
	if err != nil {
		return nil, s.internal(op, err)
	}
	return appt, nil
}

// join resolves patient and doctor identities for display. parties memoizes
// lookups across one call. The patient's phone is only shown on reads.
func (s *Service) join(ctx context.Context, appt *model.Appointment, parties map[string]*model.Party, patientPhone bool) (*model.AppointmentView, error) {
	v := &model.AppointmentView{Appointment: *appt}
	var err error
	if v.Patient, err = s.party(ctx, appt.PatientID, parties, patientPhone); err != nil {
		return nil, err
	}
	if v.Doctor, err = s.party(ctx, appt.DoctorID, parties, false); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) party(ctx context.Context, id string, parties map[string]*model.Party, withPhone bool) (*model.Party, error) {
	if p, ok := parties[id]; ok {
		return withoutPhone(p, withPhone), nil
	}
	u, err := s.users.UserByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		parties[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, s.internal("join", err)
	}
	p := &model.Party{ID: u.ID, Name: u.Name, Email: u.Email, PhoneNumber: u.PhoneNumber}
	parties[id] = p
	return withoutPhone(p, withPhone), nil
}

func withoutPhone(p *model.Party, keep bool) *model.Party {
	if p == nil || keep {
		return p
	}
	cp := *p
	cp.PhoneNumber = ""
	return &cp
}

func (s *Service) internal(op string, err error) error {
	s.log.Error().Err(err).Str("op", op).Msg("appointment service failure")
	return apperr.Internal(err)
}
