package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"medivault-api/internal/model"
)

// Memory is a process-local store with the same contract as Store. It backs
// STORE_DRIVER=memory and the handler tests.
type Memory struct {
	mu     sync.RWMutex
	now    func() time.Time
	users  map[string]model.User
	emails map[string]string
	appts  map[string]model.Appointment
	order  []string
	tokens map[string]model.RefreshToken
}

func NewMemory() *Memory {
	return &Memory{
		now:    time.Now,
		users:  map[string]model.User{},
		emails: map[string]string{},
		appts:  map[string]model.Appointment{},
		tokens: map[string]model.RefreshToken{},
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, ok := m.emails[key]; ok {
		return model.ErrConflict
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := m.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = *u
	m.emails[key] = u.ID
	return nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return nil, model.ErrNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *Memory) UserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &u, nil
}

func (m *Memory) ListDoctors(context.Context) ([]model.DoctorSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.DoctorSummary{}
	for _, u := range m.users {
		if u.Role != model.RoleDoctor {
			continue
		}
		out = append(out, model.DoctorSummary{ID: u.ID, Name: u.Name, Email: u.Email, Specialization: u.Specialization})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) CreateAppointment(_ context.Context, a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	m.appts[a.ID] = *a
	m.order = append(m.order, a.ID)
	return nil
}

func (m *Memory) GetAppointment(_ context.Context, id string) (*model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.appts[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &a, nil
}

func (m *Memory) ListAppointments(_ context.Context, f model.AppointmentFilter) ([]model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Appointment
	for _, id := range m.order {
		a := m.appts[id]
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *Memory) UpdateAppointment(_ context.Context, a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.appts[a.ID]
	if !ok {
		return model.ErrNotFound
	}
	cur.Date, cur.Time, cur.Reason, cur.Symptoms, cur.Status = a.Date, a.Time, a.Reason, a.Symptoms, a.Status
	cur.UpdatedAt = m.now().UTC()
	m.appts[a.ID] = cur
	a.UpdatedAt = cur.UpdatedAt
	return nil
}

func (m *Memory) DeleteAppointment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.appts[id]; !ok {
		return model.ErrNotFound
	}
	delete(m.appts, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) CreateRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.tokens[id] = model.RefreshToken{
		ID: id, UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: m.now().UTC(),
	}
	return id, nil
}

func (m *Memory) RefreshTokenByHash(_ context.Context, tokenHash string) (*model.RefreshToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rt := range m.tokens {
		if rt.TokenHash == tokenHash {
			return &rt, nil
		}
	}
	return nil, model.ErrNotFound
}

func (m *Memory) RotateRefreshToken(_ context.Context, oldID, userID, newHash string, newExpiry time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.tokens[oldID]
	if !ok || old.Revoked || old.UserID != userID {
		return "", model.ErrNotFound
	}
	newID := uuid.New().String()
	old.Revoked = true
	old.ReplacedBy = &newID
	m.tokens[oldID] = old
	m.tokens[newID] = model.RefreshToken{
		ID: newID, UserID: userID, TokenHash: newHash, ExpiresAt: newExpiry, CreatedAt: m.now().UTC(),
	}
	return newID, nil
}

func (m *Memory) RevokeRefreshTokens(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, rt := range m.tokens {
		if rt.UserID == userID && !rt.Revoked {
			rt.Revoked = true
			m.tokens[id] = rt
		}
	}
	return nil
}
