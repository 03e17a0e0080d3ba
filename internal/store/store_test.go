package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"medivault-api/internal/model"
)

// testStore connects to DATABASE_URL when set, otherwise starts a throwaway
// postgres container. Skipped in -short mode or without docker.
func testStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres tests skipped in short mode")
	}
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:16-alpine",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_DB":       "medivault_test",
					"POSTGRES_USER":     "test",
					"POSTGRES_PASSWORD": "testpass",
				},
				WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			t.Skipf("postgres container unavailable: %v", err)
		}
		t.Cleanup(func() { _ = c.Terminate(context.Background()) })

		host, err := c.Host(ctx)
		require.NoError(t, err)
		port, err := c.MappedPort(ctx, "5432")
		require.NoError(t, err)
		dbURL = fmt.Sprintf("postgres://test:testpass@%s:%s/medivault_test?sslmode=disable", host, port.Port())
	}

	var pool interface{ Close() }
	var st *Store
	// the listening port can open a moment before postgres accepts logins
	require.Eventually(t, func() bool {
		p, err := NewPool(ctx, dbURL, 4, 1)
		if err != nil {
			return false
		}
		pool, st = p, New(p)
		return true
	}, 30*time.Second, 500*time.Millisecond)
	t.Cleanup(pool.Close)

	m, err := NewMigrator(st.pool, zerolog.Nop())
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.Up(ctx))

	_, err = st.pool.Exec(ctx, `TRUNCATE refresh_tokens, appointments, users CASCADE`)
	require.NoError(t, err)
	return st
}

func seedUser(t *testing.T, st interface {
	CreateUser(context.Context, *model.User) error
}, role model.Role, name string) *model.User {
	t.Helper()
	u := &model.User{
		ID:              uuid.New().String(),
		Role:            role,
		Name:            name,
		Email:           uuid.New().String()[:8] + "@medivault.test",
		PasswordHash:    "x",
		ConsultationFee: 50,
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func TestStore_AppointmentCRUD(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	p := seedUser(t, st, model.RolePatient, "Pat")
	d := seedUser(t, st, model.RoleDoctor, "Doc")

	a := &model.Appointment{
		ID: uuid.New().String(), PatientID: p.ID, DoctorID: d.ID,
		Date: "2024-07-01", Time: "10:00", Reason: "checkup",
		ConsultationFee: 50, Status: model.StatusScheduled,
	}
	require.NoError(t, st.CreateAppointment(ctx, a))
	assert.False(t, a.CreatedAt.IsZero())

	got, err := st.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Reason, got.Reason)
	assert.Equal(t, 50.0, got.ConsultationFee)
	assert.Equal(t, model.StatusScheduled, got.Status)

	got.Status = model.StatusConfirmed
	got.Symptoms = "cough"
	require.NoError(t, st.UpdateAppointment(ctx, got))

	again, err := st.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, again.Status)
	assert.Equal(t, "cough", again.Symptoms)

	require.NoError(t, st.DeleteAppointment(ctx, a.ID))
	_, err = st.GetAppointment(ctx, a.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, st.DeleteAppointment(ctx, a.ID), model.ErrNotFound)
}

func TestStore_NonUUIDIsNotFound(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	_, err := st.GetAppointment(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = st.UserByID(ctx, "42")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, st.DeleteAppointment(ctx, "nope"), model.ErrNotFound)
}

func TestStore_ListFiltersAndOrder(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	p1 := seedUser(t, st, model.RolePatient, "P1")
	p2 := seedUser(t, st, model.RolePatient, "P2")
	d1 := seedUser(t, st, model.RoleDoctor, "D1")
	d2 := seedUser(t, st, model.RoleDoctor, "D2")

	mk := func(p, d *model.User) string {
		a := &model.Appointment{ID: uuid.New().String(), PatientID: p.ID, DoctorID: d.ID,
			Date: "2024-07-01", Time: "09:00", Reason: "r", Status: model.StatusScheduled}
		require.NoError(t, st.CreateAppointment(ctx, a))
		return a.ID
	}
	a1, a2, a3 := mk(p1, d1), mk(p1, d2), mk(p2, d1)

	ids := func(f model.AppointmentFilter) []string {
		list, err := st.ListAppointments(ctx, f)
		require.NoError(t, err)
		var out []string
		for _, a := range list {
			out = append(out, a.ID)
		}
		return out
	}

	assert.Equal(t, []string{a1, a2, a3}, ids(model.AppointmentFilter{}))
	assert.Equal(t, []string{a1, a2}, ids(model.AppointmentFilter{PatientID: p1.ID}))
	assert.Equal(t, []string{a1, a3}, ids(model.AppointmentFilter{DoctorID: d1.ID}))
	assert.Equal(t, []string{a1}, ids(model.AppointmentFilter{PatientID: p1.ID, DoctorID: d1.ID}))
	assert.Empty(t, ids(model.AppointmentFilter{PatientID: "garbage"}))
}

func TestStore_Users(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	d := seedUser(t, st, model.RoleDoctor, "Zed")
	seedUser(t, st, model.RoleDoctor, "Amy")
	seedUser(t, st, model.RolePatient, "Pat")

	byEmail, err := st.UserByEmail(ctx, d.Email)
	require.NoError(t, err)
	assert.Equal(t, d.ID, byEmail.ID)
	assert.Equal(t, model.RoleDoctor, byEmail.Role)

	dup := *d
	dup.ID = uuid.New().String()
	assert.ErrorIs(t, st.CreateUser(ctx, &dup), model.ErrConflict)

	docs, err := st.ListDoctors(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Amy", docs[0].Name)
	assert.Equal(t, "Zed", docs[1].Name)
}

func TestStore_RefreshRotation(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	u := seedUser(t, st, model.RolePatient, "Pat")

	id, err := st.CreateRefreshToken(ctx, u.ID, "hash-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	newID, err := st.RotateRefreshToken(ctx, id, u.ID, "hash-2", time.Now().Add(time.Hour))
	require.NoError(t, err)

	old, err := st.RefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, old.Revoked)
	require.NotNil(t, old.ReplacedBy)
	assert.Equal(t, newID, *old.ReplacedBy)

	// second rotation of the same token loses
	_, err = st.RotateRefreshToken(ctx, id, u.ID, "hash-3", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, st.RevokeRefreshTokens(ctx, u.ID))
	cur, err := st.RefreshTokenByHash(ctx, "hash-2")
	require.NoError(t, err)
	assert.True(t, cur.Revoked)
}
