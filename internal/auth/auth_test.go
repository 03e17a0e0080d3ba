package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medivault-api/internal/apperr"
	"medivault-api/internal/model"
	"medivault-api/internal/store"
)

const secret = "test-secret-at-least-32-bytes-long!!"

func TestToken_RoundTrip(t *testing.T) {
	raw, err := MakeToken("u1", model.RoleDoctor, secret, time.Minute)
	require.NoError(t, err)

	c, err := ParseToken(raw, secret)
	require.NoError(t, err)
	caller, err := c.Caller()
	require.NoError(t, err)
	assert.Equal(t, model.Caller{ID: "u1", Role: model.RoleDoctor}, caller)
}

func TestToken_Rejects(t *testing.T) {
	expired, err := MakeToken("u1", model.RolePatient, secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, secret)
	assert.Error(t, err)

	good, err := MakeToken("u1", model.RolePatient, secret, time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(good, "other-secret")
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1", Role: model.RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(none, secret)
	assert.Error(t, err)

	bad, err := MakeToken("u1", "superuser", secret, time.Minute)
	require.NoError(t, err)
	c, err := ParseToken(bad, secret)
	require.NoError(t, err)
	_, err = c.Caller()
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestRefreshTokenHash(t *testing.T) {
	raw, hash, err := GenerateRefreshToken()
	require.NoError(t, err)
	assert.Len(t, raw, 64)
	assert.Equal(t, hash, HashRefreshToken(raw))
	assert.NotEqual(t, raw, hash)
}

func newAccounts() *Accounts {
	return NewAccounts(store.NewMemory(), secret, time.Minute, time.Hour, zerolog.Nop())
}

func TestAccounts_RegisterAndLogin(t *testing.T) {
	a := newAccounts()
	ctx := context.Background()

	s, err := a.Register(ctx, Registration{
		Name: "Dr Who", Email: " WHO@Tardis.io ", Password: "password1", Role: "Doctor",
		Specialization: "time", ConsultationFee: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleDoctor, s.User.Role)
	assert.Equal(t, "who@tardis.io", s.User.Email)
	assert.Equal(t, 200.0, s.User.ConsultationFee)

	caller, err := a.Verify(s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, caller.ID)

	_, err = a.Login(ctx, "who@tardis.io", "wrong-password")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	_, err = a.Login(ctx, "nobody@tardis.io", "password1")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	again, err := a.Login(ctx, "Who@tardis.io", "password1")
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, again.User.ID)
}

func TestAccounts_RegisterValidation(t *testing.T) {
	a := newAccounts()
	ctx := context.Background()

	cases := []Registration{
		{Email: "a@b.io", Password: "password1"},
		{Name: "x", Email: "not-an-email", Password: "password1"},
		{Name: "x", Email: "a@b.io", Password: "short"},
		{Name: "x", Email: "a@b.io", Password: "password1", Role: "admin"},
		{Name: "x", Email: "a@b.io", Password: "password1", Role: "nurse"},
	}
	for _, r := range cases {
		_, err := a.Register(ctx, r)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "%+v", r)
	}

	_, err := a.Register(ctx, Registration{Name: "x", Email: "a@b.io", Password: "password1"})
	require.NoError(t, err)
	_, err = a.Register(ctx, Registration{Name: "y", Email: "a@b.io", Password: "password2"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestAccounts_PatientFieldsDropDoctorData(t *testing.T) {
	a := newAccounts()
	s, err := a.Register(context.Background(), Registration{
		Name: "Pat", Email: "pat@x.io", Password: "password1", Specialization: "none", ConsultationFee: 9,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RolePatient, s.User.Role)
	assert.Empty(t, s.User.Specialization)
	assert.Zero(t, s.User.ConsultationFee)
}

func TestAccounts_RefreshRotationAndReuse(t *testing.T) {
	a := newAccounts()
	ctx := context.Background()

	s, err := a.Register(ctx, Registration{Name: "Pat", Email: "pat@x.io", Password: "password1"})
	require.NoError(t, err)

	next, err := a.Refresh(ctx, s.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, s.RefreshToken, next.RefreshToken)

	// replaying the first token kills the whole family
	_, err = a.Refresh(ctx, s.RefreshToken)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	_, err = a.Refresh(ctx, next.RefreshToken)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = a.Refresh(ctx, "")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	_, err = a.Refresh(ctx, "garbage")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestAccounts_Logout(t *testing.T) {
	a := newAccounts()
	ctx := context.Background()

	s, err := a.Register(ctx, Registration{Name: "Pat", Email: "pat@x.io", Password: "password1"})
	require.NoError(t, err)
	require.NoError(t, a.Logout(ctx, model.Caller{ID: s.User.ID, Role: s.User.Role}))

	_, err = a.Refresh(ctx, s.RefreshToken)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestAccounts_OnUserCreated(t *testing.T) {
	a := newAccounts()
	var roles []model.Role
	a.OnUserCreated(func(_ context.Context, u *model.User) { roles = append(roles, u.Role) })

	_, err := a.Register(context.Background(), Registration{Name: "D", Email: "d@x.io", Password: "password1", Role: "doctor"})
	require.NoError(t, err)
	_, err = a.Register(context.Background(), Registration{Name: "D", Email: "d@x.io", Password: "password1"})
	require.Error(t, err)

	assert.Equal(t, []model.Role{model.RoleDoctor}, roles)
}
