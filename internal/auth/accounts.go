package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medivault-api/internal/apperr"
	"medivault-api/internal/model"
)

// AccountStore is what account flows need from persistence.
type AccountStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	RefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, userID, newHash string, newExpiry time.Time) (string, error)
	RevokeRefreshTokens(ctx context.Context, userID string) error
}

type Accounts struct {
	store      AccountStore
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        zerolog.Logger
	created    []func(context.Context, *model.User)
}

func NewAccounts(st AccountStore, secret string, accessTTL, refreshTTL time.Duration, log zerolog.Logger) *Accounts {
	return &Accounts{store: st, secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL, log: log}
}

// OnUserCreated registers fn to run after every successful user insert.
func (a *Accounts) OnUserCreated(fn func(context.Context, *model.User)) {
	a.created = append(a.created, fn)
}

type Registration struct {
	Name            string
	Email           string
	Password        string
	Role            string
	PhoneNumber     string
	Specialization  string
	ConsultationFee float64
}

// Session is what a successful register, login or refresh hands back.
type Session struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         *model.User `json:"user"`
}

const minPasswordLen = 8

// Register creates a patient or doctor account. Admins are provisioned out of
// band with CreateUser.
func (a *Accounts) Register(ctx context.Context, r Registration) (*Session, error) {
	role := model.RolePatient
	if strings.TrimSpace(r.Role) != "" {
		parsed, err := model.ParseRole(strings.ToLower(strings.TrimSpace(r.Role)))
		if err != nil || parsed == model.RoleAdmin {
			return nil, apperr.Validation("role must be patient or doctor")
		}
		role = parsed
	}
	u, err := a.CreateUser(ctx, r, role)
	if err != nil {
		return nil, err
	}
	return a.issue(ctx, u)
}

// CreateUser validates and stores a user with the given role.
func (a *Accounts) CreateUser(ctx context.Context, r Registration, role model.Role) (*model.User, error) {
	name := strings.TrimSpace(r.Name)
	email := strings.ToLower(strings.TrimSpace(r.Email))
	if name == "" || email == "" || r.Password == "" {
		return nil, apperr.Validation("name, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("invalid email")
	}
	if len(r.Password) < minPasswordLen {
		return nil, apperr.Validation("password must be at least 8 characters")
	}
	if r.ConsultationFee < 0 {
		return nil, apperr.Validation("consultationFee cannot be negative")
	}

	hash, err := HashPassword(r.Password)
	if err != nil {
		return nil, a.internal("register", err)
	}
	u := &model.User{
		ID:           uuid.New().String(),
		Role:         role,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		PhoneNumber:  strings.TrimSpace(r.PhoneNumber),
	}
	if role == model.RoleDoctor {
		u.Specialization = strings.TrimSpace(r.Specialization)
		u.ConsultationFee = r.ConsultationFee
	}

	if err := a.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, apperr.Conflict("registration failed")
		}
		return nil, a.internal("register", err)
	}
	for _, fn := range a.created {
		fn(ctx, u)
	}
	return u, nil
}

func (a *Accounts) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := a.store.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, a.internal("login", err)
	}
	// same answer for unknown email and wrong password
	if u == nil || !CheckPassword(u.PasswordHash, password) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return a.issue(ctx, u)
}

// Refresh rotates a refresh token. Presenting a token that was already
// rotated revokes every session of its owner.
func (a *Accounts) Refresh(ctx context.Context, raw string) (*Session, error) {
	if raw == "" {
		return nil, apperr.Unauthorized("refresh token required")
	}
	rt, err := a.store.RefreshTokenByHash(ctx, HashRefreshToken(raw))
	if errors.Is(err, model.ErrNotFound) {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return nil, a.internal("refresh", err)
	}
	if rt.Revoked {
		a.log.Warn().Str("user_id", rt.UserID).Msg("refresh token reuse, revoking sessions")
		if err := a.store.RevokeRefreshTokens(ctx, rt.UserID); err != nil {
			return nil, a.internal("refresh", err)
		}
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	if time.Now().After(rt.ExpiresAt) {
		return nil, apperr.Unauthorized("refresh token expired")
	}

	u, err := a.store.UserByID(ctx, rt.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return nil, a.internal("refresh", err)
	}

	newRaw, newHash, err := GenerateRefreshToken()
	if err != nil {
		return nil, a.internal("refresh", err)
	}
	if _, err := a.store.RotateRefreshToken(ctx, rt.ID, u.ID, newHash, time.Now().Add(a.refreshTTL)); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid refresh token")
		}
		return nil, a.internal("refresh", err)
	}
	access, err := MakeToken(u.ID, u.Role, a.secret, a.accessTTL)
	if err != nil {
		return nil, a.internal("refresh", err)
	}
	return &Session{AccessToken: access, RefreshToken: newRaw, User: u}, nil
}

func (a *Accounts) Logout(ctx context.Context, caller model.Caller) error {
	if err := a.store.RevokeRefreshTokens(ctx, caller.ID); err != nil {
		return a.internal("logout", err)
	}
	return nil
}

// Verify checks an access token and returns its caller.
func (a *Accounts) Verify(raw string) (model.Caller, error) {
	c, err := ParseToken(raw, a.secret)
	if err != nil {
		return model.Caller{}, err
	}
	return c.Caller()
}

func (a *Accounts) issue(ctx context.Context, u *model.User) (*Session, error) {
	access, err := MakeToken(u.ID, u.Role, a.secret, a.accessTTL)
	if err != nil {
		return nil, a.internal("issue", err)
	}
	raw, hash, err := GenerateRefreshToken()
	if err != nil {
		return nil, a.internal("issue", err)
	}
	if _, err := a.store.CreateRefreshToken(ctx, u.ID, hash, time.Now().Add(a.refreshTTL)); err != nil {
		return nil, a.internal("issue", err)
	}
	return &Session{AccessToken: access, RefreshToken: raw, User: u}, nil
}

func (a *Accounts) internal(op string, err error) error {
	a.log.Error().Err(err).Str("op", op).Msg("account failure")
	return apperr.Internal(err)
}
