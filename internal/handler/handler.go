package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"medivault-api/internal/apperr"
	"medivault-api/internal/appointment"
	"medivault-api/internal/auth"
	"medivault-api/internal/middleware"
	"medivault-api/internal/model"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	appts    *appointment.Service
	accounts *auth.Accounts
	db       Pinger
}

func New(appts *appointment.Service, accounts *auth.Accounts, db Pinger) *Handler {
	return &Handler{appts: appts, accounts: accounts, db: db}
}

// RegisterRoutes mounts everything under api. limit guards the unauthenticated
// account endpoints.
func (h *Handler) RegisterRoutes(api *echo.Group, limit echo.MiddlewareFunc) {
	requireAuth := middleware.RequireAuth(h.accounts)

	api.GET("/health", h.Health)

	a := api.Group("/auth")
	a.POST("/register", h.Register, limit)
	a.POST("/login", h.Login, limit)
	a.POST("/refresh", h.Refresh, limit)
	a.POST("/logout", h.Logout, requireAuth)

	// auth is attached per route so unmatched paths still fall through to 404
	g := api.Group("/appointments")
	g.GET("/doctors", h.ListDoctors, requireAuth)
	g.POST("", h.CreateAppointment, requireAuth)
	g.GET("", h.ListAppointments, requireAuth)
	g.GET("/:id", h.GetAppointment, requireAuth)
	g.PUT("/:id", h.UpdateAppointment, requireAuth)
	g.DELETE("/:id", h.DeleteAppointment, requireAuth)
}

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(c echo.Context, code int, msg string, data any) error {
	return c.JSON(code, Envelope{Success: true, Message: msg, Data: data})
}

func list(c echo.Context, data any, n int) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Count: &n, Data: data})
}

func caller(c echo.Context) (model.Caller, error) {
	cl, found := middleware.CallerFromContext(c.Request().Context())
	if !found {
		return model.Caller{}, apperr.Unauthorized("Not authorized, no token")
	}
	return cl, nil
}

func (h *Handler) Health(c echo.Context) error {
	if h.db != nil {
		if err := h.db.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, Envelope{Success: false, Message: "Database unavailable"})
		}
	}
	return ok(c, http.StatusOK, "MediVault API is running", nil)
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:   http.StatusBadRequest,
	apperr.KindNotFound:     http.StatusNotFound,
	apperr.KindForbidden:    http.StatusForbidden,
	apperr.KindConflict:     http.StatusConflict,
	apperr.KindUnauthorized: http.StatusUnauthorized,
	apperr.KindRateLimited:  http.StatusTooManyRequests,
	apperr.KindInternal:     http.StatusInternalServerError,
}

// ErrorHandler renders every error as an Envelope. Causes of internal errors
// are only exposed outside production.
func ErrorHandler(production bool, log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		body := Envelope{Message: "Server error"}

		var ae *apperr.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			code = statusByKind[ae.Kind]
			body.Message = ae.Message
			if ae.Kind == apperr.KindInternal && !production && ae.Err != nil {
				body.Error = ae.Err.Error()
			}
		case errors.As(err, &he):
			code = he.Code
			switch {
			case code == http.StatusNotFound:
				body.Message = "Route not found"
			case code >= http.StatusInternalServerError:
				if !production {
					body.Error = fmt.Sprint(he.Message)
				}
			default:
				body.Message = fmt.Sprint(he.Message)
			}
		default:
			if !production {
				body.Error = err.Error()
			}
		}

		if code >= http.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			log.Error().Err(err).Msg("write error response")
		}
	}
}
