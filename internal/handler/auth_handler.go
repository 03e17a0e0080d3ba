package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"medivault-api/internal/apperr"
	"medivault-api/internal/auth"
)

type registerRequest struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	Role            string  `json:"role"`
	PhoneNumber     string  `json:"phoneNumber"`
	Specialization  string  `json:"specialization"`
	ConsultationFee float64 `json:"consultationFee"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	s, err := h.accounts.Register(c.Request().Context(), auth.Registration{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		Role:            req.Role,
		PhoneNumber:     req.PhoneNumber,
		Specialization:  req.Specialization,
		ConsultationFee: req.ConsultationFee,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Registration successful", s)
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return apperr.Validation("email and password required")
	}
	s, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Login successful", s)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	s, err := h.accounts.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", s)
}

func (h *Handler) Logout(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.accounts.Logout(c.Request().Context(), cl); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Logged out", nil)
}
