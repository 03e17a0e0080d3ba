package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"medivault-api/internal/apperr"
	"medivault-api/internal/appointment"
)

type createAppointmentRequest struct {
	DoctorID string `json:"doctorId"`
	Doctor   string `json:"doctor"` // older clients send the id under this name
	Date     string `json:"date"`
	Time     string `json:"time"`
	Reason   string `json:"reason"`
	Symptoms string `json:"symptoms"`
}

type updateAppointmentRequest struct {
	Status   *string `json:"status"`
	Date     *string `json:"date"`
	Time     *string `json:"time"`
	Reason   *string `json:"reason"`
	Symptoms *string `json:"symptoms"`
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	var req createAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}
	doctorID := req.DoctorID
	if doctorID == "" {
		doctorID = req.Doctor
	}

	v, err := h.appts.Create(c.Request().Context(), cl, appointment.CreateInput{
		DoctorID: doctorID,
		Date:     req.Date,
		Time:     req.Time,
		Reason:   req.Reason,
		Symptoms: req.Symptoms,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Appointment created successfully", v)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	views, err := h.appts.List(c.Request().Context(), cl)
	if err != nil {
		return err
	}
	return list(c, views, len(views))
}

func (h *Handler) GetAppointment(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	v, err := h.appts.Get(c.Request().Context(), cl, c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", v)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	var req updateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid request body")
	}

	v, err := h.appts.Update(c.Request().Context(), cl, c.Param("id"), appointment.Patch{
		Status:   req.Status,
		Date:     req.Date,
		Time:     req.Time,
		Reason:   req.Reason,
		Symptoms: req.Symptoms,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Appointment updated successfully", v)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.appts.Delete(c.Request().Context(), cl, c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Appointment deleted successfully", nil)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	docs, err := h.appts.ListDoctors(c.Request().Context())
	if err != nil {
		return err
	}
	return list(c, docs, len(docs))
}
