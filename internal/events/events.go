// Package events publishes appointment lifecycle events. Publishing is best
// effort and never fails the request that caused it.
package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"medivault-api/internal/model"
)

type Type string

const (
	AppointmentCreated Type = "appointment.created"
	AppointmentUpdated Type = "appointment.updated"
	AppointmentDeleted Type = "appointment.deleted"
)

type Event struct {
	ID             string       `json:"id"`
	Type           Type         `json:"type"`
	AppointmentID  string       `json:"appointmentId"`
	PatientID      string       `json:"patientId"`
	DoctorID       string       `json:"doctorId"`
	Status         model.Status `json:"status"`
	PreviousStatus model.Status `json:"previousStatus,omitempty"`
	ActorID        string       `json:"actorId"`
	ActorRole      model.Role   `json:"actorRole"`
	OccurredAt     time.Time    `json:"occurredAt"`
}

// New builds an event for appt caused by caller.
func New(t Type, caller model.Caller, appt *model.Appointment) Event {
	return Event{
		ID:            uuid.New().String(),
		Type:          t,
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		DoctorID:      appt.DoctorID,
		Status:        appt.Status,
		ActorID:       caller.ID,
		ActorRole:     caller.Role,
		OccurredAt:    time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
