// Package lifecycle owns the appointment status state machine.
package lifecycle

import (
	"strings"

	"medivault-api/internal/apperr"
	"medivault-api/internal/model"
)

// Initial is the status every new appointment starts in.
const Initial = model.StatusScheduled

var statuses = map[model.Status]bool{
	model.StatusScheduled: true,
	model.StatusConfirmed: true,
	model.StatusCompleted: true,
	model.StatusCancelled: true,
}

// edges are the documented forward transitions. Only strict mode enforces them.
var edges = map[model.Status][]model.Status{
	model.StatusScheduled: {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusCompleted, model.StatusCancelled},
}

// ParseStatus validates a status literal. "pending" is accepted as the
// client-side name for scheduled.
func ParseStatus(s string) (model.Status, error) {
	v := model.Status(strings.ToLower(strings.TrimSpace(s)))
	if v == "pending" {
		return model.StatusScheduled, nil
	}
	if !statuses[v] {
		return "", apperr.Validation("invalid status: " + s)
	}
	return v, nil
}

func Valid(s model.Status) bool { return statuses[s] }

type Engine struct {
	strict bool
}

// New returns an engine. A non-strict engine accepts any enumerated status
// from any state, matching what clients have always been allowed to do.
func New(strict bool) *Engine {
	return &Engine{strict: strict}
}

// Transition validates moving from current to the requested literal and
// returns the status to store.
func (e *Engine) Transition(current model.Status, requested string) (model.Status, error) {
	next, err := ParseStatus(requested)
	if err != nil {
		return "", err
	}
	if next == current || !e.strict {
		return next, nil
	}
	for _, to := range edges[current] {
		if to == next {
			return next, nil
		}
	}
	return "", apperr.Validation("cannot move appointment from " + string(current) + " to " + string(next))
}

// Apply runs Transition and writes the result onto appt.
func (e *Engine) Apply(appt *model.Appointment, requested string) error {
	next, err := e.Transition(appt.Status, requested)
	if err != nil {
		return err
	}
	appt.Status = next
	return nil
}
