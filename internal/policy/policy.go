// Package policy decides who may act on an appointment. It has no side
// effects and never returns an error: a denial is a Decision like any other.
package policy

import "medivault-api/internal/model"

type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// CanAccess evaluates caller against appt for op. For OpCreate, appt is the
// record about to be stored.
func CanAccess(caller model.Caller, appt *model.Appointment, op Operation) Decision {
	if appt == nil {
		return deny("no appointment")
	}

	switch caller.Role {
	case model.RoleAdmin:
		return allow()

	case model.RolePatient:
		switch op {
		case OpCreate:
			if appt.PatientID == caller.ID {
				return allow()
			}
			return deny("patients may only book for themselves")
		case OpRead:
			return participant(caller, appt, "access")
		case OpUpdate:
			return participant(caller, appt, "update")
		case OpDelete:
			if appt.PatientID == caller.ID {
				return allow()
			}
			return deny("Not authorized to delete this appointment")
		}

	case model.RoleDoctor:
		switch op {
		case OpCreate:
			return deny("doctors cannot book appointments on behalf of patients")
		case OpRead:
			return participant(caller, appt, "access")
		case OpUpdate:
			return participant(caller, appt, "update")
		case OpDelete:
			// doctors change status, they never delete
			return deny("Not authorized to delete this appointment")
		}
	}
	return deny("forbidden")
}

func participant(caller model.Caller, appt *model.Appointment, verb string) Decision {
	if appt.PatientID == caller.ID || appt.DoctorID == caller.ID {
		return allow()
	}
	return deny("Not authorized to " + verb + " this appointment")
}
