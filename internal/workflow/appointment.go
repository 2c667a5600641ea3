package workflow

import (
	"strings"
	"time"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/pkg/errors"
)

type AppointmentAction string

const (
	ActionCheckIn              AppointmentAction = "check_in"
	ActionEnterVitals          AppointmentAction = "enter_vitals"
	ActionHoldForResults       AppointmentAction = "hold_for_results"
	ActionCompleteConsultation AppointmentAction = "complete_consultation"
	ActionClose                AppointmentAction = "close"
	ActionCancel               AppointmentAction = "cancel"
	ActionEdit                 AppointmentAction = "edit"
)

type appointmentRule struct {
	from  []model.AppointmentStatus
	to    model.AppointmentStatus
	roles []model.Role
}

var appointmentRules = map[AppointmentAction]appointmentRule{
	ActionCheckIn: {
		from:  []model.AppointmentStatus{model.AppointmentStatusScheduled},
		to:    model.AppointmentStatusCheckedIn,
		roles: []model.Role{model.RoleReceptionist},
	},
	ActionEnterVitals: {
		from:  []model.AppointmentStatus{model.AppointmentStatusCheckedIn},
		to:    model.AppointmentStatusInConsultation,
		roles: []model.Role{model.RoleNurse},
	},
	ActionHoldForResults: {
		from:  []model.AppointmentStatus{model.AppointmentStatusInConsultation},
		to:    model.AppointmentStatusWaitingResults,
		roles: []model.Role{model.RoleDoctor},
	},
	ActionCompleteConsultation: {
		from:  []model.AppointmentStatus{model.AppointmentStatusInConsultation, model.AppointmentStatusWaitingResults},
		to:    model.AppointmentStatusConsultationCompleted,
		roles: []model.Role{model.RoleDoctor},
	},
	ActionClose: {
		from:  []model.AppointmentStatus{model.AppointmentStatusConsultationCompleted},
		to:    model.AppointmentStatusCompleted,
		roles: []model.Role{model.RoleBilling},
	},
	ActionCancel: {
		from:  []model.AppointmentStatus{model.AppointmentStatusScheduled},
		to:    model.AppointmentStatusCancelled,
		roles: []model.Role{model.RoleReceptionist, model.RoleAdmin},
	},
}

var editRoles = []model.Role{model.RoleAdmin, model.RoleReceptionist}

var createAppointmentRoles = []model.Role{model.RoleReceptionist, model.RoleAdmin}

// AppointmentActions returns the lifecycle actions, edit excluded.
func AppointmentActions() []AppointmentAction {
	return []AppointmentAction{
		ActionCheckIn,
		ActionEnterVitals,
		ActionHoldForResults,
		ActionCompleteConsultation,
		ActionClose,
		ActionCancel,
	}
}

// AllowedFrom returns the statuses action may start from.
func (a AppointmentAction) AllowedFrom() []model.AppointmentStatus {
	rule, ok := appointmentRules[a]
	if !ok {
		return nil
	}
	out := make([]model.AppointmentStatus, len(rule.from))
	copy(out, rule.from)
	return out
}

// CheckAppointment decides whether actor may run action on apt and returns
// the target status. Role is checked before state.
func CheckAppointment(apt *model.Appointment, action AppointmentAction, actor model.Actor) (model.AppointmentStatus, error) {
	if action == ActionEdit {
		return apt.Status, CheckEdit(apt, actor)
	}
	rule, ok := appointmentRules[action]
	if !ok {
		return "", errors.Validationf("unknown appointment action %q", action)
	}
	if err := checkActor(actor); err != nil {
		return "", err
	}
	if !hasRole(actor, rule.roles) {
		return "", errors.Unauthorizedf("role %s cannot %s an appointment", actor.Role, action)
	}
	for _, s := range rule.from {
		if apt.Status == s {
			return rule.to, nil
		}
	}
	return "", errors.InvalidTransition(EntityAppointment, string(apt.Status), string(action))
}

// ApplyAppointment runs the guard and returns an updated copy of apt. The
// input is never modified.
func ApplyAppointment(apt *model.Appointment, action AppointmentAction, payload model.AppointmentPayload, actor model.Actor, now time.Time) (*model.Appointment, error) {
	if action == ActionEdit {
		return nil, errors.Validationf("edit requires a reason, use EditAppointment")
	}
	to, err := CheckAppointment(apt, action, actor)
	if err != nil {
		return nil, err
	}

	next := apt.Clone()
	switch action {
	case ActionCheckIn:
		stamp(&next.CheckedInAt, &next.CheckedInBy, now, actor.ID)
	case ActionEnterVitals:
		if payload.Vitals.IsEmpty() {
			return nil, errors.Validationf("vitals are required to %s", action)
		}
		v := *payload.Vitals
		next.Vitals = &v
		stamp(&next.VitalsEnteredAt, &next.VitalsEnteredBy, now, actor.ID)
	case ActionHoldForResults:
	case ActionCompleteConsultation:
		notes := strings.TrimSpace(payload.ConsultationNotes)
		if notes == "" {
			return nil, errors.Validationf("consultation notes are required to %s", action)
		}
		next.ConsultationNotes = &notes
		if payload.MedicalHistoryNotes != nil {
			h := *payload.MedicalHistoryNotes
			next.MedicalHistoryNotes = &h
		}
		stamp(&next.ConsultedAt, &next.ConsultedBy, now, actor.ID)
	case ActionClose:
		if payload.BillingAmount == nil {
			return nil, errors.Validationf("billing amount is required to %s", action)
		}
		if *payload.BillingAmount < 0 {
			return nil, errors.Validationf("billing amount cannot be negative")
		}
		status := payload.BillingStatus
		if status == "" {
			status = model.BillingStatusPending
		}
		if !status.Valid() {
			return nil, errors.Validationf("unknown billing status %q", status)
		}
		amount := *payload.BillingAmount
		next.BillingAmount = &amount
		next.BillingStatus = &status
		stamp(&next.ClosedAt, &next.ClosedBy, now, actor.ID)
	case ActionCancel:
		if reason := strings.TrimSpace(payload.CancelReason); reason != "" {
			next.CancelReason = &reason
		}
	}

	next.Status = to
	next.UpdatedAt = now
	return next, nil
}

// CheckEdit allows manual edits on any non-terminal appointment.
func CheckEdit(apt *model.Appointment, actor model.Actor) error {
	if err := checkActor(actor); err != nil {
		return err
	}
	if !hasRole(actor, editRoles) {
		return errors.Unauthorizedf("role %s cannot edit an appointment", actor.Role)
	}
	if apt.Status.IsTerminal() {
		return errors.InvalidTransition(EntityAppointment, string(apt.Status), string(ActionEdit))
	}
	return nil
}

// EditAppointment applies a manual edit to a copy of apt. Status is unchanged.
func EditAppointment(apt *model.Appointment, edit model.AppointmentEdit, reason string, actor model.Actor, now time.Time) (*model.Appointment, error) {
	if err := CheckEdit(apt, actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, errors.Validationf("a reason is required to edit an appointment")
	}

	next := apt.Clone()
	if edit.ScheduledAt != nil {
		next.ScheduledAt = edit.ScheduledAt.UTC()
	}
	if edit.Motif != nil {
		motif := strings.TrimSpace(*edit.Motif)
		if motif == "" {
			return nil, errors.Validationf("motif cannot be empty")
		}
		next.Motif = motif
	}
	if edit.DoctorID != nil {
		next.DoctorID = *edit.DoctorID
	}
	next.UpdatedAt = now
	return next, nil
}

// CheckCreateAppointment guards scheduling a new appointment.
func CheckCreateAppointment(actor model.Actor) error {
	if err := checkActor(actor); err != nil {
		return err
	}
	if !hasRole(actor, createAppointmentRoles) {
		return errors.Unauthorizedf("role %s cannot schedule an appointment", actor.Role)
	}
	return nil
}
