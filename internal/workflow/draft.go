package workflow

import (
	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/pkg/errors"
)

var draftRoles = map[model.ArtifactKind][]model.Role{
	model.ArtifactVitals:            {model.RoleNurse, model.RoleDoctor},
	model.ArtifactConsultationNotes: {model.RoleDoctor},
}

// CheckDraft decides whether actor may save a draft of kind on apt. Vitals
// saved after the initial vitals were committed are corrections: the
// committed snapshot stays as history and the correction is a new record.
func CheckDraft(apt *model.Appointment, kind model.ArtifactKind, actor model.Actor) (correction bool, err error) {
	roles, ok := draftRoles[kind]
	if !ok {
		return false, errors.Validationf("unknown draft kind %q", kind)
	}
	if err := checkActor(actor); err != nil {
		return false, err
	}
	if !hasRole(actor, roles) {
		return false, errors.Unauthorizedf("role %s cannot record %s", actor.Role, kind)
	}

	switch kind {
	case model.ArtifactVitals:
		switch apt.Status {
		case model.AppointmentStatusCheckedIn:
			// The draft is committed by enter_vitals, so its author must be able to run it.
			if !hasRole(actor, appointmentRules[ActionEnterVitals].roles) {
				return false, errors.Unauthorizedf("role %s cannot record initial %s", actor.Role, kind)
			}
			return false, nil
		case model.AppointmentStatusInConsultation, model.AppointmentStatusWaitingResults:
			return true, nil
		}
	case model.ArtifactConsultationNotes:
		switch apt.Status {
		case model.AppointmentStatusInConsultation, model.AppointmentStatusWaitingResults:
			return false, nil
		}
	}
	return false, errors.InvalidTransition(EntityAppointment, string(apt.Status), "save a "+string(kind)+" draft")
}
