package workflow

import (
	"time"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/pkg/errors"
)

type PrescriptionAction string

const (
	ActionSendToLab      PrescriptionAction = "send_to_lab"
	ActionCollectSample  PrescriptionAction = "collect_sample"
	ActionStartAnalysis  PrescriptionAction = "start_analysis"
	ActionPublishResults PrescriptionAction = "publish_results"
	ActionReview         PrescriptionAction = "review"
)

// PrescriptionActions returns every prescription action in workflow order.
func PrescriptionActions() []PrescriptionAction {
	return []PrescriptionAction{
		ActionSendToLab,
		ActionCollectSample,
		ActionStartAnalysis,
		ActionPublishResults,
		ActionReview,
	}
}

// prescriptionConsultStatuses are the appointment statuses in which a
// physician may order a test.
var prescriptionConsultStatuses = []model.AppointmentStatus{
	model.AppointmentStatusInConsultation,
	model.AppointmentStatusWaitingResults,
	model.AppointmentStatusConsultationCompleted,
}

// analysisRole is the service owning analysis for a category.
func analysisRole(c model.PrescriptionCategory) model.Role {
	if c == model.CategoryImagerie {
		return model.RoleRadiologist
	}
	return model.RoleLabTechnician
}

// prescriptionSource returns the single status action may start from for the
// given category, or false when the action does not apply to the category.
func prescriptionSource(action PrescriptionAction, c model.PrescriptionCategory) (model.PrescriptionStatus, model.PrescriptionStatus, bool) {
	switch action {
	case ActionSendToLab:
		return model.PrescriptionStatusCreated, model.PrescriptionStatusSentToLab, true
	case ActionCollectSample:
		if c != model.CategoryBiologie {
			return "", "", false
		}
		return model.PrescriptionStatusSentToLab, model.PrescriptionStatusSampleCollected, true
	case ActionStartAnalysis:
		if c == model.CategoryImagerie {
			return model.PrescriptionStatusSentToLab, model.PrescriptionStatusInProgress, true
		}
		return model.PrescriptionStatusSampleCollected, model.PrescriptionStatusInProgress, true
	case ActionPublishResults:
		return model.PrescriptionStatusInProgress, model.PrescriptionStatusResultsAvailable, true
	case ActionReview:
		return model.PrescriptionStatusResultsAvailable, model.PrescriptionStatusCompleted, true
	}
	return "", "", false
}

func checkPrescriptionRole(p *model.Prescription, action PrescriptionAction, actor model.Actor) error {
	switch action {
	case ActionSendToLab, ActionReview:
		if actor.Role != model.RoleDoctor {
			return errors.Unauthorizedf("role %s cannot %s a prescription", actor.Role, action)
		}
		if actor.ID != p.DoctorID {
			return errors.Unauthorizedf("only the prescribing doctor can %s", action)
		}
	case ActionCollectSample:
		if actor.Role != model.RoleNurse {
			return errors.Unauthorizedf("role %s cannot %s", actor.Role, action)
		}
		if p.NurseID != nil && *p.NurseID != actor.ID {
			return errors.Unauthorizedf("sample collection is assigned to another nurse")
		}
	case ActionStartAnalysis, ActionPublishResults:
		if want := analysisRole(p.Category); actor.Role != want {
			return errors.Unauthorizedf("role %s cannot %s a %s prescription", actor.Role, action, p.Category)
		}
	default:
		return errors.Validationf("unknown prescription action %q", action)
	}
	return nil
}

// CheckPrescription decides whether actor may run action on p and returns
// the target status.
func CheckPrescription(p *model.Prescription, action PrescriptionAction, actor model.Actor) (model.PrescriptionStatus, error) {
	if err := checkActor(actor); err != nil {
		return "", err
	}
	if err := checkPrescriptionRole(p, action, actor); err != nil {
		return "", err
	}
	from, to, ok := prescriptionSource(action, p.Category)
	if !ok || p.Status != from {
		return "", errors.InvalidTransition(EntityPrescription, string(p.Status), string(action))
	}
	return to, nil
}

// ApplyPrescription runs the guard and returns an updated copy of p.
func ApplyPrescription(p *model.Prescription, action PrescriptionAction, payload model.PrescriptionPayload, actor model.Actor, now time.Time) (*model.Prescription, error) {
	to, err := CheckPrescription(p, action, actor)
	if err != nil {
		return nil, err
	}

	next := p.Clone()
	switch action {
	case ActionSendToLab:
		stamp(&next.SentToLabAt, &next.SentToLabBy, now, actor.ID)
	case ActionCollectSample:
		if next.NurseID == nil {
			id := actor.ID
			next.NurseID = &id
		}
		stamp(&next.SampleCollectedAt, &next.SampleCollectedBy, now, actor.ID)
	case ActionStartAnalysis:
		stamp(&next.AnalysisStartedAt, &next.AnalysisStartedBy, now, actor.ID)
	case ActionPublishResults:
		if payload.ResultID == nil {
			return nil, errors.Validationf("a result reference is required to %s", action)
		}
		id := *payload.ResultID
		next.ResultID = &id
		stamp(&next.AnalysisCompletedAt, nil, now, actor.ID)
	case ActionReview:
		stamp(&next.ReviewedAt, &next.ReviewedBy, now, actor.ID)
	}

	next.Status = to
	next.UpdatedAt = now
	return next, nil
}

// CheckCreatePrescription guards ordering a new test on apt.
func CheckCreatePrescription(apt *model.Appointment, category model.PrescriptionCategory, actor model.Actor) error {
	if err := checkActor(actor); err != nil {
		return err
	}
	if actor.Role != model.RoleDoctor {
		return errors.Unauthorizedf("role %s cannot create a prescription", actor.Role)
	}
	if !category.Valid() {
		return errors.Validationf("unknown prescription category %q", category)
	}
	for _, s := range prescriptionConsultStatuses {
		if apt.Status == s {
			return nil
		}
	}
	return errors.InvalidTransition(EntityAppointment, string(apt.Status), "create a prescription")
}
