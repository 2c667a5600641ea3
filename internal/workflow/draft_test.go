package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/pkg/errors"
)

func TestCheckDraft(t *testing.T) {
	tests := []struct {
		name       string
		status     model.AppointmentStatus
		kind       model.ArtifactKind
		role       model.Role
		correction bool
		code       errors.ErrorCode
	}{
		{"vitals after check-in", model.AppointmentStatusCheckedIn, model.ArtifactVitals, model.RoleNurse, false, 0},
		{"initial vitals by doctor", model.AppointmentStatusCheckedIn, model.ArtifactVitals, model.RoleDoctor, false, errors.ErrUnauthorized},
		{"correction by doctor", model.AppointmentStatusInConsultation, model.ArtifactVitals, model.RoleDoctor, true, 0},
		{"vitals during consultation", model.AppointmentStatusInConsultation, model.ArtifactVitals, model.RoleNurse, true, 0},
		{"vitals while waiting", model.AppointmentStatusWaitingResults, model.ArtifactVitals, model.RoleDoctor, true, 0},
		{"vitals before check-in", model.AppointmentStatusScheduled, model.ArtifactVitals, model.RoleNurse, false, errors.ErrInvalidTransition},
		{"vitals after completion", model.AppointmentStatusCompleted, model.ArtifactVitals, model.RoleNurse, false, errors.ErrInvalidTransition},
		{"notes during consultation", model.AppointmentStatusInConsultation, model.ArtifactConsultationNotes, model.RoleDoctor, false, 0},
		{"notes after consultation", model.AppointmentStatusConsultationCompleted, model.ArtifactConsultationNotes, model.RoleDoctor, false, errors.ErrInvalidTransition},
		{"notes by nurse", model.AppointmentStatusInConsultation, model.ArtifactConsultationNotes, model.RoleNurse, false, errors.ErrUnauthorized},
		{"unknown kind", model.AppointmentStatusInConsultation, "ALLERGIES", model.RoleDoctor, false, errors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			correction, err := CheckDraft(&model.Appointment{Status: tt.status}, tt.kind, actor(tt.role))
			if tt.code == 0 {
				assert.NoError(t, err)
				assert.Equal(t, tt.correction, correction)
				return
			}
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}
