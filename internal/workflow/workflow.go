// Package workflow holds the encounter state machines and the progress
// projector. Everything here is pure: callers load state, ask the guards,
// apply the returned copy and persist it themselves.
package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/pkg/errors"
)

const (
	EntityAppointment  = model.AuditEntityAppointment
	EntityPrescription = model.AuditEntityPrescription
)

func hasRole(actor model.Actor, roles []model.Role) bool {
	for _, r := range roles {
		if actor.Role == r {
			return true
		}
	}
	return false
}

func checkActor(actor model.Actor) error {
	if actor.ID == uuid.Nil {
		return errors.Validationf("actor id is required")
	}
	if !actor.Role.Valid() {
		return errors.Unauthorizedf("unknown role %q", actor.Role)
	}
	return nil
}

// stamp sets an at/by pair the first time only.
func stamp(at **time.Time, by **uuid.UUID, now time.Time, actorID uuid.UUID) {
	if *at != nil {
		return
	}
	t := now
	id := actorID
	*at = &t
	if by != nil {
		*by = &id
	}
}
