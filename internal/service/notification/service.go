// Package notification tells staff about workflow events relayed from the
// outbox. It runs in the worker, never inside a transition.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwalitptl/encounter-api/internal/email"
	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/pkg/logger"
	"github.com/jwalitptl/encounter-api/pkg/messaging"
)

// ChannelResultsPublished is the outbox event type this service reacts to.
const ChannelResultsPublished = "prescription.publish_results"

type Service struct {
	emailSvc   email.Service
	recipients []string
	log        *logger.Logger
}

func NewService(emailSvc email.Service, recipients []string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{emailSvc: emailSvc, recipients: recipients, log: log.With("notification")}
}

// Run consumes result events until ctx is done.
func (s *Service) Run(ctx context.Context, broker messaging.Broker) error {
	s.log.Info("Starting notification subscriber", "channel", ChannelResultsPublished)
	return messaging.Consume(ctx, broker, ChannelResultsPublished, s.HandleEvent, func(err error) {
		s.log.Error(err, "Failed to handle event")
	})
}

// HandleEvent emails the results inbox for a published result. Other event
// types are ignored.
func (s *Service) HandleEvent(ctx context.Context, payload []byte) error {
	var event model.WorkflowEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("invalid event payload: %w", err)
	}
	if event.EventType() != ChannelResultsPublished {
		return nil
	}
	if len(s.recipients) == 0 {
		s.log.Debug("No results recipients configured", "prescription_id", event.EntityID.String())
		return nil
	}

	subject := fmt.Sprintf("Results available for prescription %s", event.EntityID)
	var body strings.Builder
	fmt.Fprintf(&body, "Results for prescription %s were published at %s.\n", event.EntityID, event.OccurredAt.UTC().Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&body, "Status: %s\n", event.ToStatus)
	body.WriteString("The prescribing doctor can now review them.\n")

	if err := s.emailSvc.Send(ctx, s.recipients, subject, body.String()); err != nil {
		return err
	}
	s.log.Info("Results notification sent", "prescription_id", event.EntityID.String())
	return nil
}
