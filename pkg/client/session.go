package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/pkg/autosave"
)

// DraftSession auto-saves one (appointment, kind) draft while a form is open.
// Edits only mark the content dirty; the debouncer decides when to send.
type DraftSession struct {
	client        *Client
	appointmentID uuid.UUID
	kind          model.ArtifactKind
	debouncer     *autosave.Debouncer

	mu          sync.Mutex
	latest      model.DraftPayload
	lastSaved   *model.DraftRecord
	lastSavedAt time.Time
}

func NewDraftSession(c *Client, appointmentID uuid.UUID, kind model.ArtifactKind, interval time.Duration, onError func(error)) *DraftSession {
	s := &DraftSession{client: c, appointmentID: appointmentID, kind: kind}
	s.debouncer = autosave.New(interval, s.save, onError)
	return s
}

// Update replaces the pending content.
func (s *DraftSession) Update(payload model.DraftPayload) {
	s.mu.Lock()
	s.latest = payload
	s.mu.Unlock()
	s.debouncer.Touch()
}

// SaveNow asks for an immediate save.
func (s *DraftSession) SaveNow() {
	s.debouncer.Trigger()
}

// Run saves until ctx is done, then flushes pending edits once.
func (s *DraftSession) Run(ctx context.Context) {
	s.debouncer.Run(ctx)
}

// LastSaved returns the last stored draft and when it was accepted.
func (s *DraftSession) LastSaved() (*model.DraftRecord, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved, s.lastSavedAt
}

func (s *DraftSession) save(ctx context.Context) error {
	s.mu.Lock()
	payload := s.latest
	s.mu.Unlock()

	d, err := s.client.SaveDraft(ctx, s.appointmentID, s.kind, payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.lastSaved, s.lastSavedAt = d, d.EnteredAt
	s.mu.Unlock()
	return nil
}
