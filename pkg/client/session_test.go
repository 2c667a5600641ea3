package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/encounter-api/internal/model"
)

type draftServer struct {
	mu    sync.Mutex
	saves []model.SaveDraftRequest
	paths []string
	auth  string
}

func (s *draftServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req model.SaveDraftRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	s.saves = append(s.saves, req)
	s.paths = append(s.paths, r.Method+" "+r.URL.Path)
	s.auth = r.Header.Get("Authorization")
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data": model.DraftRecord{
			ID:        uuid.New(),
			Kind:      model.ArtifactConsultationNotes,
			Payload:   req.Payload,
			EnteredAt: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
			IsDraft:   true,
		},
	})
}

func (s *draftServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

func TestDraftSessionSavesLatestOnTrigger(t *testing.T) {
	srv := &draftServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	aptID := uuid.New()
	session := NewDraftSession(New(ts.URL+"/api/v1", "tok", nil), aptID, model.ArtifactConsultationNotes, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		session.Run(ctx)
		close(done)
	}()

	first, second := "cough", "cough, 3 days"
	session.Update(model.DraftPayload{Notes: &first})
	session.Update(model.DraftPayload{Notes: &second})
	session.SaveNow()

	require.Eventually(t, func() bool { return srv.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, "cough, 3 days", *srv.saves[0].Payload.Notes)
	assert.Equal(t, "PUT /api/v1/appointments/"+aptID.String()+"/drafts/consultation_notes", srv.paths[0])
	assert.Equal(t, "Bearer tok", srv.auth)

	d, at := session.LastSaved()
	require.NotNil(t, d)
	assert.Equal(t, 2026, at.Year())
}

func TestDraftSessionFlushesOnStop(t *testing.T) {
	srv := &draftServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	session := NewDraftSession(New(ts.URL, "tok", nil), uuid.New(), model.ArtifactConsultationNotes, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	notes := "pending"
	session.Update(model.DraftPayload{Notes: &notes})
	cancel()
	session.Run(ctx)

	assert.Equal(t, 1, srv.count())
}

func TestClientReturnsAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"AlreadyFinalized","message":"draft is already finalized"}}`))
	}))
	defer ts.Close()

	_, err := New(ts.URL, "tok", nil).FinalizeDraft(context.Background(), uuid.New())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "AlreadyFinalized", apiErr.Code)
}
