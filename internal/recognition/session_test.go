package recognition

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/session"
)

type fakeGateway struct {
	mu      sync.Mutex
	calls   int
	release chan struct{} // when non-nil, Recognize blocks until closed
	result  *models.RecognitionResult
	err     error
}

func (g *fakeGateway) Recognize(_ context.Context, _ []byte, _ string) (*models.RecognitionResult, error) {
	g.mu.Lock()
	g.calls++
	release := g.release
	g.mu.Unlock()

	if release != nil {
		<-release
	}
	return g.result, g.err
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func activeManager() *session.Manager {
	m := session.NewManager()
	m.Set(session.Context{
		PatientID:   uuid.New(),
		PatientName: "Abdul Rahman",
		Token:       "tok",
	})
	return m
}

// waitFor drains snapshots until one satisfies the predicate.
func waitFor(t *testing.T, events <-chan Snapshot, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-events:
			if pred(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot")
		}
	}
}

func observed(s *Session) <-chan Snapshot {
	events := make(chan Snapshot, 32)
	s.OnChange = func(snap Snapshot) { events <- snap }
	return events
}

func TestCaptureResolvesMatch(t *testing.T) {
	identity := models.Identity{ID: uuid.New(), Name: "Fatima", Relationship: "Daughter", Confidence: 0.9}
	gw := &fakeGateway{result: &models.RecognitionResult{Matched: true, Identity: &identity}}

	sessions := activeManager()
	s := NewSession(gw, sessions, time.Hour)
	events := observed(s)

	var matchMu sync.Mutex
	var matched *models.Identity
	s.OnMatch = func(_ session.Context, id models.Identity) {
		matchMu.Lock()
		matched = &id
		matchMu.Unlock()
	}

	s.Capture(context.Background(), []byte("jpeg"))

	snap := waitFor(t, events, func(s Snapshot) bool { return s.Phase == PhaseResolved })
	if snap.Result == nil || !snap.Result.Matched {
		t.Fatalf("resolved without match: %+v", snap.Result)
	}

	matchMu.Lock()
	defer matchMu.Unlock()
	if matched == nil || matched.Name != "Fatima" {
		t.Errorf("OnMatch not fired with identity: %+v", matched)
	}
}

func TestCaptureWithoutSessionRequiresReauth(t *testing.T) {
	gw := &fakeGateway{result: &models.RecognitionResult{Matched: false}}
	s := NewSession(gw, session.NewManager(), time.Hour)
	events := observed(s)

	s.Capture(context.Background(), []byte("jpeg"))

	snap := waitFor(t, events, func(s Snapshot) bool { return s.ReauthRequired })
	if snap.Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", snap.Phase)
	}
	if s.HasCapturedImage() {
		t.Errorf("image retained without a session")
	}
	if gw.callCount() != 0 {
		t.Errorf("gateway called without a session")
	}
}

func TestCaptureWhileInFlightIgnored(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{
		release: release,
		result:  &models.RecognitionResult{Matched: false, ErrorKind: models.ErrNoFace},
	}
	s := NewSession(gw, activeManager(), time.Hour)
	events := observed(s)

	s.Capture(context.Background(), []byte("first"))
	waitFor(t, events, func(s Snapshot) bool { return s.Phase == PhaseAwaiting })

	s.Capture(context.Background(), []byte("second"))
	close(release)

	waitFor(t, events, func(s Snapshot) bool { return s.Phase == PhaseResolved })
	if gw.callCount() != 1 {
		t.Errorf("gateway calls = %d, want 1 (second capture must be ignored)", gw.callCount())
	}
}

func TestResetDiscardsInFlightResponse(t *testing.T) {
	release := make(chan struct{})
	identity := models.Identity{ID: uuid.New(), Name: "Fatima"}
	gw := &fakeGateway{
		release: release,
		result:  &models.RecognitionResult{Matched: true, Identity: &identity},
	}
	s := NewSession(gw, activeManager(), time.Hour)
	events := observed(s)

	matchFired := make(chan struct{}, 1)
	s.OnMatch = func(session.Context, models.Identity) { matchFired <- struct{}{} }

	s.Capture(context.Background(), []byte("jpeg"))
	waitFor(t, events, func(s Snapshot) bool { return s.Phase == PhaseAwaiting })

	s.Reset()
	close(release)

	// Give the stale resolve a chance to (incorrectly) land.
	time.Sleep(50 * time.Millisecond)

	snap := s.Snapshot()
	if snap.Phase != PhaseIdle || snap.Result != nil {
		t.Errorf("stale response applied after reset: %+v", snap)
	}
	select {
	case <-matchFired:
		t.Errorf("OnMatch fired for a reset attempt")
	default:
	}
}

func TestPatientSwitchDiscardsInFlightResponse(t *testing.T) {
	release := make(chan struct{})
	identity := models.Identity{ID: uuid.New(), Name: "Fatima"}
	gw := &fakeGateway{
		release: release,
		result:  &models.RecognitionResult{Matched: true, Identity: &identity},
	}
	sessions := activeManager()
	s := NewSession(gw, sessions, time.Hour)
	events := observed(s)

	s.Capture(context.Background(), []byte("jpeg"))
	waitFor(t, events, func(s Snapshot) bool { return s.Phase == PhaseAwaiting })

	// Caregiver switches the device to another patient mid-flight.
	sessions.Set(session.Context{PatientID: uuid.New(), PatientName: "Other", Token: "tok2"})
	close(release)

	snap := waitFor(t, events, func(s Snapshot) bool { return s.Phase == PhaseIdle })
	if snap.Result != nil {
		t.Errorf("result applied across a patient switch: %+v", snap.Result)
	}
}

func TestTransportErrorReturnsToIdle(t *testing.T) {
	gw := &fakeGateway{err: errors.New("connection refused")}
	s := NewSession(gw, activeManager(), time.Hour)
	events := observed(s)

	s.Capture(context.Background(), []byte("jpeg"))

	snap := waitFor(t, events, func(s Snapshot) bool { return s.TransientError != "" })
	if snap.Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle after transport error", snap.Phase)
	}
	if snap.TransientError != "Failed to recognize face. Please try again." {
		t.Errorf("TransientError = %q", snap.TransientError)
	}
	if s.HasCapturedImage() {
		t.Errorf("image retained after transport error")
	}
}

func TestResetIdempotent(t *testing.T) {
	gw := &fakeGateway{result: &models.RecognitionResult{Matched: false, ErrorKind: models.ErrNoFace}}
	s := NewSession(gw, activeManager(), time.Hour)

	resets := 0
	s.OnReset = func() { resets++ }

	s.Reset()
	s.Reset()
	s.Reset()

	if resets != 3 {
		t.Errorf("OnReset fired %d times, want 3", resets)
	}
	snap := s.Snapshot()
	if snap.Phase != PhaseIdle || snap.Result != nil || snap.TransientError != "" || snap.ReauthRequired {
		t.Errorf("state not clean after repeated resets: %+v", snap)
	}
}

func TestFailureResolvesWithKind(t *testing.T) {
	gw := &fakeGateway{result: &models.RecognitionResult{
		Matched:   false,
		ErrorKind: models.ErrUnknownPerson,
	}}
	s := NewSession(gw, activeManager(), time.Hour)
	events := observed(s)

	s.Capture(context.Background(), []byte("jpeg"))

	snap := waitFor(t, events, func(s Snapshot) bool { return s.Phase == PhaseResolved })
	if snap.Result.ErrorKind != models.ErrUnknownPerson {
		t.Errorf("ErrorKind = %s, want unknown_person", snap.Result.ErrorKind)
	}
}
