package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/memora/internal/config"
	"github.com/your-org/memora/internal/portal"
	"github.com/your-org/memora/internal/recognition"
	"github.com/your-org/memora/internal/related"
	"github.com/your-org/memora/internal/session"
	"github.com/your-org/memora/internal/slideshow"
)

// The capture endpoint answers 202 before the gateway round trip
// finishes. The attempt must keep running on the daemon context after
// the control request returns; a slow gateway still resolves a match.
func TestCaptureOutlivesControlRequest(t *testing.T) {
	fn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"match":        true,
			"id":           uuid.New().String(),
			"name":         "Fatima",
			"relationship": "daughter",
			"confidence":   0.91,
		})
	}))
	defer fn.Close()

	state, err := session.OpenStateStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open state store: %v", err)
	}
	defer state.Close()

	sessions := session.NewManager()
	sessions.Set(session.Context{PatientID: uuid.New(), PatientName: "Abdul Rahman", Token: "tok"})

	gateway := recognition.NewHTTPGateway(config.RecognitionConfig{BaseURL: fn.URL, Timeout: 5 * time.Second})
	recog := recognition.NewSession(gateway, sessions, 50*time.Millisecond)
	aggregator := related.NewAggregator(portal.NewClient("http://127.0.0.1:0", sessions), sessions)
	show := slideshow.NewController(time.Second)

	srv := httptest.NewServer(controlRouter(context.Background(), state, sessions, recog, aggregator, show))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/capture", "application/octet-stream", bytes.NewReader([]byte("jpeg-bytes")))
	if err != nil {
		t.Fatalf("capture request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("capture status = %d, want 202", resp.StatusCode)
	}

	deadline := time.After(3 * time.Second)
	for {
		snap := recog.Snapshot()
		if snap.Phase == recognition.PhaseResolved {
			if snap.Result == nil || !snap.Result.Matched {
				t.Fatalf("attempt resolved without a match: %+v", snap)
			}
			return
		}
		if snap.TransientError != "" {
			t.Fatalf("attempt aborted with the control request: %q", snap.TransientError)
		}
		select {
		case <-deadline:
			t.Fatalf("attempt never resolved, last snapshot %+v", snap)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
