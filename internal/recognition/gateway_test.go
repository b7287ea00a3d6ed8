package recognition

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/memora/internal/config"
	"github.com/your-org/memora/internal/models"
)

func testGateway(t *testing.T, handler http.HandlerFunc) *HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPGateway(config.RecognitionConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
}

func TestRecognizeMatch(t *testing.T) {
	memberID := uuid.New()

	gw := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !strings.HasPrefix(req["image"], "data:image/jpeg;base64,") {
			t.Errorf("image not sent as base64 data URI: %q", req["image"][:30])
		}
		if req["patientId"] == "" {
			t.Errorf("patientId missing from request")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"match":        true,
			"id":           memberID.String(),
			"name":         "Fatima",
			"relationship": "Daughter",
			"confidence":   0.93,
		})
	})

	result, err := gw.Recognize(context.Background(), []byte("jpegbytes"), uuid.New().String())
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if !result.Matched || result.Identity == nil {
		t.Fatalf("expected a match, got %+v", result)
	}
	if result.Identity.ID != memberID || result.Identity.Name != "Fatima" {
		t.Errorf("identity = %+v", result.Identity)
	}
	if result.Identity.Confidence != 0.93 {
		t.Errorf("confidence = %v, want 0.93", result.Identity.Confidence)
	}
}

func TestRecognizeFailureKinds(t *testing.T) {
	tests := []struct {
		wireKind string
		want     models.ErrorKind
	}{
		{"no_face", models.ErrNoFace},
		{"low_quality_face", models.ErrLowQualityFace},
		{"no_family_data", models.ErrNoFamilyData},
		{"processing_error", models.ErrProcessingError},
		{"unknown_person", models.ErrUnknownPerson},
		{"detection_error", models.ErrDetectionError},
		// Unknown kinds collapse to detection_error.
		{"something_new", models.ErrDetectionError},
		{"", models.ErrDetectionError},
	}

	for _, tt := range tests {
		t.Run(tt.wireKind, func(t *testing.T) {
			gw := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"match":      false,
					"error":      "failed",
					"error_type": tt.wireKind,
				})
			})

			result, err := gw.Recognize(context.Background(), []byte("img"), "p1")
			if err != nil {
				t.Fatalf("Recognize failed: %v", err)
			}
			if result.Matched {
				t.Fatalf("expected non-match")
			}
			if result.ErrorKind != tt.want {
				t.Errorf("ErrorKind = %s, want %s", result.ErrorKind, tt.want)
			}
		})
	}
}

func TestRecognizeSuggestionFallsBackToMessage(t *testing.T) {
	gw := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"match":      false,
			"error_type": "unknown_person",
			"message":    "Try a different angle.",
		})
	})

	result, err := gw.Recognize(context.Background(), []byte("img"), "p1")
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if result.Suggestion != "Try a different angle." {
		t.Errorf("Suggestion = %q, want message fallback", result.Suggestion)
	}
}

func TestRecognizeServerErrorIsTransport(t *testing.T) {
	gw := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := gw.Recognize(context.Background(), []byte("img"), "p1"); err == nil {
		t.Fatalf("expected transport error for 500 response")
	}
}

func TestRecognizeBadJSONIsTransport(t *testing.T) {
	gw := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	if _, err := gw.Recognize(context.Background(), []byte("img"), "p1"); err == nil {
		t.Fatalf("expected transport error for malformed body")
	}
}

func TestCopyFor(t *testing.T) {
	tests := []struct {
		name      string
		result    *models.RecognitionResult
		wantTitle string
		wantSugg  string
	}{
		{
			name:      "known kind",
			result:    &models.RecognitionResult{ErrorKind: models.ErrUnknownPerson},
			wantTitle: "Person Not Recognized",
			wantSugg:  "Try moving closer to better light.",
		},
		{
			name:      "unknown kind falls back",
			result:    &models.RecognitionResult{ErrorKind: "weird"},
			wantTitle: "Recognition Failed",
			wantSugg:  "Please try again.",
		},
		{
			name:      "gateway suggestion wins",
			result:    &models.RecognitionResult{ErrorKind: models.ErrNoFace, Suggestion: "Hold the camera steady."},
			wantTitle: "No Face Detected",
			wantSugg:  "Hold the camera steady.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CopyFor(tt.result)
			if c.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", c.Title, tt.wantTitle)
			}
			if c.Suggestion != tt.wantSugg {
				t.Errorf("Suggestion = %q, want %q", c.Suggestion, tt.wantSugg)
			}
		})
	}
}
