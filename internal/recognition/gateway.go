package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/memora/internal/config"
	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/observability"
)

// Gateway sends a captured image to the external recognition function.
// The matching algorithm and its confidence threshold are entirely the
// function's responsibility; we only translate its response. A non-nil
// error is a transport-level failure, distinct from the error kinds
// inside a RecognitionResult.
type Gateway interface {
	Recognize(ctx context.Context, image []byte, subjectID string) (*models.RecognitionResult, error)
}

type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGateway(cfg config.RecognitionConfig) *HTTPGateway {
	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type recognizeRequest struct {
	Image     string `json:"image"`
	PatientID string `json:"patientId"`
}

// recognizeResponse mirrors the recognition function's wire format.
type recognizeResponse struct {
	Match        bool    `json:"match"`
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Relationship string  `json:"relationship"`
	Confidence   float64 `json:"confidence"`
	Error        string  `json:"error"`
	ErrorType    string  `json:"error_type"`
	Suggestion   string  `json:"suggestion"`
	Message      string  `json:"message"`
}

func (g *HTTPGateway) Recognize(ctx context.Context, image []byte, subjectID string) (*models.RecognitionResult, error) {
	start := time.Now()

	payload, err := json.Marshal(recognizeRequest{
		Image:     "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
		PatientID: subjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal recognize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build recognize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call recognition function: %w", err)
	}
	defer resp.Body.Close()

	observability.RecognitionDuration.Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read recognition response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("recognition function returned %d", resp.StatusCode)
	}

	var wire recognizeResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode recognition response: %w", err)
	}

	return decodeResult(wire), nil
}

// decodeResult converts the wire response into a RecognitionResult.
// Unknown or missing error kinds on a non-match collapse to
// detection_error.
func decodeResult(wire recognizeResponse) *models.RecognitionResult {
	if wire.Match {
		id, _ := uuid.Parse(wire.ID)
		return &models.RecognitionResult{
			Matched: true,
			Identity: &models.Identity{
				ID:           id,
				Name:         wire.Name,
				Relationship: wire.Relationship,
				Confidence:   wire.Confidence,
			},
		}
	}

	kind := models.ErrorKind(wire.ErrorType)
	if !kind.Known() {
		kind = models.ErrDetectionError
	}

	suggestion := wire.Suggestion
	if suggestion == "" {
		suggestion = wire.Message
	}

	return &models.RecognitionResult{
		Matched:    false,
		ErrorKind:  kind,
		Suggestion: suggestion,
	}
}
