package recognition

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/your-org/memora/internal/config"
)

// Embedder calls the recognition function's embedding endpoint so
// reference photos uploaded through the portal land in the same
// embedding space the matcher searches.
type Embedder struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewEmbedder(cfg config.RecognitionConfig) *Embedder {
	return &Embedder{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/embed",
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type embedRequest struct {
	Image string `json:"image"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Quality   float32   `json:"quality"`
	Error     string    `json:"error"`
}

// Extract returns the face embedding and quality score for one image.
// A function-reported error or an empty embedding means no usable face
// was found in the photo.
func (e *Embedder) Extract(image []byte) ([]float32, float32, error) {
	payload, err := json.Marshal(embedRequest{
		Image: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("call embedding function: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("embedding function returned %d", resp.StatusCode)
	}

	var wire embedResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, 0, fmt.Errorf("decode embed response: %w", err)
	}
	if wire.Error != "" {
		return nil, 0, fmt.Errorf("embedding function: %s", wire.Error)
	}
	if len(wire.Embedding) == 0 {
		return nil, 0, fmt.Errorf("embedding function found no face")
	}
	return wire.Embedding, wire.Quality, nil
}
