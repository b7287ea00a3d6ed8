// Package questions calls the external question-generation function
// used during reminiscence sessions. Its only hard contract: degrade to
// a static fallback set when the call fails in any way.
package questions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/your-org/memora/internal/config"
)

// PhotoContext describes the photo and memory the questions are about.
type PhotoContext struct {
	PhotoURL    string   `json:"photoUrl"`
	MemoryTitle string   `json:"memoryTitle"`
	Event       string   `json:"event"`
	Location    string   `json:"location"`
	People      []string `json:"people"`
	Description string   `json:"description"`
}

type Question struct {
	Question   string `json:"question"`
	Hint       string `json:"hint"`
	Difficulty string `json:"difficulty"` // easy, medium, hard
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.QuestionsConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Generate asks the external function for questions about the photo.
// Any failure (transport, status, decode, empty set) yields the static
// fallback set instead of an error.
func (c *Client) Generate(ctx context.Context, pc PhotoContext) []Question {
	qs, err := c.generate(ctx, pc)
	if err != nil || len(qs) == 0 {
		if err != nil {
			slog.Warn("question generation failed, using fallback", "error", err)
		}
		return FallbackQuestions(pc)
	}
	if len(qs) > 3 {
		qs = qs[:3]
	}
	return qs
}

func (c *Client) generate(ctx context.Context, pc PhotoContext) ([]Question, error) {
	payload, err := json.Marshal(pc)
	if err != nil {
		return nil, fmt.Errorf("marshal photo context: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build questions request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call questions function: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("questions function returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read questions response: %w", err)
	}

	var wire struct {
		Questions []Question `json:"questions"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode questions response: %w", err)
	}
	return wire.Questions, nil
}

// FallbackQuestions is the static set used when generation fails.
func FallbackQuestions(pc PhotoContext) []Question {
	title := pc.MemoryTitle
	if title == "" {
		title = "this moment"
	}
	return []Question{
		{
			Question:   fmt.Sprintf("What do you remember about %s?", title),
			Hint:       "Take your time looking at the photo.",
			Difficulty: "easy",
		},
		{
			Question:   "Who do you see in this photo?",
			Hint:       "Look at each face one by one.",
			Difficulty: "medium",
		},
		{
			Question:   "How did you feel on this day?",
			Hint:       "Think about what was happening around you.",
			Difficulty: "hard",
		},
	}
}
