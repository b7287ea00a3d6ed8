// Package portal is the companion's HTTP client for the portal API. It
// implements the read surface the related-content aggregator needs,
// authenticated with the caregiver token from the active session.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/session"
)

type Client struct {
	baseURL  string
	http     *http.Client
	sessions *session.Manager
}

func NewClient(baseURL string, sessions *session.Manager) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		sessions: sessions,
	}
}

// MemoriesByPerson fetches the patient's memories mentioning name.
func (c *Client) MemoriesByPerson(ctx context.Context, patientID uuid.UUID, name string) ([]models.Memory, error) {
	var wire struct {
		Memories []models.Memory `json:"memories"`
	}
	path := fmt.Sprintf("/v1/patients/%s/memories?person=%s", patientID, url.QueryEscape(name))
	if err := c.get(ctx, path, &wire); err != nil {
		return nil, err
	}
	return wire.Memories, nil
}

// TaggedPhotoURLs fetches photo URLs tagged with name inside the given
// memories.
func (c *Client) TaggedPhotoURLs(ctx context.Context, memoryIDs []uuid.UUID, name string) ([]string, error) {
	if len(memoryIDs) == 0 {
		return nil, nil
	}

	sctx, _ := c.sessions.Snapshot()
	ids := make([]string, 0, len(memoryIDs))
	for _, id := range memoryIDs {
		ids = append(ids, id.String())
	}

	var wire struct {
		Photos []string `json:"photos"`
	}
	path := fmt.Sprintf("/v1/patients/%s/tagged-photos?person=%s&memory_ids=%s",
		sctx.PatientID, url.QueryEscape(name), strings.Join(ids, ","))
	if err := c.get(ctx, path, &wire); err != nil {
		return nil, err
	}
	return wire.Photos, nil
}

// FamilyMemberPhotoURLs fetches the member's reference photo list.
func (c *Client) FamilyMemberPhotoURLs(ctx context.Context, familyMemberID uuid.UUID) ([]string, error) {
	sctx, _ := c.sessions.Snapshot()

	var member models.FamilyMember
	path := fmt.Sprintf("/v1/patients/%s/family/%s", sctx.PatientID, familyMemberID)
	if err := c.get(ctx, path, &member); err != nil {
		return nil, err
	}
	return member.PhotoURLs, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	sctx, _ := c.sessions.Snapshot()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build portal request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sctx.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call portal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("portal returned %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read portal response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode portal response: %w", err)
	}
	return nil
}
