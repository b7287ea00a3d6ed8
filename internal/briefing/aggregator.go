// Package briefing builds the read-only patient summary the receiving
// caregiver reviews around a transfer. Pure derivation: no writes,
// recomputable at any time.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/observability"
)

var (
	ErrTransferNotFound = errors.New("transfer not found")
	ErrNotRecipient     = errors.New("only the receiving caregiver can view this briefing")
	ErrNotAvailable     = errors.New("briefing is not available for this transfer status")
	ErrPatientGone      = errors.New("patient data no longer available")
)

// Store is the read surface the aggregator pulls from.
type Store interface {
	Transfer(ctx context.Context, id uuid.UUID) (*models.PatientTransfer, error)
	Patient(ctx context.Context, id uuid.UUID) (*models.Patient, error)
	Caregiver(ctx context.Context, id uuid.UUID) (*models.Caregiver, error)
	MemoriesWithPhotos(ctx context.Context, patientID uuid.UUID) ([]models.Memory, error)
	FamilyMembers(ctx context.Context, patientID uuid.UUID) ([]models.FamilyMember, error)
	TherapySessions(ctx context.Context, patientID uuid.UUID) ([]models.TherapySession, error)
	SessionMemories(ctx context.Context, sessionIDs []uuid.UUID) ([]models.SessionMemory, error)
}

// SlideKind orders the briefing presentation.
type SlideKind string

const (
	SlideWelcome    SlideKind = "welcome"
	SlideProfile    SlideKind = "profile"
	SlideMemories   SlideKind = "memories"
	SlideFamily     SlideKind = "family"
	SlideSessions   SlideKind = "sessions"
	SlideInsights   SlideKind = "insights"
	SlideCompletion SlideKind = "completion"
)

// SlideOrder is the fixed presentation sequence.
var SlideOrder = []SlideKind{
	SlideWelcome, SlideProfile, SlideMemories, SlideFamily,
	SlideSessions, SlideInsights, SlideCompletion,
}

// SessionSummary is one therapy session with its recall aggregate.
type SessionSummary struct {
	models.TherapySession
	MemoriesReviewed int     `json:"memories_reviewed"`
	AvgRecallScore   float64 `json:"avg_recall_score"`
}

// Insights are the computed progress numbers.
type Insights struct {
	TotalSessions          int            `json:"total_sessions"`
	CompletedSessions      int            `json:"completed_sessions"`
	AvgDuration            int            `json:"avg_duration"`
	AvgRecallScore         float64        `json:"avg_recall_score"`
	TotalMemories          int            `json:"total_memories"`
	TotalFamilyMembers     int            `json:"total_family_members"`
	MoodDistribution       map[string]int `json:"mood_distribution"`
	HighImportanceMemories int            `json:"high_importance_memories"`
}

// Data is the full briefing aggregate.
type Data struct {
	Transfer      *models.PatientTransfer `json:"transfer"`
	Sender        *models.Caregiver       `json:"sender,omitempty"`
	Patient       *models.Patient         `json:"patient"`
	Memories      []models.Memory         `json:"memories"`
	FamilyMembers []models.FamilyMember   `json:"family_members"`
	Sessions      []SessionSummary        `json:"sessions"`
	Insights      Insights                `json:"insights"`
	Slides        []SlideKind             `json:"slides"`
}

type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Build assembles the briefing for callerID viewing transferID. The
// transfer, patient and sender are required; the memory, family and
// session slices each degrade to empty on failure.
func (a *Aggregator) Build(ctx context.Context, callerID, transferID uuid.UUID) (*Data, error) {
	start := time.Now()

	t, err := a.store.Transfer(ctx, transferID)
	if err != nil {
		return nil, fmt.Errorf("load transfer: %w", err)
	}
	if t == nil {
		return nil, ErrTransferNotFound
	}
	if t.ToCaregiverID != callerID {
		return nil, ErrNotRecipient
	}
	// Pending transfers get a preview; accepted ones an onboarding view.
	if t.Status != models.TransferPending && t.Status != models.TransferAccepted {
		return nil, fmt.Errorf("%w: %s", ErrNotAvailable, t.Status)
	}

	patient, err := a.store.Patient(ctx, t.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if patient == nil {
		return nil, ErrPatientGone
	}

	data := &Data{
		Transfer: t,
		Patient:  patient,
		Slides:   SlideOrder,
	}

	var (
		wg       sync.WaitGroup
		sessions []models.TherapySession
	)
	wg.Add(4)

	go func() {
		defer wg.Done()
		sender, err := a.store.Caregiver(ctx, t.FromCaregiverID)
		if err != nil {
			slog.Warn("briefing: sender fetch failed", "error", err)
			return
		}
		data.Sender = sender
	}()

	go func() {
		defer wg.Done()
		memories, err := a.store.MemoriesWithPhotos(ctx, t.PatientID)
		if err != nil {
			slog.Warn("briefing: memories fetch failed", "error", err)
			return
		}
		data.Memories = memories
	}()

	go func() {
		defer wg.Done()
		family, err := a.store.FamilyMembers(ctx, t.PatientID)
		if err != nil {
			slog.Warn("briefing: family fetch failed", "error", err)
			return
		}
		data.FamilyMembers = family
	}()

	go func() {
		defer wg.Done()
		ss, err := a.store.TherapySessions(ctx, t.PatientID)
		if err != nil {
			slog.Warn("briefing: sessions fetch failed", "error", err)
			return
		}
		sessions = ss
	}()

	wg.Wait()

	// Recall scores depend on the session list, so this fetch runs after
	// the join.
	var sessionMemories []models.SessionMemory
	if len(sessions) > 0 {
		ids := make([]uuid.UUID, 0, len(sessions))
		for _, s := range sessions {
			ids = append(ids, s.ID)
		}
		sessionMemories, err = a.store.SessionMemories(ctx, ids)
		if err != nil {
			slog.Warn("briefing: session memories fetch failed", "error", err)
			sessionMemories = nil
		}
	}

	data.Sessions = summarizeSessions(sessions, sessionMemories)
	data.Insights = computeInsights(data.Memories, data.FamilyMembers, sessions, sessionMemories)

	observability.AggregationDuration.WithLabelValues("briefing").Observe(time.Since(start).Seconds())
	return data, nil
}

func summarizeSessions(sessions []models.TherapySession, sms []models.SessionMemory) []SessionSummary {
	byID := make(map[uuid.UUID][]models.SessionMemory)
	for _, sm := range sms {
		byID[sm.SessionID] = append(byID[sm.SessionID], sm)
	}

	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		reviewed := byID[s.ID]
		out = append(out, SessionSummary{
			TherapySession:   s,
			MemoriesReviewed: len(reviewed),
			AvgRecallScore:   avgRecall(reviewed),
		})
	}
	return out
}

func computeInsights(memories []models.Memory, family []models.FamilyMember, sessions []models.TherapySession, sms []models.SessionMemory) Insights {
	ins := Insights{
		TotalSessions:      len(sessions),
		TotalMemories:      len(memories),
		TotalFamilyMembers: len(family),
		MoodDistribution:   make(map[string]int),
		AvgRecallScore:     avgRecall(sms),
	}

	totalDuration := 0
	for _, s := range sessions {
		if s.Completed {
			ins.CompletedSessions++
		}
		if s.Mood != "" {
			ins.MoodDistribution[s.Mood]++
		}
		totalDuration += s.Duration
	}
	if len(sessions) > 0 {
		ins.AvgDuration = int(math.Round(float64(totalDuration) / float64(len(sessions))))
	}

	for _, m := range memories {
		if m.Importance >= 4 {
			ins.HighImportanceMemories++
		}
	}
	return ins
}

// avgRecall averages recall scores rounded to one decimal, 0 when empty.
func avgRecall(sms []models.SessionMemory) float64 {
	if len(sms) == 0 {
		return 0
	}
	sum := 0
	for _, sm := range sms {
		sum += sm.RecallScore
	}
	return math.Round(float64(sum)/float64(len(sms))*10) / 10
}
