// Package related resolves the content shown after a successful
// recognition: memories mentioning the person, photos tagged with them
// inside those memories, and their stored reference photos.
package related

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/observability"
	"github.com/your-org/memora/internal/session"
)

// Store is the slice of the data API the aggregator needs.
type Store interface {
	// MemoriesByPerson returns the patient's memories whose people text
	// contains name (case-insensitive), most recent first.
	MemoriesByPerson(ctx context.Context, patientID uuid.UUID, name string) ([]models.Memory, error)
	// TaggedPhotoURLs returns photo URLs from the given memories whose
	// photo-level people tags include name (case-insensitive).
	TaggedPhotoURLs(ctx context.Context, memoryIDs []uuid.UUID, name string) ([]string, error)
	// FamilyMemberPhotoURLs returns the member's reference photo list in
	// stored order.
	FamilyMemberPhotoURLs(ctx context.Context, familyMemberID uuid.UUID) ([]string, error)
}

// Bundle is the aggregation result for one matched identity. Rebuilt in
// full on every match, never partially updated.
type Bundle struct {
	Identity      models.Identity
	Memories      []models.Memory
	TaggedPhotos  []string // deduplicated, slideshow set
	ProfilePhotos []string // reference photos, kept separate
}

// Aggregator runs the fan-out fetch. Each branch fails independently:
// a failed slice becomes empty rather than aborting the join. A load
// superseded by a newer one (or by a patient-context change) is
// discarded when it completes.
type Aggregator struct {
	store    Store
	sessions *session.Manager

	mu      sync.Mutex
	gen     uint64
	current *Bundle

	// OnBundle is invoked, without the lock held, when a load lands.
	OnBundle func(Bundle)
}

func NewAggregator(store Store, sessions *session.Manager) *Aggregator {
	return &Aggregator{store: store, sessions: sessions}
}

// Load fetches related content for a matched identity under the given
// patient context. The load's generation is claimed before Load
// returns, so a Clear or patient switch after the trigger always
// supersedes it. The fetches run in the background; the returned
// channel closes once the load settles, landed or discarded.
func (a *Aggregator) Load(ctx context.Context, sctx session.Context, identity models.Identity) <-chan struct{} {
	a.mu.Lock()
	a.gen++
	gen := a.gen
	a.mu.Unlock()

	_, sessionGen := a.sessions.Snapshot()

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.run(ctx, gen, sessionGen, sctx, identity)
	}()
	return done
}

// run executes the fan-out fetch for one claimed load. Branches run
// concurrently; the tagged-photo fetch waits on the memory fetch it
// depends on, the profile-photo fetch does not.
func (a *Aggregator) run(ctx context.Context, gen, sessionGen uint64, sctx session.Context, identity models.Identity) {
	start := time.Now()
	bundle := Bundle{Identity: identity}

	var wg sync.WaitGroup
	wg.Add(2)

	// Branch A: memory-level text search, then photo-level tag search
	// over the memories found.
	go func() {
		defer wg.Done()

		memories, err := a.store.MemoriesByPerson(ctx, sctx.PatientID, identity.Name)
		if err != nil {
			slog.Warn("related content: memories fetch failed", "person", identity.Name, "error", err)
			return
		}
		bundle.Memories = memories

		if len(memories) == 0 {
			return
		}
		ids := make([]uuid.UUID, 0, len(memories))
		for _, m := range memories {
			ids = append(ids, m.ID)
		}

		urls, err := a.store.TaggedPhotoURLs(ctx, ids, identity.Name)
		if err != nil {
			slog.Warn("related content: tagged photos fetch failed", "person", identity.Name, "error", err)
			return
		}
		bundle.TaggedPhotos = dedupURLs(urls)
	}()

	// Branch B: the person's stored reference photos, independent of
	// branch A. Never merged into the slideshow set.
	go func() {
		defer wg.Done()

		if identity.ID == uuid.Nil {
			return
		}
		urls, err := a.store.FamilyMemberPhotoURLs(ctx, identity.ID)
		if err != nil {
			slog.Warn("related content: profile photos fetch failed", "person", identity.Name, "error", err)
			return
		}
		bundle.ProfilePhotos = urls
	}()

	wg.Wait()
	observability.AggregationDuration.WithLabelValues("related").Observe(time.Since(start).Seconds())

	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		slog.Debug("discarding stale related-content load", "person", identity.Name)
		return
	}
	if !a.sessions.Current(sessionGen) {
		a.mu.Unlock()
		slog.Debug("discarding related-content load for stale patient context")
		return
	}
	a.current = &bundle
	a.mu.Unlock()

	if a.OnBundle != nil {
		a.OnBundle(bundle)
	}
}

// Current returns the last landed bundle, or nil after Clear.
func (a *Aggregator) Current() *Bundle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Clear drops the bundle and invalidates in-flight loads.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	a.gen++
	a.current = nil
	a.mu.Unlock()
}

// dedupURLs trims entries and keeps the first occurrence of each
// non-empty URL. Keys are case-sensitive.
func dedupURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
