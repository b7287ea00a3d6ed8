package recognition

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/observability"
	"github.com/your-org/memora/internal/session"
	"github.com/your-org/memora/internal/timer"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCapturing
	PhaseAwaiting
	PhaseResolved
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCapturing:
		return "capturing"
	case PhaseAwaiting:
		return "awaiting"
	case PhaseResolved:
		return "resolved"
	}
	return "unknown"
}

// progressPhrases rotate while a capture is awaiting its result. Purely
// cosmetic; rotation stops the moment the attempt resolves.
var progressPhrases = []string{
	"Looking closely...",
	"Checking family photos...",
	"Almost there...",
	"Matching faces...",
}

// Snapshot is an immutable view of the session for observers.
type Snapshot struct {
	Phase          Phase
	Attempt        uint64
	Result         *models.RecognitionResult
	TransientError string
	ReauthRequired bool
	Phrase         string
}

// Session governs the capture -> awaiting -> resolved -> reset lifecycle
// for one camera. At most one capture is in flight; a stale gateway
// response (superseded by Reset or a newer capture, or by an
// active-patient change) is discarded on arrival.
type Session struct {
	gateway  Gateway
	sessions *session.Manager

	mu             sync.Mutex
	phase          Phase
	attempt        uint64
	captured       []byte
	result         *models.RecognitionResult
	transientErr   string
	reauthRequired bool
	phraseIdx      int
	phraseTimer    *timer.Interval

	// OnChange is invoked, without the session lock held, after every
	// observable state change.
	OnChange func(Snapshot)
	// OnMatch fires once per successful resolve, with the context the
	// capture was started under.
	OnMatch func(sctx session.Context, identity models.Identity)
	// OnReset fires on every Reset so derived state (related-content
	// bundle, slideshow) can be cleared alongside.
	OnReset func()
}

func NewSession(gateway Gateway, sessions *session.Manager, phraseInterval time.Duration) *Session {
	if phraseInterval <= 0 {
		phraseInterval = 2 * time.Second
	}
	s := &Session{
		gateway:  gateway,
		sessions: sessions,
		phase:    PhaseIdle,
	}
	s.phraseTimer = timer.NewInterval(phraseInterval, s.rotatePhrase)
	return s
}

// Capture starts one recognition attempt with the given JPEG bytes.
// A capture while one is already in flight is an idempotent no-op.
// Without a resolved patient context the session moves to a local
// reauth-required state and the image is discarded; the gateway is
// never called.
func (s *Session) Capture(ctx context.Context, image []byte) {
	s.mu.Lock()
	if s.phase == PhaseCapturing || s.phase == PhaseAwaiting {
		s.mu.Unlock()
		return
	}

	s.phase = PhaseCapturing
	s.result = nil
	s.transientErr = ""

	sctx, gen := s.sessions.Snapshot()
	if !sctx.Valid() {
		s.captured = nil
		s.reauthRequired = true
		s.phase = PhaseIdle
		s.mu.Unlock()
		s.notify()
		return
	}

	s.reauthRequired = false
	s.captured = image
	s.attempt++
	attempt := s.attempt
	s.phase = PhaseAwaiting
	s.phraseIdx = 0
	s.phraseTimer.Reset()
	s.mu.Unlock()
	s.notify()

	go func() {
		result, err := s.gateway.Recognize(ctx, image, sctx.PatientID.String())
		s.resolve(attempt, gen, sctx, result, err)
	}()
}

// resolve applies a gateway response, unless the attempt has been
// superseded or the active patient changed while it was in flight.
func (s *Session) resolve(attempt, gen uint64, sctx session.Context, result *models.RecognitionResult, err error) {
	s.mu.Lock()
	if attempt != s.attempt || s.phase != PhaseAwaiting {
		s.mu.Unlock()
		slog.Debug("discarding stale recognition response", "attempt", attempt)
		return
	}
	if !s.sessions.Current(gen) {
		// The patient context moved on mid-flight. Drop the response and
		// return to idle rather than applying it to the new context.
		s.captured = nil
		s.phase = PhaseIdle
		s.phraseTimer.Stop()
		s.mu.Unlock()
		slog.Debug("discarding recognition response for stale patient context")
		s.notify()
		return
	}

	s.phraseTimer.Stop()

	if err != nil {
		// Transport failure: generic retry prompt, back to a state that
		// permits recapture.
		s.captured = nil
		s.transientErr = "Failed to recognize face. Please try again."
		s.phase = PhaseIdle
		s.mu.Unlock()
		observability.RecognitionAttempts.WithLabelValues("transport_error").Inc()
		slog.Warn("recognition gateway call failed", "error", err)
		s.notify()
		return
	}

	s.result = result
	s.phase = PhaseResolved
	s.mu.Unlock()

	if result.Matched {
		observability.RecognitionAttempts.WithLabelValues("match").Inc()
	} else {
		observability.RecognitionAttempts.WithLabelValues(string(result.ErrorKind)).Inc()
	}

	s.notify()

	if result.Matched && s.OnMatch != nil {
		s.OnMatch(sctx, *result.Identity)
	}
}

// Reset returns the session to idle from any phase, releasing the
// captured image and invalidating any in-flight gateway response.
// Repeated resets are harmless.
func (s *Session) Reset() {
	s.mu.Lock()
	s.phraseTimer.Stop()
	s.attempt++
	s.captured = nil
	s.result = nil
	s.transientErr = ""
	s.reauthRequired = false
	s.phase = PhaseIdle
	s.mu.Unlock()

	s.notify()

	if s.OnReset != nil {
		s.OnReset()
	}
}

func (s *Session) rotatePhrase() {
	s.mu.Lock()
	if s.phase != PhaseAwaiting {
		s.mu.Unlock()
		return
	}
	s.phraseIdx = (s.phraseIdx + 1) % len(progressPhrases)
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:          s.phase,
		Attempt:        s.attempt,
		Result:         s.result,
		TransientError: s.transientErr,
		ReauthRequired: s.reauthRequired,
	}
	if s.phase == PhaseAwaiting {
		snap.Phrase = progressPhrases[s.phraseIdx]
	}
	return snap
}

// HasCapturedImage reports whether a captured image buffer is held.
func (s *Session) HasCapturedImage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured != nil
}

func (s *Session) notify() {
	if s.OnChange == nil {
		return
	}
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.OnChange(snap)
}
