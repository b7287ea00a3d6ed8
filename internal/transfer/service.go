// Package transfer implements the patient handoff protocol between two
// caregiver accounts.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/observability"
)

var (
	ErrPatientNotOwned    = errors.New("patient not found or not owned by sender")
	ErrRecipientNotFound  = errors.New("no caregiver found with that email")
	ErrSelfTransfer       = errors.New("cannot transfer a patient to yourself")
	ErrPendingExists      = errors.New("patient already has a pending transfer")
	ErrTransferNotFound   = errors.New("transfer not found")
	ErrNotAuthorized      = errors.New("wrong caregiver for this transfer action")
	ErrAlreadyResponded   = errors.New("transfer has already been responded to")
	ErrExpired            = errors.New("transfer has expired")
	ErrPatientUnavailable = errors.New("patient is no longer available for transfer")
	ErrInvalidEmail       = errors.New("invalid email format")
)

// Expiry is how long a transfer stays acceptable.
const Expiry = 72 * time.Hour

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Store is the persistence surface the protocol needs. AcceptTransfer
// must reassign patient ownership and mark the transfer accepted in one
// atomic unit, verifying inside that unit that the patient still belongs
// to the sender; it returns ErrPatientUnavailable otherwise.
type Store interface {
	Patient(ctx context.Context, id uuid.UUID) (*models.Patient, error)
	CaregiverByEmail(ctx context.Context, email string) (*models.Caregiver, error)
	Caregiver(ctx context.Context, id uuid.UUID) (*models.Caregiver, error)
	PendingTransferForPatient(ctx context.Context, patientID uuid.UUID) (*models.PatientTransfer, error)
	CreateTransfer(ctx context.Context, t *models.PatientTransfer) error
	Transfer(ctx context.Context, id uuid.UUID) (*models.PatientTransfer, error)
	TransfersByRecipient(ctx context.Context, caregiverID uuid.UUID) ([]models.PatientTransfer, error)
	TransfersBySender(ctx context.Context, caregiverID uuid.UUID) ([]models.PatientTransfer, error)
	MarkTransferStatus(ctx context.Context, id uuid.UUID, status models.TransferStatus, respondedAt *time.Time) error
	AcceptTransfer(ctx context.Context, t *models.PatientTransfer, respondedAt time.Time) error
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create initiates a transfer of an owned patient to the caregiver
// registered under recipientEmail. The "re-type the patient name" gate
// belongs to the caller; it is UX friction, not a protocol precondition.
func (s *Service) Create(ctx context.Context, sender *models.Caregiver, patientID uuid.UUID, recipientEmail, message string) (*models.PatientTransfer, error) {
	email := strings.ToLower(strings.TrimSpace(recipientEmail))
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if email == strings.ToLower(sender.Email) {
		return nil, ErrSelfTransfer
	}

	patient, err := s.store.Patient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if patient == nil || patient.CaregiverID != sender.ID {
		return nil, ErrPatientNotOwned
	}

	recipient, err := s.store.CaregiverByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("look up recipient: %w", err)
	}
	if recipient == nil {
		return nil, ErrRecipientNotFound
	}

	existing, err := s.store.PendingTransferForPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("check pending transfer: %w", err)
	}
	if existing != nil && existing.EffectiveStatus(s.now()) == models.TransferPending {
		return nil, ErrPendingExists
	}

	now := s.now()
	t := &models.PatientTransfer{
		ID:              uuid.New(),
		PatientID:       patient.ID,
		FromCaregiverID: sender.ID,
		ToCaregiverID:   recipient.ID,
		Status:          models.TransferPending,
		Message:         strings.TrimSpace(message),
		ExpiresAt:       now.Add(Expiry),
		CreatedAt:       now,
	}
	if err := s.store.CreateTransfer(ctx, t); err != nil {
		return nil, fmt.Errorf("create transfer: %w", err)
	}

	observability.TransferActions.WithLabelValues("create", "ok").Inc()
	return t, nil
}

// Accept finalizes a pending transfer: patient ownership moves to the
// recipient and the status becomes accepted, atomically. Returns the
// patient ID so the caller can switch the recipient's active patient.
func (s *Service) Accept(ctx context.Context, callerID, transferID uuid.UUID) (uuid.UUID, error) {
	t, err := s.loadPendingForRecipient(ctx, transferID, callerID)
	if err != nil {
		observability.TransferActions.WithLabelValues("accept", "error").Inc()
		return uuid.Nil, err
	}

	if err := s.store.AcceptTransfer(ctx, t, s.now()); err != nil {
		if errors.Is(err, ErrPatientUnavailable) {
			// Sender deleted or re-transferred the patient mid-flight.
			respondedAt := s.now()
			_ = s.store.MarkTransferStatus(ctx, t.ID, models.TransferCancelled, &respondedAt)
		}
		observability.TransferActions.WithLabelValues("accept", "error").Inc()
		return uuid.Nil, err
	}

	observability.TransferActions.WithLabelValues("accept", "ok").Inc()
	return t.PatientID, nil
}

// Reject declines a pending transfer. Recipient only; no side effects
// beyond status and respondedAt.
func (s *Service) Reject(ctx context.Context, callerID, transferID uuid.UUID) error {
	t, err := s.loadPendingForRecipient(ctx, transferID, callerID)
	if err != nil {
		observability.TransferActions.WithLabelValues("reject", "error").Inc()
		return err
	}

	respondedAt := s.now()
	if err := s.store.MarkTransferStatus(ctx, t.ID, models.TransferRejected, &respondedAt); err != nil {
		observability.TransferActions.WithLabelValues("reject", "error").Inc()
		return fmt.Errorf("mark transfer rejected: %w", err)
	}

	observability.TransferActions.WithLabelValues("reject", "ok").Inc()
	return nil
}

// Cancel withdraws a pending transfer. Sender only.
func (s *Service) Cancel(ctx context.Context, callerID, transferID uuid.UUID) error {
	t, err := s.store.Transfer(ctx, transferID)
	if err != nil {
		return fmt.Errorf("load transfer: %w", err)
	}
	if t == nil {
		return ErrTransferNotFound
	}
	if t.FromCaregiverID != callerID {
		return ErrNotAuthorized
	}
	if t.Status != models.TransferPending {
		return fmt.Errorf("%w: %s", ErrAlreadyResponded, t.Status)
	}

	respondedAt := s.now()
	if err := s.store.MarkTransferStatus(ctx, t.ID, models.TransferCancelled, &respondedAt); err != nil {
		return fmt.Errorf("mark transfer cancelled: %w", err)
	}

	observability.TransferActions.WithLabelValues("cancel", "ok").Inc()
	return nil
}

// loadPendingForRecipient fetches a transfer and checks the caller is
// the recipient and the transfer is effectively pending. A pending
// transfer past its expiry fails with ErrExpired and has expired status
// persisted opportunistically.
func (s *Service) loadPendingForRecipient(ctx context.Context, transferID, callerID uuid.UUID) (*models.PatientTransfer, error) {
	t, err := s.store.Transfer(ctx, transferID)
	if err != nil {
		return nil, fmt.Errorf("load transfer: %w", err)
	}
	if t == nil {
		return nil, ErrTransferNotFound
	}
	if t.ToCaregiverID != callerID {
		return nil, ErrNotAuthorized
	}
	if t.Status != models.TransferPending {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyResponded, t.Status)
	}
	if s.now().After(t.ExpiresAt) {
		_ = s.store.MarkTransferStatus(ctx, t.ID, models.TransferExpired, nil)
		return nil, ErrExpired
	}
	return t, nil
}

// Direction tags a listed transfer for display.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// ListedTransfer is a transfer annotated for one caregiver's view.
type ListedTransfer struct {
	models.PatientTransfer
	Direction           Direction             `json:"direction"`
	EffectiveStatus     models.TransferStatus `json:"effective_status"`
	PatientName         string                `json:"patient_name"`
	PatientPhotoURL     string                `json:"patient_photo_url,omitempty"`
	OtherCaregiverName  string                `json:"other_caregiver_name"`
	OtherCaregiverEmail string                `json:"other_caregiver_email"`
}

// List returns the caregiver's incoming and outgoing transfers, newest
// first, annotated with direction and read-time effective status.
func (s *Service) List(ctx context.Context, callerID uuid.UUID) (incoming, outgoing []ListedTransfer, err error) {
	in, err := s.store.TransfersByRecipient(ctx, callerID)
	if err != nil {
		return nil, nil, fmt.Errorf("list incoming transfers: %w", err)
	}
	out, err := s.store.TransfersBySender(ctx, callerID)
	if err != nil {
		return nil, nil, fmt.Errorf("list outgoing transfers: %w", err)
	}

	now := s.now()
	incoming = make([]ListedTransfer, 0, len(in))
	for i := range in {
		incoming = append(incoming, s.annotate(ctx, &in[i], Incoming, now))
	}
	outgoing = make([]ListedTransfer, 0, len(out))
	for i := range out {
		lt := s.annotate(ctx, &out[i], Outgoing, now)
		// Sweep stale pendings the caller sent, matching what readers
		// already see via EffectiveStatus.
		if out[i].Status == models.TransferPending && lt.EffectiveStatus == models.TransferExpired {
			_ = s.store.MarkTransferStatus(ctx, out[i].ID, models.TransferExpired, nil)
		}
		outgoing = append(outgoing, lt)
	}
	return incoming, outgoing, nil
}

func (s *Service) annotate(ctx context.Context, t *models.PatientTransfer, d Direction, now time.Time) ListedTransfer {
	lt := ListedTransfer{
		PatientTransfer: *t,
		Direction:       d,
		EffectiveStatus: t.EffectiveStatus(now),
	}

	if p, err := s.store.Patient(ctx, t.PatientID); err == nil && p != nil {
		lt.PatientName = p.Name
		lt.PatientPhotoURL = p.PhotoURL
	} else {
		lt.PatientName = "Unknown Patient"
	}

	otherID := t.FromCaregiverID
	if d == Outgoing {
		otherID = t.ToCaregiverID
	}
	if c, err := s.store.Caregiver(ctx, otherID); err == nil && c != nil {
		lt.OtherCaregiverName = c.Name
		lt.OtherCaregiverEmail = c.Email
	} else {
		lt.OtherCaregiverName = "Unknown"
	}
	return lt
}
