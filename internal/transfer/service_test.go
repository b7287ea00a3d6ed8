package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/memora/internal/models"
)

type fakeStore struct {
	mu         sync.Mutex
	patients   map[uuid.UUID]*models.Patient
	caregivers map[uuid.UUID]*models.Caregiver
	transfers  map[uuid.UUID]*models.PatientTransfer
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		patients:   make(map[uuid.UUID]*models.Patient),
		caregivers: make(map[uuid.UUID]*models.Caregiver),
		transfers:  make(map[uuid.UUID]*models.PatientTransfer),
	}
}

func (f *fakeStore) Patient(_ context.Context, id uuid.UUID) (*models.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.patients[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) CaregiverByEmail(_ context.Context, email string) (*models.Caregiver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.caregivers {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Caregiver(_ context.Context, id uuid.UUID) (*models.Caregiver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.caregivers[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) PendingTransferForPatient(_ context.Context, patientID uuid.UUID) (*models.PatientTransfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.transfers {
		if t.PatientID == patientID && t.Status == models.TransferPending {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateTransfer(_ context.Context, t *models.PatientTransfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.transfers[t.ID] = &cp
	return nil
}

func (f *fakeStore) Transfer(_ context.Context, id uuid.UUID) (*models.PatientTransfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.transfers[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) TransfersByRecipient(_ context.Context, caregiverID uuid.UUID) ([]models.PatientTransfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PatientTransfer
	for _, t := range f.transfers {
		if t.ToCaregiverID == caregiverID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeStore) TransfersBySender(_ context.Context, caregiverID uuid.UUID) ([]models.PatientTransfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PatientTransfer
	for _, t := range f.transfers {
		if t.FromCaregiverID == caregiverID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkTransferStatus(_ context.Context, id uuid.UUID, status models.TransferStatus, respondedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transfers[id]
	if !ok {
		return errors.New("transfer not found")
	}
	t.Status = status
	if respondedAt != nil {
		t.RespondedAt = respondedAt
	}
	return nil
}

func (f *fakeStore) AcceptTransfer(_ context.Context, t *models.PatientTransfer, respondedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	patient, ok := f.patients[t.PatientID]
	if !ok || patient.CaregiverID != t.FromCaregiverID {
		return ErrPatientUnavailable
	}
	stored, ok := f.transfers[t.ID]
	if !ok || stored.Status != models.TransferPending {
		return ErrAlreadyResponded
	}
	patient.CaregiverID = t.ToCaregiverID
	stored.Status = models.TransferAccepted
	stored.RespondedAt = &respondedAt
	return nil
}

// fixture sets up two caregivers, a patient owned by the first, and a
// service with a controllable clock.
func fixture(t *testing.T) (*Service, *fakeStore, *models.Caregiver, *models.Caregiver, *models.Patient, *time.Time) {
	t.Helper()
	store := newFakeStore()

	sender := &models.Caregiver{ID: uuid.New(), Name: "Sarah", Email: "sarah@example.com"}
	recipient := &models.Caregiver{ID: uuid.New(), Name: "James", Email: "james@example.com"}
	patient := &models.Patient{ID: uuid.New(), Name: "Abdul Rahman", CaregiverID: sender.ID}

	store.caregivers[sender.ID] = sender
	store.caregivers[recipient.ID] = recipient
	store.patients[patient.ID] = patient

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(store)
	svc.now = func() time.Time { return now }

	return svc, store, sender, recipient, patient, &now
}

func TestCreateTransfer(t *testing.T) {
	svc, _, sender, recipient, patient, now := fixture(t)

	tr, err := svc.Create(context.Background(), sender, patient.ID, recipient.Email, "moving to new facility")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if tr.Status != models.TransferPending {
		t.Errorf("status = %s, want pending", tr.Status)
	}
	if tr.FromCaregiverID != sender.ID || tr.ToCaregiverID != recipient.ID {
		t.Errorf("wrong parties on transfer")
	}
	if want := now.Add(72 * time.Hour); !tr.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", tr.ExpiresAt, want)
	}
}

func TestCreateTransferValidation(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		{"invalid email", "not-an-email", ErrInvalidEmail},
		{"self transfer", "sarah@example.com", ErrSelfTransfer},
		{"unknown recipient", "nobody@example.com", ErrRecipientNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, sender, _, patient, _ := fixture(t)
			_, err := svc.Create(context.Background(), sender, patient.ID, tt.email, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateTransferEmailNormalized(t *testing.T) {
	svc, _, sender, recipient, patient, _ := fixture(t)

	tr, err := svc.Create(context.Background(), sender, patient.ID, "  JAMES@Example.COM ", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tr.ToCaregiverID != recipient.ID {
		t.Errorf("recipient not resolved from normalized email")
	}
}

func TestCreateTransferNotOwned(t *testing.T) {
	svc, _, _, recipient, patient, _ := fixture(t)

	// Recipient does not own the patient.
	_, err := svc.Create(context.Background(), recipient, patient.ID, "sarah@example.com", "")
	if !errors.Is(err, ErrPatientNotOwned) {
		t.Errorf("Create err = %v, want ErrPatientNotOwned", err)
	}
}

func TestCreateTransferPendingExists(t *testing.T) {
	svc, _, sender, recipient, patient, _ := fixture(t)

	if _, err := svc.Create(context.Background(), sender, patient.ID, recipient.Email, ""); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := svc.Create(context.Background(), sender, patient.ID, recipient.Email, "")
	if !errors.Is(err, ErrPendingExists) {
		t.Errorf("second Create err = %v, want ErrPendingExists", err)
	}
}

func TestCreateTransferAfterExpiredPending(t *testing.T) {
	svc, _, sender, recipient, patient, now := fixture(t)

	if _, err := svc.Create(context.Background(), sender, patient.ID, recipient.Email, ""); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	// 73 hours later the old pending is effectively expired, so a new
	// transfer is allowed.
	*now = now.Add(73 * time.Hour)
	if _, err := svc.Create(context.Background(), sender, patient.ID, recipient.Email, ""); err != nil {
		t.Errorf("Create after expiry failed: %v", err)
	}
}

func TestAcceptMovesOwnership(t *testing.T) {
	svc, store, sender, recipient, patient, _ := fixture(t)

	tr, err := svc.Create(context.Background(), sender, patient.ID, recipient.Email, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	patientID, err := svc.Accept(context.Background(), recipient.ID, tr.ID)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if patientID != patient.ID {
		t.Errorf("Accept returned patient %s, want %s", patientID, patient.ID)
	}

	p, _ := store.Patient(context.Background(), patient.ID)
	if p.CaregiverID != recipient.ID {
		t.Errorf("patient owner = %s, want recipient %s", p.CaregiverID, recipient.ID)
	}
	got, _ := store.Transfer(context.Background(), tr.ID)
	if got.Status != models.TransferAccepted {
		t.Errorf("transfer status = %s, want accepted", got.Status)
	}
	if got.RespondedAt == nil {
		t.Errorf("RespondedAt not set")
	}
}

func TestAcceptWrongParty(t *testing.T) {
	svc, _, sender, recipient, patient, _ := fixture(t)

	tr, _ := svc.Create(context.Background(), sender, patient.ID, recipient.Email, "")

	// Sender cannot accept their own outgoing transfer.
	if _, err := svc.Accept(context.Background(), sender.ID, tr.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Accept by sender err = %v, want ErrNotAuthorized", err)
	}
}

func TestAcceptAlreadyResponded(t *testing.T) {
	svc, _, sender, recipient, patient, _ := fixture(t)

	tr, _ := svc.Create(context.Background(), sender, patient.ID, recipient.Email, "")
	if err := svc.Reject(context.Background(), recipient.ID, tr.ID); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if _, err := svc.Accept(context.Background(), recipient.ID, tr.ID); !errors.Is(err, ErrAlreadyResponded) {
		t.Errorf("Accept after reject err = %v, want ErrAlreadyResponded", err)
	}
}

func TestAcceptExpired(t *testing.T) {
	svc, store, sender, recipient, patient, now := fixture(t)

	tr, _ := svc.Create(context.Background(), sender, patient.ID, recipient.Email, "")

	*now = now.Add(72*time.Hour + time.Minute)
	if _, err := svc.Accept(context.Background(), recipient.ID, tr.ID); !errors.Is(err, ErrExpired) {
		t.Fatalf("Accept past expiry err = %v, want ErrExpired", err)
	}

	// Expired status is persisted opportunistically.
	got, _ := store.Transfer(context.Background(), tr.ID)
	if got.Status != models.TransferExpired {
		t.Errorf("stored status = %s, want expired", got.Status)
	}

	p, _ := store.Patient(context.Background(), patient.ID)
	if p.CaregiverID != sender.ID {
		t.Errorf("ownership changed on expired accept")
	}
}

func TestAcceptPatientUnavailable(t *testing.T) {
	svc, store, sender, recipient, patient, _ := fixture(t)

	tr, _ := svc.Create(context.Background(), sender, patient.ID, recipient.Email, "")

	// Patient vanishes from under the pending transfer.
	store.mu.Lock()
	delete(store.patients, patient.ID)
	store.mu.Unlock()

	if _, err := svc.Accept(context.Background(), recipient.ID, tr.ID); !errors.Is(err, ErrPatientUnavailable) {
		t.Fatalf("Accept err = %v, want ErrPatientUnavailable", err)
	}

	got, _ := store.Transfer(context.Background(), tr.ID)
	if got.Status != models.TransferCancelled {
		t.Errorf("stored status = %s, want cancelled", got.Status)
	}
}

func TestRejectKeepsOwnership(t *testing.T) {
	svc, store, sender, recipient, patient, _ := fixture(t)

	tr, _ := svc.Create(context.Background(), sender, patient.ID, recipient.Email, "")
	if err := svc.Reject(context.Background(), recipient.ID, tr.ID); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	p, _ := store.Patient(context.Background(), patient.ID)
	if p.CaregiverID != sender.ID {
		t.Errorf("ownership changed on reject")
	}
	got, _ := store.Transfer(context.Background(), tr.ID)
	if got.Status != models.TransferRejected {
		t.Errorf("status = %s, want rejected", got.Status)
	}
}

func TestCancelSenderOnly(t *testing.T) {
	svc, store, sender, recipient, patient, _ := fixture(t)

	tr, _ := svc.Create(context.Background(), sender, patient.ID, recipient.Email, "")

	if err := svc.Cancel(context.Background(), recipient.ID, tr.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Cancel by recipient err = %v, want ErrNotAuthorized", err)
	}

	if err := svc.Cancel(context.Background(), sender.ID, tr.ID); err != nil {
		t.Fatalf("Cancel by sender failed: %v", err)
	}
	got, _ := store.Transfer(context.Background(), tr.ID)
	if got.Status != models.TransferCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
}

func TestCancelAfterResponse(t *testing.T) {
	svc, _, sender, recipient, patient, _ := fixture(t)

	tr, _ := svc.Create(context.Background(), sender, patient.ID, recipient.Email, "")
	if _, err := svc.Accept(context.Background(), recipient.ID, tr.ID); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if err := svc.Cancel(context.Background(), sender.ID, tr.ID); !errors.Is(err, ErrAlreadyResponded) {
		t.Errorf("Cancel after accept err = %v, want ErrAlreadyResponded", err)
	}
}

func TestTransferNotFound(t *testing.T) {
	svc, _, sender, recipient, _, _ := fixture(t)

	missing := uuid.New()
	if _, err := svc.Accept(context.Background(), recipient.ID, missing); !errors.Is(err, ErrTransferNotFound) {
		t.Errorf("Accept missing err = %v, want ErrTransferNotFound", err)
	}
	if err := svc.Cancel(context.Background(), sender.ID, missing); !errors.Is(err, ErrTransferNotFound) {
		t.Errorf("Cancel missing err = %v, want ErrTransferNotFound", err)
	}
}

func TestListAnnotatesDirections(t *testing.T) {
	svc, _, sender, recipient, patient, _ := fixture(t)

	tr, _ := svc.Create(context.Background(), sender, patient.ID, recipient.Email, "note")

	incoming, outgoing, err := svc.List(context.Background(), recipient.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(incoming) != 1 || len(outgoing) != 0 {
		t.Fatalf("recipient view: incoming=%d outgoing=%d, want 1/0", len(incoming), len(outgoing))
	}
	got := incoming[0]
	if got.ID != tr.ID || got.Direction != Incoming {
		t.Errorf("wrong transfer or direction in incoming list")
	}
	if got.PatientName != patient.Name {
		t.Errorf("PatientName = %q, want %q", got.PatientName, patient.Name)
	}
	if got.OtherCaregiverEmail != sender.Email {
		t.Errorf("OtherCaregiverEmail = %q, want sender's", got.OtherCaregiverEmail)
	}

	incoming, outgoing, err = svc.List(context.Background(), sender.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(incoming) != 0 || len(outgoing) != 1 {
		t.Fatalf("sender view: incoming=%d outgoing=%d, want 0/1", len(incoming), len(outgoing))
	}
	if outgoing[0].OtherCaregiverEmail != recipient.Email {
		t.Errorf("outgoing OtherCaregiverEmail = %q, want recipient's", outgoing[0].OtherCaregiverEmail)
	}
}

func TestListSweepsExpiredOutgoing(t *testing.T) {
	svc, store, sender, recipient, patient, now := fixture(t)

	tr, _ := svc.Create(context.Background(), sender, patient.ID, recipient.Email, "")
	*now = now.Add(80 * time.Hour)

	_, outgoing, err := svc.List(context.Background(), sender.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if outgoing[0].EffectiveStatus != models.TransferExpired {
		t.Errorf("EffectiveStatus = %s, want expired", outgoing[0].EffectiveStatus)
	}

	got, _ := store.Transfer(context.Background(), tr.ID)
	if got.Status != models.TransferExpired {
		t.Errorf("stored status after sweep = %s, want expired", got.Status)
	}
}
