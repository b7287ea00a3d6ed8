package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/memora/internal/config"
	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/transfer"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Caregivers ---

func (s *PostgresStore) CreateCaregiver(ctx context.Context, c *models.Caregiver) error {
	c.ID = uuid.New()
	return s.pool.QueryRow(ctx,
		`INSERT INTO caregivers (id, name, email, password_hash, api_token)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Email, c.PasswordHash, c.APIToken,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (s *PostgresStore) Caregiver(ctx context.Context, id uuid.UUID) (*models.Caregiver, error) {
	return s.caregiverBy(ctx, "id = $1", id)
}

func (s *PostgresStore) CaregiverByEmail(ctx context.Context, email string) (*models.Caregiver, error) {
	return s.caregiverBy(ctx, "email = $1", email)
}

func (s *PostgresStore) CaregiverByToken(ctx context.Context, token string) (*models.Caregiver, error) {
	return s.caregiverBy(ctx, "api_token = $1", token)
}

func (s *PostgresStore) caregiverBy(ctx context.Context, where string, arg interface{}) (*models.Caregiver, error) {
	c := &models.Caregiver{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, api_token, created_at, updated_at
		 FROM caregivers WHERE `+where, arg,
	).Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.APIToken, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get caregiver: %w", err)
	}
	return c, nil
}

// --- Patients ---

func (s *PostgresStore) CreatePatient(ctx context.Context, p *models.Patient) error {
	p.ID = uuid.New()
	return s.pool.QueryRow(ctx,
		`INSERT INTO patients (id, name, age, diagnosis, mmse_score, notes, photo_url, caregiver_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Age, p.Diagnosis, p.MMSEScore, p.Notes, p.PhotoURL, p.CaregiverID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (s *PostgresStore) Patient(ctx context.Context, id uuid.UUID) (*models.Patient, error) {
	p := &models.Patient{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, age, diagnosis, mmse_score, notes, photo_url, caregiver_id, created_at, updated_at
		 FROM patients WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Age, &p.Diagnosis, &p.MMSEScore, &p.Notes, &p.PhotoURL,
		&p.CaregiverID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) PatientsByCaregiver(ctx context.Context, caregiverID uuid.UUID) ([]models.Patient, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, age, diagnosis, mmse_score, notes, photo_url, caregiver_id, created_at, updated_at
		 FROM patients WHERE caregiver_id = $1 ORDER BY created_at DESC`, caregiverID)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var patients []models.Patient
	for rows.Next() {
		var p models.Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.Age, &p.Diagnosis, &p.MMSEScore, &p.Notes,
			&p.PhotoURL, &p.CaregiverID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, nil
}

// --- Memories ---

func (s *PostgresStore) CreateMemory(ctx context.Context, m *models.Memory) error {
	m.ID = uuid.New()
	return s.pool.QueryRow(ctx,
		`INSERT INTO memories (id, patient_id, title, description, date, event, location, people, importance)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at, updated_at`,
		m.ID, m.PatientID, m.Title, m.Description, m.Date, m.Event, m.Location, m.People, m.Importance,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

const memoryColumns = `id, patient_id, title, description, date, event, location, people, importance, created_at, updated_at`

func scanMemory(row pgx.Row) (models.Memory, error) {
	var m models.Memory
	err := row.Scan(&m.ID, &m.PatientID, &m.Title, &m.Description, &m.Date,
		&m.Event, &m.Location, &m.People, &m.Importance, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (s *PostgresStore) Memory(ctx context.Context, id uuid.UUID) (*models.Memory, error) {
	m, err := scanMemory(s.pool.QueryRow(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get memory: %w", err)
	}

	photos, err := s.MemoryPhotos(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	m.Photos = photos
	return &m, nil
}

func (s *PostgresStore) Memories(ctx context.Context, patientID uuid.UUID) ([]models.Memory, error) {
	return s.queryMemories(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE patient_id = $1 ORDER BY date DESC`, patientID)
}

// MemoriesByPerson returns the patient's memories whose free-text people
// field contains name, case-insensitive, most recent first.
func (s *PostgresStore) MemoriesByPerson(ctx context.Context, patientID uuid.UUID, name string) ([]models.Memory, error) {
	return s.queryMemories(ctx,
		`SELECT `+memoryColumns+` FROM memories
		 WHERE patient_id = $1 AND people ILIKE '%' || $2 || '%'
		 ORDER BY date DESC`, patientID, escapeLike(name))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes ILIKE metacharacters so a person name matches
// literally; "100%" must not act as a wildcard.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *PostgresStore) queryMemories(ctx context.Context, query string, args ...interface{}) ([]models.Memory, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var memories []models.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		memories = append(memories, m)
	}
	return memories, nil
}

// MemoriesWithPhotos returns all of a patient's memories ordered by
// importance (highest first), each with its photos in index order.
// Used by the transfer briefing.
func (s *PostgresStore) MemoriesWithPhotos(ctx context.Context, patientID uuid.UUID) ([]models.Memory, error) {
	memories, err := s.queryMemories(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE patient_id = $1 ORDER BY importance DESC`, patientID)
	if err != nil {
		return nil, err
	}
	if len(memories) == 0 {
		return memories, nil
	}

	ids := make([]uuid.UUID, 0, len(memories))
	for _, m := range memories {
		ids = append(ids, m.ID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, memory_id, photo_url, photo_index, people, description, created_at
		 FROM memory_photos WHERE memory_id = ANY($1) ORDER BY photo_index ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("query memory photos: %w", err)
	}
	defer rows.Close()

	byMemory := make(map[uuid.UUID][]models.MemoryPhoto)
	for rows.Next() {
		var p models.MemoryPhoto
		if err := rows.Scan(&p.ID, &p.MemoryID, &p.PhotoURL, &p.PhotoIndex, &p.People,
			&p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory photo: %w", err)
		}
		byMemory[p.MemoryID] = append(byMemory[p.MemoryID], p)
	}

	for i := range memories {
		memories[i].Photos = byMemory[memories[i].ID]
	}
	return memories, nil
}

func (s *PostgresStore) DeleteMemory(ctx context.Context, id, patientID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM memories WHERE id = $1 AND patient_id = $2`, id, patientID)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("memory not found")
	}
	return nil
}

// --- Memory photos ---

func (s *PostgresStore) AddMemoryPhoto(ctx context.Context, p *models.MemoryPhoto) error {
	p.ID = uuid.New()
	if p.People == nil {
		p.People = []string{}
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO memory_photos (id, memory_id, photo_url, photo_index, people, description)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		p.ID, p.MemoryID, p.PhotoURL, p.PhotoIndex, p.People, p.Description,
	).Scan(&p.CreatedAt)
}

func (s *PostgresStore) MemoryPhotos(ctx context.Context, memoryID uuid.UUID) ([]models.MemoryPhoto, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, memory_id, photo_url, photo_index, people, description, created_at
		 FROM memory_photos WHERE memory_id = $1 ORDER BY photo_index ASC`, memoryID)
	if err != nil {
		return nil, fmt.Errorf("list memory photos: %w", err)
	}
	defer rows.Close()

	var photos []models.MemoryPhoto
	for rows.Next() {
		var p models.MemoryPhoto
		if err := rows.Scan(&p.ID, &p.MemoryID, &p.PhotoURL, &p.PhotoIndex, &p.People,
			&p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, nil
}

// TaggedPhotoURLs returns photo URLs from the given memories whose
// photo-level people tags contain name, case-insensitive. This is a
// different granularity than MemoriesByPerson: photo tags, not memory
// text.
func (s *PostgresStore) TaggedPhotoURLs(ctx context.Context, memoryIDs []uuid.UUID, name string) ([]string, error) {
	if len(memoryIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT photo_url FROM memory_photos
		 WHERE memory_id = ANY($1)
		   AND EXISTS (SELECT 1 FROM unnest(people) AS tag WHERE tag ILIKE '%' || $2 || '%')
		 ORDER BY photo_index ASC`, memoryIDs, escapeLike(name))
	if err != nil {
		return nil, fmt.Errorf("query tagged photos: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan tagged photo: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// --- Family members ---

func (s *PostgresStore) CreateFamilyMember(ctx context.Context, f *models.FamilyMember) error {
	f.ID = uuid.New()
	if f.PhotoURLs == nil {
		f.PhotoURLs = []string{}
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO family_members (id, patient_id, name, relationship, photo_urls, notes)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`,
		f.ID, f.PatientID, f.Name, f.Relationship, f.PhotoURLs, f.Notes,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
}

func (s *PostgresStore) FamilyMember(ctx context.Context, id uuid.UUID) (*models.FamilyMember, error) {
	f := &models.FamilyMember{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, patient_id, name, relationship, photo_urls, notes, created_at, updated_at
		 FROM family_members WHERE id = $1`, id,
	).Scan(&f.ID, &f.PatientID, &f.Name, &f.Relationship, &f.PhotoURLs, &f.Notes,
		&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get family member: %w", err)
	}
	return f, nil
}

func (s *PostgresStore) FamilyMembers(ctx context.Context, patientID uuid.UUID) ([]models.FamilyMember, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, patient_id, name, relationship, photo_urls, notes, created_at, updated_at
		 FROM family_members WHERE patient_id = $1 ORDER BY name ASC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	defer rows.Close()

	var members []models.FamilyMember
	for rows.Next() {
		var f models.FamilyMember
		if err := rows.Scan(&f.ID, &f.PatientID, &f.Name, &f.Relationship, &f.PhotoURLs,
			&f.Notes, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, f)
	}
	return members, nil
}

// FamilyMemberPhotoURLs returns the member's reference photos in stored
// order.
func (s *PostgresStore) FamilyMemberPhotoURLs(ctx context.Context, familyMemberID uuid.UUID) ([]string, error) {
	var urls []string
	err := s.pool.QueryRow(ctx,
		`SELECT photo_urls FROM family_members WHERE id = $1`, familyMemberID,
	).Scan(&urls)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get family member photos: %w", err)
	}
	return urls, nil
}

// --- Face embeddings ---
// Reference embeddings for the external matcher. The portal stores and
// manages them; it never searches.

func (s *PostgresStore) AddFaceEmbedding(ctx context.Context, familyMemberID uuid.UUID, embedding []float32, quality float32, sourceKey string) (*models.FaceEmbedding, error) {
	fe := &models.FaceEmbedding{
		ID:             uuid.New(),
		FamilyMemberID: familyMemberID,
		Embedding:      embedding,
		Quality:        quality,
		SourceKey:      sourceKey,
	}
	vec := pgvector.NewVector(embedding)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO face_embeddings (id, family_member_id, embedding, quality, source_key)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		fe.ID, fe.FamilyMemberID, vec, fe.Quality, fe.SourceKey,
	).Scan(&fe.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add face embedding: %w", err)
	}
	return fe, nil
}

func (s *PostgresStore) ListFaceEmbeddings(ctx context.Context, familyMemberID uuid.UUID) ([]models.FaceEmbedding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, family_member_id, quality, source_key, created_at
		 FROM face_embeddings WHERE family_member_id = $1 ORDER BY created_at DESC`,
		familyMemberID)
	if err != nil {
		return nil, fmt.Errorf("list face embeddings: %w", err)
	}
	defer rows.Close()

	var faces []models.FaceEmbedding
	for rows.Next() {
		var fe models.FaceEmbedding
		if err := rows.Scan(&fe.ID, &fe.FamilyMemberID, &fe.Quality, &fe.SourceKey, &fe.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face embedding: %w", err)
		}
		faces = append(faces, fe)
	}
	return faces, nil
}

func (s *PostgresStore) DeleteFaceEmbeddings(ctx context.Context, familyMemberID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM face_embeddings WHERE family_member_id = $1`, familyMemberID)
	if err != nil {
		return fmt.Errorf("delete face embeddings: %w", err)
	}
	return nil
}

// --- Therapy sessions ---

func (s *PostgresStore) CreateTherapySession(ctx context.Context, ts *models.TherapySession) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin session tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ts.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO therapy_sessions (id, patient_id, date, duration, mood, notes, completed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		ts.ID, ts.PatientID, ts.Date, ts.Duration, ts.Mood, ts.Notes, ts.Completed,
	).Scan(&ts.CreatedAt)
	if err != nil {
		return fmt.Errorf("create therapy session: %w", err)
	}

	for i := range ts.Memories {
		sm := &ts.Memories[i]
		sm.ID = uuid.New()
		sm.SessionID = ts.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO session_memories (id, session_id, memory_id, recall_score, response, notes, reviewed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sm.ID, sm.SessionID, sm.MemoryID, sm.RecallScore, sm.Response, sm.Notes, sm.ReviewedAt)
		if err != nil {
			return fmt.Errorf("create session memory: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) TherapySessions(ctx context.Context, patientID uuid.UUID) ([]models.TherapySession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, patient_id, date, duration, mood, notes, completed, created_at
		 FROM therapy_sessions WHERE patient_id = $1 ORDER BY date DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list therapy sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.TherapySession
	for rows.Next() {
		var ts models.TherapySession
		if err := rows.Scan(&ts.ID, &ts.PatientID, &ts.Date, &ts.Duration, &ts.Mood,
			&ts.Notes, &ts.Completed, &ts.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan therapy session: %w", err)
		}
		sessions = append(sessions, ts)
	}
	return sessions, nil
}

func (s *PostgresStore) SessionMemories(ctx context.Context, sessionIDs []uuid.UUID) ([]models.SessionMemory, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, memory_id, recall_score, response, notes, reviewed_at
		 FROM session_memories WHERE session_id = ANY($1)`, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("list session memories: %w", err)
	}
	defer rows.Close()

	var sms []models.SessionMemory
	for rows.Next() {
		var sm models.SessionMemory
		if err := rows.Scan(&sm.ID, &sm.SessionID, &sm.MemoryID, &sm.RecallScore,
			&sm.Response, &sm.Notes, &sm.ReviewedAt); err != nil {
			return nil, fmt.Errorf("scan session memory: %w", err)
		}
		sms = append(sms, sm)
	}
	return sms, nil
}

// --- Patient transfers ---

const transferColumns = `id, patient_id, from_caregiver_id, to_caregiver_id, status, message, expires_at, responded_at, created_at`

func scanTransfer(row pgx.Row) (models.PatientTransfer, error) {
	var t models.PatientTransfer
	err := row.Scan(&t.ID, &t.PatientID, &t.FromCaregiverID, &t.ToCaregiverID,
		&t.Status, &t.Message, &t.ExpiresAt, &t.RespondedAt, &t.CreatedAt)
	return t, err
}

func (s *PostgresStore) CreateTransfer(ctx context.Context, t *models.PatientTransfer) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO patient_transfers (`+transferColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.PatientID, t.FromCaregiverID, t.ToCaregiverID,
		t.Status, t.Message, t.ExpiresAt, t.RespondedAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create transfer: %w", err)
	}
	return nil
}

func (s *PostgresStore) Transfer(ctx context.Context, id uuid.UUID) (*models.PatientTransfer, error) {
	t, err := scanTransfer(s.pool.QueryRow(ctx,
		`SELECT `+transferColumns+` FROM patient_transfers WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) PendingTransferForPatient(ctx context.Context, patientID uuid.UUID) (*models.PatientTransfer, error) {
	t, err := scanTransfer(s.pool.QueryRow(ctx,
		`SELECT `+transferColumns+` FROM patient_transfers
		 WHERE patient_id = $1 AND status = 'pending' LIMIT 1`, patientID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get pending transfer: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) TransfersByRecipient(ctx context.Context, caregiverID uuid.UUID) ([]models.PatientTransfer, error) {
	return s.queryTransfers(ctx,
		`SELECT `+transferColumns+` FROM patient_transfers
		 WHERE to_caregiver_id = $1 ORDER BY created_at DESC`, caregiverID)
}

func (s *PostgresStore) TransfersBySender(ctx context.Context, caregiverID uuid.UUID) ([]models.PatientTransfer, error) {
	return s.queryTransfers(ctx,
		`SELECT `+transferColumns+` FROM patient_transfers
		 WHERE from_caregiver_id = $1 ORDER BY created_at DESC`, caregiverID)
}

func (s *PostgresStore) queryTransfers(ctx context.Context, query string, args ...interface{}) ([]models.PatientTransfer, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []models.PatientTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, nil
}

func (s *PostgresStore) MarkTransferStatus(ctx context.Context, id uuid.UUID, status models.TransferStatus, respondedAt *time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE patient_transfers SET status = $1, responded_at = COALESCE($2, responded_at)
		 WHERE id = $3`, status, respondedAt, id)
	if err != nil {
		return fmt.Errorf("mark transfer %s: %w", status, err)
	}
	return nil
}

// AcceptTransfer reassigns patient ownership and marks the transfer
// accepted in one transaction. A reader never observes accepted status
// with the old owner still attached. Fails with ErrPatientUnavailable
// when the patient no longer belongs to the sender.
func (s *PostgresStore) AcceptTransfer(ctx context.Context, t *models.PatientTransfer, respondedAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin accept tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE patients SET caregiver_id = $1, updated_at = $2
		 WHERE id = $3 AND caregiver_id = $4`,
		t.ToCaregiverID, respondedAt, t.PatientID, t.FromCaregiverID)
	if err != nil {
		return fmt.Errorf("reassign patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return transfer.ErrPatientUnavailable
	}

	tag, err = tx.Exec(ctx,
		`UPDATE patient_transfers SET status = $1, responded_at = $2
		 WHERE id = $3 AND status = 'pending'`,
		models.TransferAccepted, respondedAt, t.ID)
	if err != nil {
		return fmt.Errorf("mark transfer accepted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return transfer.ErrAlreadyResponded
	}

	return tx.Commit(ctx)
}

// --- Recognition events ---

func (s *PostgresStore) CreateRecognitionEvent(ctx context.Context, ev *models.RecognitionEvent) error {
	ev.ID = uuid.New()
	ev.CreatedAt = time.Now()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO recognition_events (id, patient_id, matched, identity_id, name, confidence, error_kind, timestamp, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID, ev.PatientID, ev.Matched, ev.IdentityID, ev.Name, ev.Confidence,
		ev.ErrorKind, ev.Timestamp, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("create recognition event: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecognitionEvents(ctx context.Context, patientID uuid.UUID, limit int) ([]models.RecognitionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, patient_id, matched, identity_id, name, confidence, error_kind, timestamp, created_at
		 FROM recognition_events WHERE patient_id = $1 ORDER BY timestamp DESC LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recognition events: %w", err)
	}
	defer rows.Close()

	var events []models.RecognitionEvent
	for rows.Next() {
		var ev models.RecognitionEvent
		if err := rows.Scan(&ev.ID, &ev.PatientID, &ev.Matched, &ev.IdentityID, &ev.Name,
			&ev.Confidence, &ev.ErrorKind, &ev.Timestamp, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recognition event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}
