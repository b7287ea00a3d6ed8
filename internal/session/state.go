package session

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNoSavedSession means no patient context is cached locally; the
// caller must re-authenticate rather than proceed with a nil subject.
var ErrNoSavedSession = errors.New("no saved session")

const (
	keyPatientID   = "patient_id"
	keyPatientName = "patient_name"
	keyToken       = "token"
)

// StateStore persists the active-patient context across companion
// restarts in a local sqlite key-value table.
type StateStore struct {
	db *sql.DB
}

func OpenStateStore(path string) (*StateStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init state db: %w", err)
	}

	return &StateStore{db: db}, nil
}

func (s *StateStore) Close() error {
	return s.db.Close()
}

// Save caches the context for the next start.
func (s *StateStore) Save(ctx Context) error {
	pairs := map[string]string{
		keyPatientID:   ctx.PatientID.String(),
		keyPatientName: ctx.PatientName,
		keyToken:       ctx.Token,
	}
	for k, v := range pairs {
		_, err := s.db.Exec(
			`INSERT INTO kv (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v)
		if err != nil {
			return fmt.Errorf("save session state: %w", err)
		}
	}
	return nil
}

// Load rehydrates the cached context. Returns ErrNoSavedSession when
// nothing usable is stored.
func (s *StateStore) Load() (Context, error) {
	get := func(key string) (string, error) {
		var v string
		err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
		if err == sql.ErrNoRows {
			return "", nil
		}
		return v, err
	}

	idStr, err := get(keyPatientID)
	if err != nil {
		return Context{}, fmt.Errorf("load session state: %w", err)
	}
	if idStr == "" {
		return Context{}, ErrNoSavedSession
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return Context{}, ErrNoSavedSession
	}

	name, err := get(keyPatientName)
	if err != nil {
		return Context{}, fmt.Errorf("load session state: %w", err)
	}
	token, err := get(keyToken)
	if err != nil {
		return Context{}, fmt.Errorf("load session state: %w", err)
	}
	if token == "" {
		return Context{}, ErrNoSavedSession
	}

	return Context{PatientID: id, PatientName: name, Token: token}, nil
}

// Clear wipes the cached context (logout).
func (s *StateStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM kv`)
	if err != nil {
		return fmt.Errorf("clear session state: %w", err)
	}
	return nil
}
