package session

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestManagerGenerations(t *testing.T) {
	m := NewManager()

	ctx, gen := m.Snapshot()
	if ctx.Valid() {
		t.Fatalf("fresh manager has a valid context")
	}

	m.Set(Context{PatientID: uuid.New(), PatientName: "Abdul Rahman", Token: "tok"})
	if m.Current(gen) {
		t.Errorf("old generation still current after Set")
	}

	ctx2, gen2 := m.Snapshot()
	if !ctx2.Valid() {
		t.Fatalf("context invalid after Set")
	}
	if !m.Current(gen2) {
		t.Errorf("fresh generation not current")
	}

	m.Clear()
	if m.Current(gen2) {
		t.Errorf("generation survives Clear")
	}
	ctx3, _ := m.Snapshot()
	if ctx3.Valid() {
		t.Errorf("context valid after Clear")
	}
}

func TestStateStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := OpenStateStore(path)
	if err != nil {
		t.Fatalf("open state store: %v", err)
	}
	defer store.Close()

	want := Context{
		PatientID:   uuid.New(),
		PatientName: "Abdul Rahman",
		Token:       "secret-token",
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != want {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
}

func TestStateStoreEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := OpenStateStore(path)
	if err != nil {
		t.Fatalf("open state store: %v", err)
	}
	defer store.Close()

	if _, err := store.Load(); !errors.Is(err, ErrNoSavedSession) {
		t.Errorf("Load on empty store err = %v, want ErrNoSavedSession", err)
	}
}

func TestStateStoreSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := OpenStateStore(path)
	if err != nil {
		t.Fatalf("open state store: %v", err)
	}
	defer store.Close()

	first := Context{PatientID: uuid.New(), PatientName: "First", Token: "t1"}
	second := Context{PatientID: uuid.New(), PatientName: "Second", Token: "t2"}

	if err := store.Save(first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != second {
		t.Errorf("Load = %+v, want latest %+v", got, second)
	}
}

func TestStateStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := OpenStateStore(path)
	if err != nil {
		t.Fatalf("open state store: %v", err)
	}
	defer store.Close()

	if err := store.Save(Context{PatientID: uuid.New(), PatientName: "A", Token: "t"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoSavedSession) {
		t.Errorf("Load after Clear err = %v, want ErrNoSavedSession", err)
	}
}
