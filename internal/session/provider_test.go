// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/crmchat/internal/storage"
)

const testKey = "crm_session_id"

// countingStore wraps a MemoryStore and counts calls.
type countingStore struct {
	*storage.MemoryStore
	gets, sets int
	getErr     error
	setErr     error
}

func (s *countingStore) Get(key string) (string, error) {
	s.gets++
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.MemoryStore.Get(key)
}

func (s *countingStore) Set(key, value string) error {
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	return s.MemoryStore.Set(key, value)
}

func newCounting() *countingStore {
	return &countingStore{MemoryStore: storage.NewMemoryStore()}
}

// =============================================================================
// OBTAIN OR CREATE
// =============================================================================

func TestObtainOrCreate_AbsentBeforeFirstUse(t *testing.T) {
	store := newCounting()
	p := NewProvider(store, testKey, zerolog.Nop())

	if _, err := store.MemoryStore.Get(testKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("store should be empty before first use, got %v", err)
	}

	id, err := p.ObtainOrCreate()
	if err != nil {
		t.Fatalf("ObtainOrCreate: %v", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("identifier is not a UUID: %q", id)
	}
	if parsed.Version() != 4 {
		t.Errorf("UUID version = %d, want 4", parsed.Version())
	}

	stored, err := store.MemoryStore.Get(testKey)
	if err != nil || stored != id {
		t.Errorf("stored = %q, %v; want %q", stored, err, id)
	}
}

func TestObtainOrCreate_StableAndCached(t *testing.T) {
	store := newCounting()
	p := NewProvider(store, testKey, zerolog.Nop())

	first, err := p.ObtainOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := p.ObtainOrCreate()
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("call %d returned %q, want %q", i, again, first)
		}
	}
	if store.sets != 1 {
		t.Errorf("store written %d times, want exactly 1", store.sets)
	}
	if store.gets != 1 {
		t.Errorf("store read %d times, want 1 (cached afterwards)", store.gets)
	}
}

func TestObtainOrCreate_ReusesStoredValue(t *testing.T) {
	store := newCounting()
	if err := store.MemoryStore.Set(testKey, "existing-id"); err != nil {
		t.Fatal(err)
	}
	p := NewProvider(store, testKey, zerolog.Nop())

	id, err := p.ObtainOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	if id != "existing-id" {
		t.Errorf("id = %q, want stored value", id)
	}
	if store.sets != 0 {
		t.Errorf("existing identifier should not be rewritten, sets = %d", store.sets)
	}
}

func TestObtainOrCreate_EmptyStoredValueIsReplaced(t *testing.T) {
	store := newCounting()
	if err := store.MemoryStore.Set(testKey, ""); err != nil {
		t.Fatal(err)
	}
	p := NewProvider(store, testKey, zerolog.Nop())

	id, err := p.ObtainOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty stored value should be treated as absent")
	}
}

func TestObtainOrCreate_Failures(t *testing.T) {
	t.Run("read error", func(t *testing.T) {
		store := newCounting()
		store.getErr = errors.New("disk on fire")
		p := NewProvider(store, testKey, zerolog.Nop())
		if _, err := p.ObtainOrCreate(); err == nil {
			t.Fatal("expected error")
		}
		if store.sets != 0 {
			t.Error("must not write after a failed read")
		}
	})

	t.Run("write error", func(t *testing.T) {
		store := newCounting()
		store.setErr = errors.New("read-only")
		p := NewProvider(store, testKey, zerolog.Nop())
		if _, err := p.ObtainOrCreate(); err == nil {
			t.Fatal("expected error")
		}
		if _, ok, _ := p.Peek(); ok {
			t.Error("failed write must not leave a cached identifier")
		}
	})

	t.Run("generator error", func(t *testing.T) {
		p := NewProvider(newCounting(), testKey, zerolog.Nop())
		p.newID = func() (string, error) { return "", errors.New("no entropy") }
		if _, err := p.ObtainOrCreate(); err == nil {
			t.Fatal("expected error")
		}
	})
}

// =============================================================================
// CLEAR / PEEK
// =============================================================================

func TestClear_NextCallYieldsNewIdentifier(t *testing.T) {
	store := storage.NewMemoryStore()
	p := NewProvider(store, testKey, zerolog.Nop())

	first, err := p.ObtainOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := store.Get(testKey); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Clear should remove the key, got %v", err)
	}

	second, err := p.ObtainOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Error("identifier after Clear must differ")
	}
	if store.Len() != 1 {
		t.Errorf("store holds %d keys, want at most one identifier", store.Len())
	}
}

func TestPeek(t *testing.T) {
	p := NewProvider(storage.NewMemoryStore(), testKey, zerolog.Nop())

	if _, ok, err := p.Peek(); err != nil || ok {
		t.Fatalf("Peek before use = ok:%v err:%v", ok, err)
	}
	id, err := p.ObtainOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	got, ok, err := p.Peek()
	if err != nil || !ok || got != id {
		t.Errorf("Peek = %q, %v, %v", got, ok, err)
	}
}

func TestProvider_SharedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	a, err := storage.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	b, err := storage.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	id, err := NewProvider(a, testKey, zerolog.Nop()).ObtainOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	again, err := NewProvider(b, testKey, zerolog.Nop()).ObtainOrCreate()
	if err != nil {
		t.Fatal(err)
	}
	if again != id {
		t.Errorf("second process saw %q, want %q", again, id)
	}
}

func TestLabel(t *testing.T) {
	got := Label("3f2a9c1e-7b4d-4e8f-9a0b-1c2d3e4f5a6b")
	if got != "Session: 3f2a9c1e…" {
		t.Errorf("Label = %q", got)
	}
}
