package sentlog

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/foxzi/outreach/internal/storage"
)

func TestBoltStore(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "outreach.db")

	store, err := OpenBoltStore(dbPath)
	if err != nil {
		t.Fatalf("OpenBoltStore() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load() = %v, want empty", got)
	}

	if err := store.Persist(ctx, []string{"zed@x.com", "amy@x.com"}); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if err := store.Persist(ctx, []string{"zed@x.com", "amy@x.com", "bob@x.com", ""}); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopen and check order survives
	store, err = OpenBoltStore(dbPath)
	if err != nil {
		t.Fatalf("OpenBoltStore() error = %v", err)
	}
	defer store.Close()

	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"zed@x.com", "amy@x.com", "bob@x.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %v, want %v", got, want)
	}
}

func TestBoltStoreSharedDB(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "shared.db"))
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	defer db.Close()

	store, err := NewBoltStore(db)
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}

	if err := store.Persist(context.Background(), []string{"a@x.com"}); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	// Close must not close a DB the store does not own
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := store.Load(context.Background()); err != nil {
		t.Errorf("Load() after Close() on shared DB error = %v", err)
	}
	if store.DB() != db {
		t.Error("DB() returned a different handle")
	}
}
