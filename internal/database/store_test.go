package database

import (
	"testing"

	"github.com/quietpeer/raft/internal/raft"
)

func TestSetGetDelete(t *testing.T) {
	db := NewDatabase()
	if _, ok := db.Get("a"); ok {
		t.Fatal("expected empty database to have no key a")
	}
	db.Set("a", "1")
	v, ok := db.Get("a")
	if !ok || v != "1" {
		t.Fatalf("expected a=1, got %q ok=%v", v, ok)
	}
	db.Delete("a")
	if _, ok := db.Get("a"); ok {
		t.Fatal("expected a to be gone after delete")
	}
}

func TestSnapshotIsolatedFromLaterWrites(t *testing.T) {
	db := NewDatabase()
	db.Set("a", "1")
	snap := db.Snapshot()

	db.Set("a", "2")

	v, ok := snap.Get([]byte("a"))
	if !ok || v.(string) != "1" {
		t.Fatalf("expected snapshot to retain a=1, got %v ok=%v", v, ok)
	}
	v2, _ := db.Get("a")
	if v2 != "2" {
		t.Fatalf("expected live database to see a=2, got %v", v2)
	}
}

func TestApplySetCommand(t *testing.T) {
	db := NewDatabase()
	data, err := EncodeCommand(Command{Op: OpSet, Key: "k", Value: "v"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.Apply(raft.NewUserEntry(1, 1, data)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := db.Get("k")
	if !ok || v != "v" {
		t.Fatalf("expected k=v after apply, got %q ok=%v", v, ok)
	}
}

func TestApplyDeleteCommand(t *testing.T) {
	db := NewDatabase()
	db.Set("k", "v")
	data, _ := EncodeCommand(Command{Op: OpDelete, Key: "k"})
	if err := db.Apply(raft.NewUserEntry(1, 2, data)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := db.Get("k"); ok {
		t.Fatal("expected k removed after applying a delete command")
	}
}

func TestApplySkipsInternalEntries(t *testing.T) {
	db := NewDatabase()
	if err := db.Apply(raft.NewNoopEntry(1, 0)); err != nil {
		t.Fatalf("unexpected error applying an internal entry: %v", err)
	}
}
