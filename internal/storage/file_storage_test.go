package storage

import (
	"testing"

	"github.com/quietpeer/raft/internal/raft"
)

func TestNewFileStorageEmptyDir(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.Term() != 0 {
		t.Fatalf("expected term 0 on fresh storage, got %d", fs.Term())
	}
	if _, has := fs.Vote(); has {
		t.Fatal("expected no vote on fresh storage")
	}
	if fs.CurrentIdx() != 0 {
		t.Fatalf("expected empty log, got current idx %d", fs.CurrentIdx())
	}
}

func TestPersistTermVoteRoundTrips(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fs.PersistTermVote(7, 3, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reopened, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("unexpected error reopening: %v", err)
	}
	if reopened.Term() != 7 {
		t.Fatalf("expected term 7 after reopen, got %d", reopened.Term())
	}
	votedFor, hasVote := reopened.Vote()
	if !hasVote || votedFor != 3 {
		t.Fatalf("expected vote for node 3 after reopen, got %d/%v", votedFor, hasVote)
	}
}

func TestAppendEntryPersistsAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fs.AppendEntry(raft.NewUserEntry(1, 1, []byte("a"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fs.AppendEntry(raft.NewUserEntry(1, 2, []byte("b"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.CurrentIdx() != 2 {
		t.Fatalf("expected current idx 2, got %d", fs.CurrentIdx())
	}

	reopened, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("unexpected error reopening: %v", err)
	}
	if reopened.CurrentIdx() != 2 {
		t.Fatalf("expected current idx 2 after reopen, got %d", reopened.CurrentIdx())
	}
	e, ok := reopened.EntryAt(2)
	if !ok || e.Id != 2 {
		t.Fatalf("expected entry 2 to round-trip, got %+v ok=%v", e, ok)
	}
}

func TestPopEntryTruncatesAndPersists(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewFileStorage(dir)
	_ = fs.AppendEntry(raft.NewUserEntry(1, 1, nil))
	_ = fs.AppendEntry(raft.NewUserEntry(1, 2, nil))

	e, ok := fs.PopEntry()
	if !ok || e.Id != 2 {
		t.Fatalf("expected to pop entry id 2, got %+v ok=%v", e, ok)
	}
	if fs.CurrentIdx() != 1 {
		t.Fatalf("expected current idx 1 after pop, got %d", fs.CurrentIdx())
	}

	reopened, _ := NewFileStorage(dir)
	if reopened.CurrentIdx() != 1 {
		t.Fatalf("expected truncation to persist across reopen, got idx %d", reopened.CurrentIdx())
	}
}

func TestEntriesFromReturnsTail(t *testing.T) {
	fs, _ := NewFileStorage(t.TempDir())
	_ = fs.AppendEntry(raft.NewUserEntry(1, 1, nil))
	_ = fs.AppendEntry(raft.NewUserEntry(1, 2, nil))
	_ = fs.AppendEntry(raft.NewUserEntry(1, 3, nil))

	entries := fs.EntriesFrom(2)
	if len(entries) != 2 || entries[0].Id != 2 || entries[1].Id != 3 {
		t.Fatalf("expected entries [2,3], got %+v", entries)
	}
}
