package raft

import "testing"

func TestCommitterEntryAppendAndCurrentIdx(t *testing.T) {
	c := NewCommitter(newMemStorage())
	if c.CurrentIdx() != 0 {
		t.Fatalf("expected empty log, got current idx %d", c.CurrentIdx())
	}
	if err := c.EntryAppend(NewUserEntry(1, 1, []byte("a")), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.CurrentIdx() != 1 {
		t.Fatalf("expected current idx 1, got %d", c.CurrentIdx())
	}
}

func TestCommitterOneVotingChangeOnly(t *testing.T) {
	c := NewCommitter(newMemStorage())
	if err := c.EntryAppend(NewAddNodeEntry(1, 1, 2), true); err != nil {
		t.Fatalf("unexpected error on first voting change: %v", err)
	}
	if err := c.EntryAppend(NewAddNodeEntry(1, 2, 3), true); err != ErrOneVotingChangeOnly {
		t.Fatalf("expected ErrOneVotingChangeOnly, got %v", err)
	}
	// With needVoteChecks false, a second concurrent voting change is
	// allowed.
	if err := c.EntryAppend(NewAddNodeEntry(1, 2, 3), false); err != nil {
		t.Fatalf("unexpected error bypassing the check: %v", err)
	}
}

func TestCommitterEntryPopBackClearsVotingChangeFlag(t *testing.T) {
	c := NewCommitter(newMemStorage())
	_ = c.EntryAppend(NewAddNodeEntry(1, 1, 2), true)
	if !c.VotingChangeInProgress() {
		t.Fatal("expected voting change in progress after append")
	}
	if _, ok := c.EntryPopBack(); !ok {
		t.Fatal("expected a pop to succeed")
	}
	if c.VotingChangeInProgress() {
		t.Fatal("expected voting change flag cleared after popping the only voting entry")
	}
}

func TestCommitterSetCommitIdxMonotonic(t *testing.T) {
	c := NewCommitter(newMemStorage())
	_ = c.EntryAppend(NewUserEntry(1, 1, nil), true)
	_ = c.EntryAppend(NewUserEntry(1, 2, nil), true)
	c.SetCommitIdx(2)
	c.SetCommitIdx(1)
	if c.CommitIdx() != 2 {
		t.Fatalf("commit index should never go backwards, got %d", c.CommitIdx())
	}
}

func TestCommitterCommitTillClampsToCurrentIdx(t *testing.T) {
	c := NewCommitter(newMemStorage())
	_ = c.EntryAppend(NewUserEntry(1, 1, nil), true)
	c.CommitTill(100)
	if c.CommitIdx() != 1 {
		t.Fatalf("expected commit idx clamped to 1, got %d", c.CommitIdx())
	}
}

func TestCommitterApplyOneInOrder(t *testing.T) {
	c := NewCommitter(newMemStorage())
	_ = c.EntryAppend(NewUserEntry(1, 1, []byte("a")), true)
	_ = c.EntryAppend(NewUserEntry(1, 2, []byte("b")), true)
	c.SetCommitIdx(2)

	app := newMemApplier()
	e, err := c.ApplyOne(app)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Id != 1 {
		t.Fatalf("expected first entry applied first, got id %d", e.Id)
	}

	e, err = c.ApplyOne(app)
	if err != nil || e.Id != 2 {
		t.Fatalf("expected second entry applied second, got %v err %v", e, err)
	}

	if _, err := c.ApplyOne(app); err != ErrNothingToApply {
		t.Fatalf("expected ErrNothingToApply once caught up, got %v", err)
	}
}

func TestCommitterApplyOneFailureDoesNotAdvance(t *testing.T) {
	c := NewCommitter(newMemStorage())
	_ = c.EntryAppend(NewUserEntry(1, 1, []byte("a")), true)
	c.SetCommitIdx(1)

	app := newMemApplier()
	app.failNext = true
	if _, err := c.ApplyOne(app); err != ErrApplyFailure {
		t.Fatalf("expected ErrApplyFailure, got %v", err)
	}
	if c.LastAppliedIdx() != 0 {
		t.Fatalf("lastAppliedIdx should not advance on apply failure, got %d", c.LastAppliedIdx())
	}
}
