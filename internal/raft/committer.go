package raft

// Committer owns the log view on top of the Storage collaborator: it adds
// the single-voting-change guard, commit-index advancement, and one-entry-
// at-a-time apply dispatch. Grounded on original_source/src/raft/Raft.cpp's
// _committer calls (entry_append, entry_pop_back, commit_till,
// entry_apply_one).
type Committer struct {
	storage                Storage
	commitIdx              Index
	lastAppliedIdx         Index
	votingChangeInProgress bool
}

// NewCommitter wraps storage, assuming an empty in-memory commit/apply
// cursor (both are volatile Raft state, never persisted).
func NewCommitter(storage Storage) *Committer {
	return &Committer{storage: storage}
}

// CurrentIdx is the index of the last entry in the log (0 if empty).
func (c *Committer) CurrentIdx() Index {
	return c.storage.CurrentIdx()
}

// LastLogTerm is the term of the last entry in the log, if any.
func (c *Committer) LastLogTerm() (TermId, bool) {
	return c.storage.LastLogTerm()
}

// GetAtIdx returns the entry at idx, if present.
func (c *Committer) GetAtIdx(idx Index) (Entry, bool) {
	if idx == 0 {
		return Entry{}, false
	}
	return c.storage.EntryAt(idx)
}

// GetFromIdx returns every entry from idx through the tail of the log.
func (c *Committer) GetFromIdx(idx Index) []Entry {
	if idx == 0 {
		idx = 1
	}
	return c.storage.EntriesFrom(idx)
}

// CommitIdx is the highest index known to be committed.
func (c *Committer) CommitIdx() Index {
	return c.commitIdx
}

// LastAppliedIdx is the highest index applied to the state machine so far.
func (c *Committer) LastAppliedIdx() Index {
	return c.lastAppliedIdx
}

// IsCommittedIdx reports whether idx is at or below the commit index.
func (c *Committer) IsCommittedIdx(idx Index) bool {
	return idx != 0 && idx <= c.commitIdx
}

// VotingChangeInProgress reports whether an uncommitted voting-change entry
// (AddNode/DemoteNode/RemoveNode) currently exists in the log (§4.5).
func (c *Committer) VotingChangeInProgress() bool {
	return c.votingChangeInProgress
}

// EntryAppend appends e to the log. When needVoteChecks is true and e is a
// voting-change entry, it is refused with ErrOneVotingChangeOnly if another
// voting change is already uncommitted (I4).
func (c *Committer) EntryAppend(e Entry, needVoteChecks bool) error {
	if needVoteChecks && e.IsVotingChange() && c.votingChangeInProgress {
		return ErrOneVotingChangeOnly
	}
	if err := c.storage.AppendEntry(e); err != nil {
		return ErrStorageFailure
	}
	if e.IsVotingChange() {
		c.votingChangeInProgress = true
	}
	return nil
}

// EntryPopBack removes the last entry from the log (only ever the
// uncommitted suffix, per I3) and refreshes the voting-change-in-progress
// flag to reflect what remains.
func (c *Committer) EntryPopBack() (Entry, bool) {
	e, ok := c.storage.PopEntry()
	if !ok {
		return Entry{}, false
	}
	c.refreshVotingChangeFlag()
	return e, true
}

func (c *Committer) refreshVotingChangeFlag() {
	c.votingChangeInProgress = false
	start := c.commitIdx + 1
	if start == 0 {
		start = 1
	}
	if start > c.CurrentIdx() {
		return
	}
	for _, e := range c.GetFromIdx(start) {
		if e.IsVotingChange() {
			c.votingChangeInProgress = true
			return
		}
	}
}

// CommitTill advances commitIdx to min(leaderCommit, CurrentIdx), never
// decreasing it, per the AppendEntries receiver rule (§4.3 step 9).
func (c *Committer) CommitTill(leaderCommit Index) {
	target := leaderCommit
	if cur := c.CurrentIdx(); target > cur {
		target = cur
	}
	c.SetCommitIdx(target)
}

// SetCommitIdx advances commitIdx to idx, a no-op if idx does not exceed the
// current commit index (P4, Commit Monotonicity).
func (c *Committer) SetCommitIdx(idx Index) {
	if idx > c.commitIdx {
		c.commitIdx = idx
		c.refreshVotingChangeFlag()
	}
}

// CommitAll marks the entire log committed, used by the single-voting-node
// fast path.
func (c *Committer) CommitAll() {
	c.SetCommitIdx(c.CurrentIdx())
}

// ApplyOne applies the next unapplied, committed entry to applier. It
// returns ErrNothingToApply if lastAppliedIdx has caught up to commitIdx.
// On an Apply failure, the failure is returned and lastAppliedIdx is not
// advanced (§4.6).
func (c *Committer) ApplyOne(applier Applier) (Entry, error) {
	if c.lastAppliedIdx >= c.commitIdx {
		return Entry{}, ErrNothingToApply
	}
	idx := c.lastAppliedIdx + 1
	e, ok := c.GetAtIdx(idx)
	if !ok {
		return Entry{}, ErrNothingToApply
	}
	if err := applier.Apply(e); err != nil {
		return Entry{}, ErrApplyFailure
	}
	c.lastAppliedIdx = idx
	return e, nil
}
