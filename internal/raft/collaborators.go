package raft

// Storage is the durable persistence provider for term/vote and the log.
// Implementations must make PersistTermVote atomic: it is always called
// before the corresponding term/vote change becomes observable to any other
// collaborator (§5, Persistence ordering). The in-process fake used by this
// package's tests lives in fakes_test.go; a file-backed implementation
// lives in internal/storage.
type Storage interface {
	Term() TermId
	Vote() (NodeId, bool)
	PersistTermVote(term TermId, votedFor NodeId, hasVote bool) error

	AppendEntry(e Entry) error
	PopEntry() (Entry, bool)
	EntryAt(idx Index) (Entry, bool)
	EntriesFrom(idx Index) []Entry
	CurrentIdx() Index
	LastLogTerm() (TermId, bool)
}

// Sender is the network transport that delivers outbound messages to peers.
// It is always invoked synchronously from within a Server call; if it is
// unavailable the Server instead marks a deferred-send flag (§5).
type Sender interface {
	RequestVote(to NodeId, req MsgVoteReq) error
	AppendEntries(to NodeId, req MsgAppendEntriesReq) error
}

// Applier advances the application state machine one committed entry at a
// time, and receives diagnostic log lines from the Server.
type Applier interface {
	Apply(e Entry) error
	Log(msg string)
}
