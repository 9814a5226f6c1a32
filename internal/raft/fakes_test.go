package raft

// memStorage is an in-memory Storage fake backing every test in this
// package. It is deliberately simple: a slice plus a term/vote pair, with no
// actual durability — the file-backed implementation lives in
// internal/storage and is exercised by its own tests.
type memStorage struct {
	term    TermId
	votedFor NodeId
	hasVote bool
	log     []Entry
}

func newMemStorage() *memStorage {
	return &memStorage{}
}

func (m *memStorage) Term() TermId { return m.term }

func (m *memStorage) Vote() (NodeId, bool) { return m.votedFor, m.hasVote }

func (m *memStorage) PersistTermVote(term TermId, votedFor NodeId, hasVote bool) error {
	m.term = term
	m.votedFor = votedFor
	m.hasVote = hasVote
	return nil
}

func (m *memStorage) AppendEntry(e Entry) error {
	m.log = append(m.log, e)
	return nil
}

func (m *memStorage) PopEntry() (Entry, bool) {
	if len(m.log) == 0 {
		return Entry{}, false
	}
	e := m.log[len(m.log)-1]
	m.log = m.log[:len(m.log)-1]
	return e, true
}

func (m *memStorage) EntryAt(idx Index) (Entry, bool) {
	if idx == 0 || int(idx) > len(m.log) {
		return Entry{}, false
	}
	return m.log[idx-1], true
}

func (m *memStorage) EntriesFrom(idx Index) []Entry {
	if idx == 0 {
		idx = 1
	}
	if int(idx) > len(m.log) {
		return nil
	}
	out := make([]Entry, len(m.log)-int(idx)+1)
	copy(out, m.log[idx-1:])
	return out
}

func (m *memStorage) CurrentIdx() Index { return Index(len(m.log)) }

func (m *memStorage) LastLogTerm() (TermId, bool) {
	if len(m.log) == 0 {
		return 0, false
	}
	return m.log[len(m.log)-1].Term, true
}

// memSender records every outbound message instead of delivering it
// anywhere, letting tests assert on what a Server attempted to send.
type memSender struct {
	voteReqs   []sentVoteReq
	appendReqs []sentAppendReq
	failAll    bool
}

type sentVoteReq struct {
	to  NodeId
	req MsgVoteReq
}

type sentAppendReq struct {
	to  NodeId
	req MsgAppendEntriesReq
}

func newMemSender() *memSender { return &memSender{} }

func (s *memSender) RequestVote(to NodeId, req MsgVoteReq) error {
	if s.failAll {
		return ErrNothingToSend
	}
	s.voteReqs = append(s.voteReqs, sentVoteReq{to, req})
	return nil
}

func (s *memSender) AppendEntries(to NodeId, req MsgAppendEntriesReq) error {
	if s.failAll {
		return ErrNothingToSend
	}
	s.appendReqs = append(s.appendReqs, sentAppendReq{to, req})
	return nil
}

func (s *memSender) last() (sentAppendReq, bool) {
	if len(s.appendReqs) == 0 {
		return sentAppendReq{}, false
	}
	return s.appendReqs[len(s.appendReqs)-1], true
}

// memApplier is an in-memory Applier fake: it records every applied entry in
// order and discards log lines.
type memApplier struct {
	applied []Entry
	failNext bool
}

func newMemApplier() *memApplier { return &memApplier{} }

func (a *memApplier) Apply(e Entry) error {
	if a.failNext {
		a.failNext = false
		return ErrApplyFailure
	}
	a.applied = append(a.applied, e)
	return nil
}

func (a *memApplier) Log(msg string) {}
