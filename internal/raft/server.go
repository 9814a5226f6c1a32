package raft

import (
	"fmt"
	"time"
)

// Role is the replica's current position in the Raft state machine.
type Role string

const (
	Follower     Role = "Follower"
	PreCandidate Role = "PreCandidate"
	Candidate    Role = "Candidate"
	Leader       Role = "Leader"
	Shutdown     Role = "Shutdown"
)

// Server is the replica state machine: role transitions, vote and
// append-entries handling, per-peer replication bookkeeping, and the
// election/heartbeat timer. Grounded line-for-line on
// original_source/src/raft/Raft.cpp's Server class.
//
// Every exported method runs to completion without suspending and mutates
// shared state without locking (§5) — concurrent callers must serialize
// their own calls into a Server.
type Server struct {
	me            NodeId
	role          Role
	currentTerm   TermId
	votedFor      NodeId
	hasVotedFor   bool
	currentLeader NodeId
	hasLeader     bool

	nodes     *Nodes
	committer *Committer
	timer     *Timer

	storage Storage
	sender  Sender
	applier Applier
}

func newServer(me NodeId, nodes *Nodes, storage Storage, sender Sender, applier Applier) *Server {
	s := &Server{
		me:        me,
		nodes:     nodes,
		storage:   storage,
		committer: NewCommitter(storage),
		timer:     NewTimer(DefaultElectionTimeout, DefaultHeartbeatInterval),
		sender:    sender,
		applier:   applier,
	}
	s.currentTerm = storage.Term()
	s.votedFor, s.hasVotedFor = storage.Vote()
	return s
}

// NewSingle boots a fresh single-node cluster: the replica self-elects and
// commits a bootstrap AddNode entry for itself.
func NewSingle(me NodeId, storage Storage, sender Sender, applier Applier) (*Server, error) {
	s := newServer(me, NewNodesSingle(me, true), storage, sender, applier)
	s.becomeFollower()
	if err := s.bootstrapSelf(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewWithMembers boots a replica as a member of a known initial membership
// list. If that list names only this replica, it self-elects exactly as
// NewSingle does.
func NewWithMembers(me NodeId, members []NodeId, storage Storage, sender Sender, applier Applier) (*Server, error) {
	nodes := NewNodesWithMembers(me, members)
	s := newServer(me, nodes, storage, sender, applier)
	s.becomeFollower()
	if nodes.Count() == 1 {
		if err := s.bootstrapSelf(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Server) bootstrapSelf() error {
	if err := s.becomeCandidate(); err != nil {
		return err
	}
	if err := s.Tick(0); err != nil {
		return err
	}
	debugAssert(s.isLeader(), "single-node bootstrap failed to self-elect")
	_, err := s.acceptEntry(NewAddNodeEntry(s.currentTerm, 0, s.me))
	return err
}

// Role returns the replica's current role.
func (s *Server) Role() Role { return s.role }

// CurrentTerm returns the replica's current term.
func (s *Server) CurrentTerm() TermId { return s.currentTerm }

// CurrentLeader returns the replica's view of the current leader, if any.
func (s *Server) CurrentLeader() (NodeId, bool) { return s.currentLeader, s.hasLeader }

// CommitIndex returns the highest index known to be committed.
func (s *Server) CommitIndex() Index { return s.committer.CommitIdx() }

// LastAppliedIndex returns the highest index applied to the state machine.
func (s *Server) LastAppliedIndex() Index { return s.committer.LastAppliedIdx() }

// LastLogIndex returns the index of the last entry in the log.
func (s *Server) LastLogIndex() Index { return s.committer.CurrentIdx() }

// NodeView is a read-only snapshot of one cluster member, safe for a host
// to hold onto after the call returns (unlike the live *Node records Nodes
// itself keeps, a NodeView never mutates underneath the caller).
type NodeView struct {
	Id       NodeId
	IsVoting bool
	IsMe     bool
	NextIdx  Index
	MatchIdx Index
}

// Nodes returns a read-only snapshot of every known cluster member (voting
// and non-voting), in the same deterministic, id-sorted order as Items.
func (s *Server) Nodes() []NodeView {
	items := s.nodes.Items()
	out := make([]NodeView, len(items))
	for i, n := range items {
		out[i] = NodeView{Id: n.Id, IsVoting: n.IsVoting, IsMe: n.IsMe, NextIdx: n.NextIdx, MatchIdx: n.MatchIdx}
	}
	return out
}

func (s *Server) isLeader() bool      { return s.role == Leader }
func (s *Server) isFollower() bool    { return s.role == Follower }
func (s *Server) isCandidate() bool   { return s.role == Candidate }
func (s *Server) isPrecandidate() bool { return s.role == PreCandidate }
func (s *Server) isShutdown() bool    { return s.role == Shutdown }

func (s *Server) logf(format string, args ...interface{}) {
	if s.applier == nil {
		return
	}
	prefix := fmt.Sprintf("id=%d term=%d role=%s: ", s.me, s.currentTerm, s.role)
	s.applier.Log(prefix + fmt.Sprintf(format, args...))
}

// becomeFollower transitions to Follower, per §4.1 "observe higher term" and
// the various step-down triggers.
func (s *Server) becomeFollower() {
	s.role = Follower
	s.timer.RandomizeElectionTimeout()
	s.timer.ResetElapsed()
	s.nodes.SetAllNeedVoteReq(false)
	s.nodes.SetAllNeedPings(false)
	s.logf("becoming follower")
}

// becomeCandidate increments the term, votes for self (persisted), and
// broadcasts RequestVote to every peer.
func (s *Server) becomeCandidate() error {
	if err := s.setCurrentTerm(s.currentTerm + 1); err != nil {
		return err
	}
	s.nodes.ResetAllVotes()
	if err := s.voteForNodeId(s.me); err != nil {
		return err
	}
	s.hasLeader = false
	s.role = Candidate
	s.timer.RandomizeElectionTimeout()
	s.timer.ResetElapsed()
	s.nodes.SetAllNeedPings(false)
	s.logf("becoming candidate")
	for _, n := range s.nodes.Items() {
		_ = s.sendReqVote(n)
	}
	return nil
}

// becomePrecandidate broadcasts a non-term-bumping PreVote round.
func (s *Server) becomePrecandidate() {
	s.nodes.ResetAllVotes()
	s.role = PreCandidate
	s.timer.RandomizeElectionTimeout()
	s.timer.ResetElapsed()
	s.nodes.SetAllNeedPings(false)
	s.logf("becoming precandidate")
	for _, n := range s.nodes.Items() {
		_ = s.sendReqVote(n)
	}
}

// becomeLeader transitions to Leader, appends the term-establishing Noop
// entry, and (re-)initializes per-peer replication state.
func (s *Server) becomeLeader() error {
	s.logf("becoming leader term:%d", s.currentTerm)
	s.role = Leader
	s.currentLeader = s.me
	s.hasLeader = true
	s.timer.ResetElapsed()

	if _, err := s.acceptEntry(NewNoopEntry(s.currentTerm, 0)); err != nil {
		return err
	}

	for _, n := range s.nodes.Items() {
		n.NextIdx = s.committer.CurrentIdx() + 1
		if n.IsMe {
			n.MatchIdx = s.committer.CurrentIdx()
		} else {
			n.MatchIdx = 0
		}
		n.NeedVoteReq = false
		_ = s.sendAppendEntries(n)
	}
	return nil
}

func (s *Server) voteForNodeId(id NodeId) error {
	if err := s.storage.PersistTermVote(s.currentTerm, id, true); err != nil {
		return ErrStorageFailure
	}
	s.votedFor = id
	s.hasVotedFor = true
	return nil
}

// setCurrentTerm adopts a new, strictly greater term, persisting it (with
// the vote cleared) before it becomes observable (§5, Persistence ordering;
// S1, Term Monotonicity).
func (s *Server) setCurrentTerm(term TermId) error {
	debugAssert(term > s.currentTerm, "setCurrentTerm called with a non-increasing term")
	if s.currentTerm >= term {
		return nil
	}
	if err := s.storage.PersistTermVote(term, NoNode, false); err != nil {
		return ErrStorageFailure
	}
	s.currentTerm = term
	s.hasVotedFor = false
	return nil
}

// Tick advances the election/heartbeat timer by elapsed and drives the
// single-node fast path, heartbeat broadcast, election trigger, and lazy
// apply dispatch described in §4.8.
func (s *Server) Tick(elapsed time.Duration) error {
	if s.isShutdown() {
		return ErrShutdown
	}

	s.timer.AddElapsed(elapsed)

	if s.nodes.IsMeTheOnlyVoting() && !s.isLeader() {
		if err := s.voteForNodeId(s.me); err != nil {
			return err
		}
		if err := s.becomeLeader(); err != nil {
			return err
		}
		if s.nodes.Count() == 1 {
			s.committer.CommitAll()
		}
	}

	if s.isLeader() {
		if s.timer.IsTimeToPing() {
			for _, n := range s.nodes.Items() {
				_ = s.sendAppendEntries(n)
			}
			s.timer.ResetElapsed()
		}
	} else if s.timer.IsTimeToElect() {
		if s.nodes.IsMeCandidateReady() {
			s.becomePrecandidate()
		}
	}

	ety, err := s.committer.ApplyOne(s.applier)
	if err != nil {
		if err == ErrNothingToApply {
			return nil
		}
		return err
	}

	if ety.IsInternal {
		switch ety.Internal.Kind {
		case AddNode:
			if node, ok := s.nodes.GetNode(ety.Internal.Node); ok {
				node.HasSufficientLogs = true
			}
		case DemoteNode:
			if node, ok := s.nodes.GetNode(ety.Internal.Node); ok {
				node.IsVoting = false
			}
		case AddNonVotingNode:
			s.nodes.AddNode(ety.Internal.Node, false)
		case RemoveNode:
			removed := ety.Internal.Node
			s.nodes.RemoveNode(removed)
			if s.nodes.IsMe(removed) {
				s.role = Shutdown
			}
		case Noop:
		}
	}

	s.logf("applied log: %d, id: %d", s.committer.LastAppliedIdx(), ety.Id)
	return nil
}

// AcceptVoteRequest handles an incoming RequestVote (or PreVote) RPC (§4.2).
func (s *Server) AcceptVoteRequest(from NodeId, r MsgVoteReq) (MsgVoteRep, error) {
	if s.isShutdown() {
		return MsgVoteRep{}, ErrShutdown
	}

	if !r.IsPre && s.currentTerm < r.Term {
		if err := s.setCurrentTerm(r.Term); err != nil {
			return s.prepareVoteResponse(NotGranted), nil
		}
		s.becomeFollower()
		s.hasLeader = false
	}

	if !s.shouldGrantVote(from, r) {
		if _, ok := s.nodes.GetNode(from); !ok {
			return s.prepareVoteResponse(UnknownNode), nil
		}
		return s.prepareVoteResponse(NotGranted), nil
	}

	if r.IsPre {
		return s.prepareVoteResponse(Granted), nil
	}

	debugAssert(s.isFollower() || s.isPrecandidate(), "granted a real vote while not follower/precandidate")

	s.hasLeader = false
	s.timer.ResetElapsed()

	if err := s.voteForNodeId(from); err != nil {
		return s.prepareVoteResponse(NotGranted), nil
	}
	return s.prepareVoteResponse(Granted), nil
}

func (s *Server) prepareVoteResponse(state VoteState) MsgVoteRep {
	s.logf("requested vote, replying: %s", state)
	return MsgVoteRep{Term: s.currentTerm, VoteGranted: state}
}

// shouldGrantVote implements the Raft §5.4 up-to-date comparison, plus the
// voting-member and already-voted gates (§4.2 step 3).
func (s *Server) shouldGrantVote(from NodeId, r MsgVoteReq) bool {
	if _, ok := s.nodes.GetNode(from); !ok {
		return false
	}
	me := s.nodes.GetMyNode()
	if !me.IsVoting {
		return false
	}
	if r.Term < s.currentTerm {
		return false
	}
	if !r.IsPre && s.hasVotedFor {
		return false
	}

	currentIdx := s.committer.CurrentIdx()
	if currentIdx == 0 {
		return true
	}
	e, ok := s.committer.GetAtIdx(currentIdx)
	if !ok {
		return true
	}
	if e.Term < r.LastLogTerm {
		return true
	}
	if r.LastLogTerm == e.Term && currentIdx <= r.LastLogIdx {
		return true
	}
	return false
}

// AcceptVoteResponse handles a peer's response to our RequestVote/PreVote
// (§4.2).
func (s *Server) AcceptVoteResponse(from NodeId, r MsgVoteRep) error {
	if s.isShutdown() {
		return ErrShutdown
	}
	if !s.isCandidate() && !s.isPrecandidate() {
		return nil
	}

	if s.currentTerm < r.Term {
		if err := s.setCurrentTerm(r.Term); err != nil {
			return err
		}
		s.becomeFollower()
		s.hasLeader = false
		return nil
	}
	if s.currentTerm > r.Term {
		return nil
	}

	switch r.VoteGranted {
	case Granted:
		if node, ok := s.nodes.GetNode(from); ok {
			node.HasVoteForMe = true
		}
		if s.isCandidate() && s.nodes.VotesHasMajority(s.votedFor, s.hasVotedFor, s.nodes.Reference()) {
			return s.becomeLeader()
		} else if s.isPrecandidate() && s.nodes.VotesHasMajority(s.me, true, s.nodes.Reference()) {
			return s.becomeCandidate()
		}
	case NotGranted:
		// nothing to do
	case UnknownNode:
		s.role = Shutdown
	}
	return nil
}

// AcceptAppendEntriesRequest handles an incoming AppendEntries RPC (§4.3).
func (s *Server) AcceptAppendEntriesRequest(from NodeId, ae MsgAppendEntriesReq) (MsgAppendEntriesRep, error) {
	if s.isShutdown() {
		return MsgAppendEntriesRep{}, ErrShutdown
	}

	switch {
	case ae.Term == s.currentTerm:
		if s.isCandidate() || s.isPrecandidate() {
			s.becomeFollower()
		}
	case ae.Term > s.currentTerm:
		if err := s.setCurrentTerm(ae.Term); err != nil {
			return MsgAppendEntriesRep{}, err
		}
		s.becomeFollower()
	default:
		return MsgAppendEntriesRep{Term: s.currentTerm, Success: false, CurrentIdx: s.committer.CurrentIdx()}, nil
	}

	s.currentLeader = from
	s.hasLeader = true
	s.timer.ResetElapsed()

	if ae.PrevLogIdx > 0 {
		if _, ok := s.committer.GetAtIdx(ae.PrevLogIdx); !ok {
			return MsgAppendEntriesRep{Term: s.currentTerm, Success: false, CurrentIdx: s.committer.CurrentIdx()}, nil
		}
	}

	nodeCurrentIdx := ae.PrevLogIdx
	var i int
	for ; i < len(ae.Entries); i++ {
		ety := ae.Entries[i]
		etyIdx := ae.PrevLogIdx + 1 + Index(i)

		existing, ok := s.committer.GetAtIdx(etyIdx)
		if !ok {
			break
		}
		if existing.Term != ety.Term {
			debugAssert(!s.committer.IsCommittedIdx(etyIdx), "leader attempted to overwrite a committed entry")
			for s.committer.CurrentIdx() >= etyIdx {
				popped, ok := s.committer.EntryPopBack()
				if !ok {
					break
				}
				s.popLog(popped)
			}
			break
		}
		nodeCurrentIdx = etyIdx
	}

	// Unified behavior (§9 Design Note): continue appending the remaining
	// incoming entries starting at the index the scan above stopped at,
	// whether that stop was "ran off the end of our log" or "truncated a
	// conflicting suffix".
	for ; i < len(ae.Entries); i++ {
		if err := s.pushLog(ae.Entries[i], true); err != nil {
			if err == ErrShutdown {
				s.role = Shutdown
				return MsgAppendEntriesRep{}, ErrShutdown
			}
			s.logf("append of entry %d aborted: %s", i, err)
			break
		}
		nodeCurrentIdx = ae.PrevLogIdx + 1 + Index(i)
	}

	s.committer.CommitTill(ae.LeaderCommit)

	return MsgAppendEntriesRep{Term: s.currentTerm, Success: true, CurrentIdx: nodeCurrentIdx}, nil
}

// AcceptAppendEntriesResponse handles a peer's response to our
// AppendEntries (§4.3, leader handling).
func (s *Server) AcceptAppendEntriesResponse(from NodeId, r MsgAppendEntriesRep) error {
	if s.isShutdown() {
		return ErrShutdown
	}
	node, ok := s.nodes.GetNode(from)
	if !ok {
		return ErrNodeUnknown
	}
	if !s.isLeader() {
		return ErrNotLeader
	}

	if s.currentTerm < r.Term {
		if err := s.setCurrentTerm(r.Term); err != nil {
			return err
		}
		s.becomeFollower()
		s.hasLeader = false
		return nil
	}
	if s.currentTerm > r.Term {
		return nil
	}

	if !r.Success {
		nextIdx := node.NextIdx
		debugAssert(nextIdx > 0, "next_idx underflowed to zero")
		debugAssert(node.MatchIdx <= nextIdx-1, "match_idx outran next_idx")
		if node.MatchIdx == nextIdx-1 {
			return nil // stale response, no backoff
		}

		if r.CurrentIdx < nextIdx-1 {
			newNext := r.CurrentIdx + 1
			if cur := s.committer.CurrentIdx(); newNext > cur {
				newNext = cur
			}
			node.NextIdx = newNext
		} else {
			node.NextIdx = nextIdx - 1
		}
		return s.sendAppendEntries(node)
	}

	if r.CurrentIdx <= node.MatchIdx {
		return nil // stale response
	}
	debugAssert(r.CurrentIdx <= s.committer.CurrentIdx(), "follower reported an index we never sent")

	node.NextIdx = r.CurrentIdx + 1
	node.MatchIdx = r.CurrentIdx

	if !node.IsVoting && !s.committer.VotingChangeInProgress() &&
		s.committer.CurrentIdx() <= r.CurrentIdx+1 && !node.HasSufficientLogs {
		if _, err := s.acceptEntry(NewAddNodeEntry(s.currentTerm, 0, node.Id)); err != nil {
			return err
		}
		node.HasSufficientLogs = true
	}

	if point := r.CurrentIdx; point > 0 && !s.committer.IsCommittedIdx(point) {
		if ety, ok := s.committer.GetAtIdx(point); ok && ety.Term == s.currentTerm && s.nodes.IsCommitted(point, s.nodes.Reference()) {
			s.committer.SetCommitIdx(point)
		}
	}

	if _, ok := s.committer.GetAtIdx(node.NextIdx); ok {
		return s.sendAppendEntries(node)
	}
	return nil
}

// AddEntry submits a user entry to the leader (§4.4).
func (s *Server) AddEntry(id EntryId, data []byte) (AddEntryResult, error) {
	return s.acceptEntry(NewUserEntry(s.currentTerm, id, data))
}

// AddNode submits a membership entry adding node as a non-voting member. It
// is promoted to voting automatically once it catches up (§4.3, Promotion).
func (s *Server) AddNode(id EntryId, node NodeId) (AddEntryResult, error) {
	return s.acceptEntry(NewAddNonVotingNodeEntry(s.currentTerm, id, node))
}

// RemoveNode submits a membership entry removing node from the cluster.
func (s *Server) RemoveNode(id EntryId, node NodeId) (AddEntryResult, error) {
	if _, ok := s.nodes.GetNode(node); !ok {
		return AddEntryResult{}, ErrNodeUnknown
	}
	return s.acceptEntry(NewRemoveNodeEntry(s.currentTerm, id, node))
}

func (s *Server) acceptEntry(e Entry) (AddEntryResult, error) {
	if s.isShutdown() {
		return AddEntryResult{}, ErrShutdown
	}
	if !s.isLeader() {
		return AddEntryResult{}, ErrNotLeader
	}

	debugAssert(e.Term == s.currentTerm, "entry submitted with a term other than the leader's current term")
	s.logf("received entry id:%d idx:%d", e.Id, s.committer.CurrentIdx()+1)

	if err := s.pushLog(e, true); err != nil {
		return AddEntryResult{}, err
	}

	if s.nodes.IsMeTheOnlyVoting() {
		s.committer.CommitAll()
	}

	for _, n := range s.nodes.Items() {
		if n.IsMe {
			continue
		}
		// Only send new entries to peers who were already caught up, so we
		// don't pile additional work onto a peer that is still behind.
		if n.NextIdx == s.committer.CurrentIdx() {
			_ = s.sendAppendEntries(n)
		}
	}

	return AddEntryResult{Term: s.currentTerm, Id: e.Id, Idx: s.committer.CurrentIdx()}, nil
}

// pushLog appends e to the committer and applies its append-time membership
// effect, if any (§4.5).
func (s *Server) pushLog(e Entry, needVoteChecks bool) error {
	if err := s.committer.EntryAppend(e, needVoteChecks); err != nil {
		return err
	}
	s.syncLogAndNodes()

	if !e.IsInternal {
		return nil
	}

	switch e.Internal.Kind {
	case AddNonVotingNode:
		if !s.nodes.IsMe(e.Internal.Node) {
			if _, ok := s.nodes.GetNode(e.Internal.Node); !ok {
				s.nodes.AddNode(e.Internal.Node, false)
			}
		}
	case AddNode:
		s.nodes.AddNode(e.Internal.Node, true)
	case DemoteNode:
		if node, ok := s.nodes.GetNode(e.Internal.Node); ok {
			node.IsVoting = false
		}
	case RemoveNode:
		if _, ok := s.nodes.GetNode(e.Internal.Node); ok {
			s.nodes.RemoveNode(e.Internal.Node)
		}
	case Noop:
	}
	return nil
}

// popLog reverses e's append-time membership effect, when e is truncated
// off the uncommitted tail (§4.5, "On truncation (pop)").
func (s *Server) popLog(e Entry) {
	if !e.IsInternal {
		return
	}
	switch e.Internal.Kind {
	case DemoteNode:
		if node, ok := s.nodes.GetNode(e.Internal.Node); ok {
			node.IsVoting = true
		}
	case RemoveNode:
		// Conservative choice (§9 open question, resolved): restore as
		// non-voting. Whether to restore the node's prior voting status
		// instead is left for host-level attention — the log entry alone
		// does not retain that information.
		s.nodes.AddNode(e.Internal.Node, false)
	case AddNonVotingNode:
		s.nodes.RemoveNode(e.Internal.Node)
	case AddNode:
		if node, ok := s.nodes.GetNode(e.Internal.Node); ok {
			node.IsVoting = false
		}
	case Noop:
	}
}

// syncLogAndNodes keeps the leader's own next/match index in lockstep with
// its log immediately after a local append.
func (s *Server) syncLogAndNodes() {
	if !s.isLeader() {
		return
	}
	me, ok := s.nodes.GetNode(s.me)
	if !ok {
		return
	}
	me.MatchIdx = s.committer.CurrentIdx()
	me.NextIdx = s.committer.CurrentIdx() + 1
}

func (s *Server) sendReqVote(node *Node) error {
	if node.IsMe {
		return ErrCantSendToMyself
	}
	if !s.isCandidate() && !s.isPrecandidate() {
		return ErrNotCandidate
	}

	if s.sender == nil {
		node.NeedVoteReq = true
		return nil
	}

	lastLogTerm, _ := s.committer.LastLogTerm()
	term := s.currentTerm
	isPre := s.isPrecandidate()
	if isPre {
		// PreVote probes with term+1 without persisting a term bump,
		// preventing disruptive term inflation by partitioned nodes.
		term = s.currentTerm + 1
	}
	req := MsgVoteReq{Term: term, LastLogIdx: s.committer.CurrentIdx(), LastLogTerm: lastLogTerm, IsPre: isPre}
	if err := s.sender.RequestVote(node.Id, req); err != nil {
		node.NeedVoteReq = true
		return err
	}
	return nil
}

func (s *Server) sendAppendEntries(node *Node) error {
	if node.IsMe {
		return ErrCantSendToMyself
	}
	if !s.isLeader() {
		return ErrNotLeader
	}

	if s.sender == nil {
		node.NeedAppendReq = true
		return nil
	}

	nextIdx := node.NextIdx
	req := MsgAppendEntriesReq{
		Term:         s.currentTerm,
		LeaderCommit: s.committer.CommitIdx(),
		Entries:      s.committer.GetFromIdx(nextIdx),
	}
	if nextIdx > 1 {
		req.PrevLogIdx = nextIdx - 1
		if prev, ok := s.committer.GetAtIdx(nextIdx - 1); ok {
			req.PrevLogTerm = prev.Term
		}
	}
	s.logf("sending appendentries to node %d: ci:%d comi:%d t:%d lc:%d pli:%d plt:%d",
		node.Id, s.committer.CurrentIdx(), s.committer.CommitIdx(), req.Term, req.LeaderCommit, req.PrevLogIdx, req.PrevLogTerm)
	if err := s.sender.AppendEntries(node.Id, req); err != nil {
		node.NeedAppendReq = true
		return err
	}
	return nil
}

// SendAppendEntries sends (or marks deferred) an AppendEntries to nodeId.
func (s *Server) SendAppendEntries(nodeId NodeId) error {
	node, ok := s.nodes.GetNode(nodeId)
	if !ok {
		return ErrNodeUnknown
	}
	return s.sendAppendEntries(node)
}

// StartElection forces an immediate transition from Follower to Candidate,
// bypassing the PreVote round. Intended for host-level use (e.g. tests, or
// an operator-triggered leadership bid), not for the regular timer path.
func (s *Server) StartElection() error {
	if !s.isFollower() {
		return ErrNotFollower
	}
	return s.becomeCandidate()
}

// Drain emits the single deferred message (vote request or append entries)
// pending for nodeId, set earlier when the Sender was unavailable (§5).
func (s *Server) Drain(nodeId NodeId) error {
	node, ok := s.nodes.GetNode(nodeId)
	if !ok {
		return ErrNodeUnknown
	}
	if node.NeedVoteReq {
		node.NeedVoteReq = false
		return s.sendReqVote(node)
	}
	if node.NeedAppendReq {
		node.NeedAppendReq = false
		return s.sendAppendEntries(node)
	}
	return ErrNothingToSend
}
