package raft

import "sort"

// Node is this replica's view of one cluster member (possibly itself):
// membership status plus, when we are leader, replication bookkeeping for
// that peer.
//
// Invariants (see spec.md §3): MatchIdx <= NextIdx; NextIdx >= 1 once a
// leader has initialized it; MatchIdx never decreases once set by a leader.
type Node struct {
	Id       NodeId
	IsVoting bool
	IsMe     bool

	// HasVoteForMe is this round's tally bit, reset at the start of every
	// election round.
	HasVoteForMe bool

	// HasSufficientLogs marks a promoted-from-learner node so it is not
	// re-promoted every time it catches up.
	HasSufficientLogs bool

	// NeedVoteReq / NeedAppendReq are the deferred-send flags set when the
	// Sender collaborator was unavailable at send time (§5).
	NeedVoteReq   bool
	NeedAppendReq bool

	NextIdx  Index
	MatchIdx Index
}

func newNode(id NodeId, isMe bool) *Node {
	return &Node{Id: id, IsMe: isMe, NextIdx: 1}
}

// Nodes is the membership registry: every known peer (voting or not) plus
// this replica's own id. Grounded on original_source/src/raft/Node.cpp's
// Nodes class.
type Nodes struct {
	me    NodeId
	nodes map[NodeId]*Node
}

// NewNodesSingle builds a registry with only the local node as a member,
// used when booting a brand-new single-node cluster.
func NewNodesSingle(me NodeId, isVoting bool) *Nodes {
	n := &Nodes{me: me, nodes: make(map[NodeId]*Node)}
	self := newNode(me, true)
	self.IsVoting = isVoting
	n.nodes[me] = self
	return n
}

// NewNodesWithMembers builds a registry seeded with a known initial
// membership list (self plus peers), all voting.
func NewNodesWithMembers(me NodeId, members []NodeId) *Nodes {
	n := &Nodes{me: me, nodes: make(map[NodeId]*Node)}
	self := newNode(me, true)
	self.IsVoting = true
	n.nodes[me] = self
	for _, id := range members {
		if id == me {
			continue
		}
		peer := newNode(id, false)
		peer.IsVoting = true
		n.nodes[id] = peer
	}
	return n
}

// GetNode returns the peer record for id, if known. Never store the
// returned pointer across a call that may mutate membership (AddNode,
// RemoveNode) — re-fetch instead.
func (n *Nodes) GetNode(id NodeId) (*Node, bool) {
	node, ok := n.nodes[id]
	return node, ok
}

// GetMyNode returns this replica's own peer record.
func (n *Nodes) GetMyNode() *Node {
	node, ok := n.nodes[n.me]
	if !ok {
		panic("raft: local node missing from its own registry")
	}
	return node
}

// MyId returns this replica's own node id.
func (n *Nodes) MyId() NodeId {
	return n.me
}

// IsMe reports whether id is this replica's own id.
func (n *Nodes) IsMe(id NodeId) bool {
	return id == n.me
}

// AddNode inserts node id if absent (created non-voting) and, when
// isVoting is true, marks it (or an existing node) voting. Mirrors
// Node.cpp's add_node: "set to voting if node already exists".
func (n *Nodes) AddNode(id NodeId, isVoting bool) *Node {
	if node, ok := n.nodes[id]; ok {
		if isVoting {
			node.IsVoting = true
		}
		return node
	}
	node := newNode(id, id == n.me)
	node.IsVoting = isVoting
	n.nodes[id] = node
	return node
}

// RemoveNode deletes id from the registry.
func (n *Nodes) RemoveNode(id NodeId) {
	delete(n.nodes, id)
}

// Count returns the number of known members (voting and non-voting).
func (n *Nodes) Count() int {
	return len(n.nodes)
}

// Items returns all known members in a deterministic order (sorted by id),
// mirroring Node.cpp's maintained sorted vector.
func (n *Nodes) Items() []*Node {
	out := make([]*Node, 0, len(n.nodes))
	for _, node := range n.nodes {
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

// ResetAllVotes clears HasVoteForMe on every node, at the start of an
// election round.
func (n *Nodes) ResetAllVotes() {
	for _, node := range n.nodes {
		node.HasVoteForMe = false
	}
}

// SetAllNeedVoteReq sets NeedVoteReq on every node.
func (n *Nodes) SetAllNeedVoteReq(need bool) {
	for _, node := range n.nodes {
		node.NeedVoteReq = need
	}
}

// SetAllNeedPings sets NeedAppendReq on every node.
func (n *Nodes) SetAllNeedPings(need bool) {
	for _, node := range n.nodes {
		node.NeedAppendReq = need
	}
}

// IsMeTheOnlyVoting reports whether this replica is the sole voting member
// of the cluster, the condition for the single-node fast path to Leader.
func (n *Nodes) IsMeTheOnlyVoting() bool {
	me := n.GetMyNode()
	if !me.IsVoting {
		return false
	}
	for _, node := range n.nodes {
		if node.IsMe {
			continue
		}
		if node.IsVoting {
			return false
		}
	}
	return true
}

// IsMeCandidateReady reports whether this replica is a viable candidate: a
// voting member of the current configuration. The source additionally
// gates this on peers being reachable; this replica's Sender collaborator
// exposes no liveness signal, so readiness here is purely a membership
// question — a non-voting node, or one removed from the configuration,
// never starts an election.
func (n *Nodes) IsMeCandidateReady() bool {
	me, ok := n.GetNode(n.me)
	return ok && me.IsVoting
}

// Reference returns the "reference configuration" used by the joint-voting
// predicates (VotesHasMajority, IsCommitted). In the single-configuration
// case mandated by this spec, the reference is always the current
// configuration itself; the parameter exists so a future joint-consensus
// extension can pass a second, outgoing configuration without restructuring
// these predicates (§9, Joint-configuration hook).
func (n *Nodes) Reference() *Nodes {
	return n
}

func (n *Nodes) numVotingNodes(ref *Nodes) int {
	count := 0
	for _, node := range n.nodes {
		if !node.IsVoting {
			continue
		}
		if other, ok := ref.nodes[node.Id]; ok && other.IsVoting {
			count++
		}
	}
	return count
}

func (n *Nodes) numVotesForMe(votedFor NodeId, hasVote bool, ref *Nodes) int {
	votes := 0
	for _, node := range n.nodes {
		if node.IsMe || !node.IsVoting || !node.HasVoteForMe {
			continue
		}
		if other, ok := ref.nodes[node.Id]; !ok || !other.IsVoting {
			continue
		}
		votes++
	}
	if hasVote && votedFor == n.me {
		votes++
	}
	return votes
}

func hasMajority(numNodes, numVotes int) bool {
	if numNodes < numVotes {
		return false
	}
	return numNodes/2+1 <= numVotes
}

// VotesHasMajority reports whether the votes tallied for this replica (plus
// its own self-vote, when votedFor/hasVote says it voted for itself) form a
// majority of ref's voting members.
func (n *Nodes) VotesHasMajority(votedFor NodeId, hasVote bool, ref *Nodes) bool {
	return hasMajority(n.numVotingNodes(ref), n.numVotesForMe(votedFor, hasVote, ref))
}

// IsCommitted reports whether a majority of ref's voting members (plus this
// replica itself, implicitly caught up as leader) have replicated at least
// through idx.
func (n *Nodes) IsCommitted(idx Index, ref *Nodes) bool {
	votes := 1 // the leader itself
	for _, node := range n.nodes {
		if node.IsMe || !node.IsVoting {
			continue
		}
		if idx > node.MatchIdx {
			continue
		}
		if other, ok := ref.nodes[node.Id]; !ok || !other.IsVoting {
			continue
		}
		votes++
	}
	return n.numVotingNodes(ref)/2 < votes
}
