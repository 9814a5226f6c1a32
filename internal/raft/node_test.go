package raft

import "testing"

func TestNewNodesSingle(t *testing.T) {
	n := NewNodesSingle(1, true)
	if n.Count() != 1 {
		t.Fatalf("expected 1 node, got %d", n.Count())
	}
	if !n.IsMeTheOnlyVoting() {
		t.Fatal("a single voting node should be the only voting node")
	}
}

func TestNewNodesWithMembers(t *testing.T) {
	n := NewNodesWithMembers(1, []NodeId{1, 2, 3})
	if n.Count() != 3 {
		t.Fatalf("expected 3 nodes, got %d", n.Count())
	}
	me := n.GetMyNode()
	if !me.IsMe || !me.IsVoting {
		t.Fatal("self node should be marked IsMe and voting")
	}
	if n.IsMeTheOnlyVoting() {
		t.Fatal("3-node cluster should not report single-voting fast path")
	}
}

func TestAddNodePromotesExisting(t *testing.T) {
	n := NewNodesSingle(1, true)
	n.AddNode(2, false)
	node, ok := n.GetNode(2)
	if !ok || node.IsVoting {
		t.Fatal("node 2 should exist as non-voting")
	}
	n.AddNode(2, true)
	node, _ = n.GetNode(2)
	if !node.IsVoting {
		t.Fatal("re-adding node 2 as voting should promote it")
	}
}

func TestRemoveNode(t *testing.T) {
	n := NewNodesWithMembers(1, []NodeId{1, 2})
	n.RemoveNode(2)
	if _, ok := n.GetNode(2); ok {
		t.Fatal("node 2 should be gone after RemoveNode")
	}
}

func TestItemsSortedById(t *testing.T) {
	n := NewNodesWithMembers(3, []NodeId{3, 1, 2})
	items := n.Items()
	for i := 1; i < len(items); i++ {
		if items[i-1].Id > items[i].Id {
			t.Fatalf("Items() not sorted: %v", items)
		}
	}
}

func TestVotesHasMajority(t *testing.T) {
	n := NewNodesWithMembers(1, []NodeId{1, 2, 3})
	ref := n.Reference()

	if n.VotesHasMajority(0, false, ref) {
		t.Fatal("no votes should not be a majority of 3")
	}

	node2, _ := n.GetNode(2)
	node2.HasVoteForMe = true
	if n.VotesHasMajority(1, true, ref) == false {
		t.Fatal("self-vote plus one peer should be a majority of 3")
	}
}

func TestIsCommittedCountsSelfAndMatchingPeers(t *testing.T) {
	n := NewNodesWithMembers(1, []NodeId{1, 2, 3})
	ref := n.Reference()

	if n.IsCommitted(5, ref) {
		t.Fatal("no peer has matched index 5 yet")
	}

	node2, _ := n.GetNode(2)
	node2.MatchIdx = 5
	if !n.IsCommitted(5, ref) {
		t.Fatal("leader plus one matching peer should form a majority of 3")
	}
}

func TestIsMeCandidateReadyRequiresVoting(t *testing.T) {
	n := NewNodesSingle(1, false)
	if n.IsMeCandidateReady() {
		t.Fatal("a non-voting node should never be candidate-ready")
	}
}
