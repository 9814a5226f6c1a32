package raft

import "fmt"

// NodeId identifies a member of the cluster. It is stable for the lifetime
// of the node's membership and is never reused after a RemoveNode commits.
type NodeId uint64

func (n NodeId) String() string {
	return fmt.Sprintf("%d", uint64(n))
}

// TermId is a monotonically increasing Raft election epoch.
type TermId uint64

// Index is a 1-based position in the replicated log. Zero means "none".
type Index uint64

// EntryId is a caller-supplied identifier carried alongside an Entry so the
// submitter can recognize its own entry once applied, independent of index.
type EntryId uint64

// NoNode is the zero NodeId, used where "no node" must be represented.
const NoNode NodeId = 0
