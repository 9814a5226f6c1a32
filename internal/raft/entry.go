package raft

// InternalKind tags the cluster-configuration commands a log entry can carry
// in place of a user payload.
type InternalKind uint8

const (
	// Noop is the neutral internal kind appended on leader ascension, solely
	// to establish the leader's term in the log.
	Noop InternalKind = iota
	AddNonVotingNode
	AddNode
	DemoteNode
	RemoveNode
)

func (k InternalKind) String() string {
	switch k {
	case Noop:
		return "Noop"
	case AddNonVotingNode:
		return "AddNonVotingNode"
	case AddNode:
		return "AddNode"
	case DemoteNode:
		return "DemoteNode"
	case RemoveNode:
		return "RemoveNode"
	default:
		return "Unknown"
	}
}

// InternalData is the payload of a cluster-configuration entry: the command
// kind and the node it applies to.
type InternalData struct {
	Kind InternalKind
	Node NodeId
}

// Entry is an immutable record in the replicated log. Body is either a user
// payload in Data (Internal is the zero value) or a cluster-configuration
// command in Internal. IsInternal says which: a user entry's Data may be
// empty, and Noop is Internal's zero Kind.
type Entry struct {
	Term TermId
	Id   EntryId
	// Data holds the user payload. Nil for internal entries.
	Data []byte
	// Internal holds the cluster-configuration command. Only meaningful
	// when IsInternal is true.
	Internal   InternalData
	IsInternal bool
}

// NewUserEntry builds a user-payload entry.
func NewUserEntry(term TermId, id EntryId, data []byte) Entry {
	return Entry{Term: term, Id: id, Data: data}
}

func newInternalEntry(term TermId, id EntryId, kind InternalKind, node NodeId) Entry {
	return Entry{Term: term, Id: id, IsInternal: true, Internal: InternalData{Kind: kind, Node: node}}
}

// NewNoopEntry builds the entry a leader appends on ascension to establish
// its term in the log.
func NewNoopEntry(term TermId, id EntryId) Entry {
	return newInternalEntry(term, id, Noop, NoNode)
}

// NewAddNonVotingNodeEntry builds a membership entry that adds node as a
// non-voting (learner) member on append.
func NewAddNonVotingNodeEntry(term TermId, id EntryId, node NodeId) Entry {
	return newInternalEntry(term, id, AddNonVotingNode, node)
}

// NewAddNodeEntry builds a membership entry that promotes node to voting on
// append.
func NewAddNodeEntry(term TermId, id EntryId, node NodeId) Entry {
	return newInternalEntry(term, id, AddNode, node)
}

// NewDemoteNodeEntry builds a membership entry that demotes node to
// non-voting on append.
func NewDemoteNodeEntry(term TermId, id EntryId, node NodeId) Entry {
	return newInternalEntry(term, id, DemoteNode, node)
}

// NewRemoveNodeEntry builds a membership entry that removes node from the
// cluster on append.
func NewRemoveNodeEntry(term TermId, id EntryId, node NodeId) Entry {
	return newInternalEntry(term, id, RemoveNode, node)
}

// IsVotingChange reports whether this entry's kind is one of the three
// membership commands subject to the single-voting-change-in-progress rule.
func (e Entry) IsVotingChange() bool {
	if !e.IsInternal {
		return false
	}
	switch e.Internal.Kind {
	case AddNode, DemoteNode, RemoveNode:
		return true
	default:
		return false
	}
}
