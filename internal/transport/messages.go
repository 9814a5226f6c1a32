package transport

import "github.com/quietpeer/raft/internal/raft"

// Wire envelopes pair a raft message with the sender's identity, since
// raft.MsgVoteReq/MsgAppendEntriesReq carry no "from" field of their own
// (the in-process Server always knows its caller directly). Mirrors
// leifdb's VoteRequest/AppendRequest embedding the candidate/leader node
// alongside the message body.
type voteRequestEnvelope struct {
	From raft.NodeId
	Req  raft.MsgVoteReq
}

type voteReplyEnvelope struct {
	Rep raft.MsgVoteRep
}

type appendRequestEnvelope struct {
	From raft.NodeId
	Req  raft.MsgAppendEntriesReq
}

type appendReplyEnvelope struct {
	Rep raft.MsgAppendEntriesRep
}
