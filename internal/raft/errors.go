package raft

import "errors"

// Sentinel errors returned by Server operations, per §7 of the spec. These
// are compared with errors.Is, matching the teacher's (leifdb's and
// bernerdschaefer-raft's) package-level Err* convention rather than a custom
// error type, since none of these carry state beyond their identity.
var (
	ErrShutdown            = errors.New("raft: server is shut down")
	ErrNotLeader           = errors.New("raft: not the leader")
	ErrNotCandidate        = errors.New("raft: not a candidate")
	ErrNotFollower         = errors.New("raft: not a follower")
	ErrNodeUnknown         = errors.New("raft: node unknown")
	ErrCantSendToMyself    = errors.New("raft: cannot send a message to myself")
	ErrNothingToSend       = errors.New("raft: nothing pending to send")
	ErrNothingToApply      = errors.New("raft: nothing to apply")
	ErrOneVotingChangeOnly = errors.New("raft: one voting change may be in progress at a time")
	ErrStorageFailure      = errors.New("raft: storage failure")
	ErrApplyFailure        = errors.New("raft: apply failure")
)
