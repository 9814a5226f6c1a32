package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/quietpeer/raft/internal/raft"
)

// dialTimeout bounds how long a single peer dial may take, mirroring
// leifdb's NewForeignNode dial timeout.
const dialTimeout = 100 * time.Millisecond

// requestTimeout bounds a single outstanding RPC, mirroring leifdb's
// requestVote/requestAppend per-call timeouts.
const requestTimeout = 50 * time.Millisecond

// ResponseSink is where this package delivers RPC replies once they arrive,
// asynchronously with respect to the call that sent the request (gRPC
// replies land on their own goroutine). A host normally satisfies this with
// a mutex-wrapped *raft.Server (see cmd/raftd), since the core itself
// performs no locking (§5).
type ResponseSink interface {
	AcceptVoteResponse(from raft.NodeId, r raft.MsgVoteRep) error
	AcceptAppendEntriesResponse(from raft.NodeId, r raft.MsgAppendEntriesRep) error
}

// peer is the gRPC connection to one other cluster member, mirroring
// leifdb's ForeignNode.
type peer struct {
	address string
	conn    *grpc.ClientConn
}

// Transport is a raft.Sender backed by gRPC: RequestVote/AppendEntries hand
// the outbound RPC to a goroutine and return immediately, delivering the
// eventual reply back into sink. Grounded on leifdb's ForeignNode/
// NewForeignNode and Node.requestVote/requestAppend.
type Transport struct {
	mu    sync.RWMutex
	me    raft.NodeId
	peers map[raft.NodeId]*peer
	sink  ResponseSink
}

// NewTransport builds a Transport identifying outbound requests as coming
// from me, delivering replies to sink.
func NewTransport(me raft.NodeId, sink ResponseSink) *Transport {
	return &Transport{
		me:    me,
		peers: make(map[raft.NodeId]*peer),
		sink:  sink,
	}
}

// AddPeer dials address and registers it under id, replacing any existing
// connection for that id.
func (t *Transport) AddPeer(id raft.NodeId, address string) error {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)))
	if err != nil {
		log.Error().Err(err).Str("address", address).Msg("transport: failed to dial peer")
		return err
	}

	t.mu.Lock()
	if old, ok := t.peers[id]; ok {
		old.conn.Close()
	}
	t.peers[id] = &peer{address: address, conn: conn}
	t.mu.Unlock()

	log.Info().Uint64("node", uint64(id)).Str("address", address).Msg("transport: added peer")
	return nil
}

// RemovePeer closes and forgets the connection registered for id, if any.
func (t *Transport) RemovePeer(id raft.NodeId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.peers[id]; ok {
		p.conn.Close()
		delete(t.peers, id)
	}
}

func (t *Transport) getPeer(id raft.NodeId) (*peer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.peers[id]
	return p, ok
}

// RequestVote implements raft.Sender.
func (t *Transport) RequestVote(to raft.NodeId, req raft.MsgVoteReq) error {
	p, ok := t.getPeer(to)
	if !ok {
		return fmt.Errorf("transport: no connection registered for node %d", to)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var rep voteReplyEnvelope
		env := voteRequestEnvelope{From: t.me, Req: req}
		if err := p.conn.Invoke(ctx, requestVoteMethod, &env, &rep, grpc.CallContentSubtype(codecName)); err != nil {
			log.Warn().Err(err).Uint64("to", uint64(to)).Msg("transport: RequestVote call failed")
			return
		}
		if err := t.sink.AcceptVoteResponse(to, rep.Rep); err != nil {
			log.Warn().Err(err).Uint64("from", uint64(to)).Msg("transport: failed to deliver vote response")
		}
	}()
	return nil
}

// AppendEntries implements raft.Sender.
func (t *Transport) AppendEntries(to raft.NodeId, req raft.MsgAppendEntriesReq) error {
	p, ok := t.getPeer(to)
	if !ok {
		return fmt.Errorf("transport: no connection registered for node %d", to)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var rep appendReplyEnvelope
		env := appendRequestEnvelope{From: t.me, Req: req}
		if err := p.conn.Invoke(ctx, appendEntriesMethod, &env, &rep, grpc.CallContentSubtype(codecName)); err != nil {
			log.Warn().Err(err).Uint64("to", uint64(to)).Msg("transport: AppendEntries call failed")
			return
		}
		if err := t.sink.AcceptAppendEntriesResponse(to, rep.Rep); err != nil {
			log.Warn().Err(err).Uint64("from", uint64(to)).Msg("transport: failed to deliver append response")
		}
	}()
	return nil
}
