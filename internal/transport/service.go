package transport

import (
	"context"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"github.com/quietpeer/raft/internal/raft"
)

const serviceName = "raft.RaftTransport"

var requestVoteMethod = "/" + serviceName + "/RequestVote"
var appendEntriesMethod = "/" + serviceName + "/AppendEntries"

// RequestHandler is the local replica's inbound-request surface: the two
// Server methods a peer's RPC ultimately needs to reach. A host normally
// satisfies this with a mutex-wrapped *raft.Server (see cmd/raftd), since
// the core itself performs no locking (§5).
type RequestHandler interface {
	AcceptVoteRequest(from raft.NodeId, r raft.MsgVoteReq) (raft.MsgVoteRep, error)
	AcceptAppendEntriesRequest(from raft.NodeId, r raft.MsgAppendEntriesReq) (raft.MsgAppendEntriesRep, error)
}

type raftService struct {
	handler RequestHandler
}

func requestVoteHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	s := srv.(*raftService)
	var env voteRequestEnvelope
	if err := dec(&env); err != nil {
		return nil, err
	}
	rep, err := s.handler.AcceptVoteRequest(env.From, env.Req)
	if err != nil {
		return nil, err
	}
	return &voteReplyEnvelope{Rep: rep}, nil
}

func appendEntriesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	s := srv.(*raftService)
	var env appendRequestEnvelope
	if err := dec(&env); err != nil {
		return nil, err
	}
	rep, err := s.handler.AcceptAppendEntriesRequest(env.From, env.Req)
	if err != nil {
		return nil, err
	}
	return &appendReplyEnvelope{Rep: rep}, nil
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RequestVote", Handler: requestVoteHandler},
		{MethodName: "AppendEntries", Handler: appendEntriesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "raft.proto",
}

// Serve starts a gRPC server exposing handler's RequestVote/AppendEntries
// over lis, using the json codec registered in codec.go in place of
// protobuf. Mirrors leifdb's raftserver.StartRaftServer.
func Serve(lis net.Listener, handler RequestHandler) *grpc.Server {
	s := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	s.RegisterService(&serviceDesc, &raftService{handler: handler})
	go func() {
		if err := s.Serve(lis); err != nil {
			log.Error().Err(err).Msg("transport: gRPC server stopped")
		}
	}()
	return s
}
