// Command raftd runs one replica of a raft cluster: it loads a cluster
// descriptor, wires together the file-backed Storage, gRPC Transport, and
// radix-indexed Database, drives the election/heartbeat timer off a
// time.Ticker, and serves a small HTTP status surface. Grounded on leifdb's
// cmd/leifdb wiring (NewNodeConfig -> NewNode -> StartRaftServer, plus its
// gin-based HTTP API).
package main

import (
	"flag"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quietpeer/raft/internal/config"
	"github.com/quietpeer/raft/internal/database"
	"github.com/quietpeer/raft/internal/raft"
	"github.com/quietpeer/raft/internal/storage"
	"github.com/quietpeer/raft/internal/transport"
)

// lockedServer funnels every inbound and outbound collaborator call through
// one mutex, satisfying the core's single-threaded-caller requirement (§5)
// even though the gRPC server handles connections concurrently and the
// Transport delivers replies from its own goroutines.
type lockedServer struct {
	mu sync.Mutex
	s  *raft.Server
}

func (l *lockedServer) AcceptVoteRequest(from raft.NodeId, r raft.MsgVoteReq) (raft.MsgVoteRep, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.AcceptVoteRequest(from, r)
}

func (l *lockedServer) AcceptAppendEntriesRequest(from raft.NodeId, r raft.MsgAppendEntriesReq) (raft.MsgAppendEntriesRep, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.AcceptAppendEntriesRequest(from, r)
}

func (l *lockedServer) AcceptVoteResponse(from raft.NodeId, r raft.MsgVoteRep) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.AcceptVoteResponse(from, r)
}

func (l *lockedServer) AcceptAppendEntriesResponse(from raft.NodeId, r raft.MsgAppendEntriesRep) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.AcceptAppendEntriesResponse(from, r)
}

func (l *lockedServer) Tick(elapsed time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Tick(elapsed)
}

func (l *lockedServer) snapshot() (role raft.Role, term raft.TermId, leader raft.NodeId, hasLeader bool, commitIdx, lastLogIdx raft.Index) {
	l.mu.Lock()
	defer l.mu.Unlock()
	leader, hasLeader = l.s.CurrentLeader()
	return l.s.Role(), l.s.CurrentTerm(), leader, hasLeader, l.s.CommitIndex(), l.s.LastLogIndex()
}

func (l *lockedServer) nodes() []raft.NodeView {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Nodes()
}

func main() {
	configPath := flag.String("config", "", "path to a cluster YAML descriptor")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if *configPath == "" {
		log.Fatal().Msg("raftd: -config is required")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("raftd: failed to load cluster config")
	}

	store, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("raftd: failed to open storage")
	}
	db := database.NewDatabase()

	locked := &lockedServer{}
	tr := transport.NewTransport(cfg.Self, locked)

	members := cfg.Members()
	var server *raft.Server
	if len(members) <= 1 {
		server, err = raft.NewSingle(cfg.Self, store, tr, db)
	} else {
		server, err = raft.NewWithMembers(cfg.Self, members, store, tr, db)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("raftd: failed to start raft server")
	}
	locked.s = server

	for id, addr := range cfg.PeerAddresses() {
		if err := tr.AddPeer(id, addr); err != nil {
			log.Warn().Err(err).Uint64("peer", uint64(id)).Msg("raftd: failed to dial peer at startup, will not retry automatically")
		}
	}

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.ListenAddr).Msg("raftd: failed to listen for raft RPCs")
	}
	grpcServer := transport.Serve(lis, locked)
	defer grpcServer.GracefulStop()

	go runTicker(locked)

	log.Info().
		Uint64("self", uint64(cfg.Self)).
		Str("listen", cfg.ListenAddr).
		Str("admin", cfg.AdminAddr).
		Msg("raftd: started")

	if err := serveAdminHTTP(cfg.AdminAddr, locked, db); err != nil {
		log.Fatal().Err(err).Msg("raftd: admin HTTP server failed")
	}
}

// runTicker drives the election/heartbeat timer at a fine enough grain to
// keep heartbeats and randomized election timeouts responsive, mirroring
// leifdb's StateManager.
func runTicker(locked *lockedServer) {
	interval := raft.DefaultHeartbeatInterval / 2
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if err := locked.Tick(interval); err != nil {
			if err == raft.ErrShutdown {
				log.Info().Msg("raftd: server shut down, stopping ticker")
				return
			}
			log.Warn().Err(err).Msg("raftd: tick failed")
		}
	}
}

// serveAdminHTTP serves a small read-only status surface over gin, mirroring
// leifdb's gin-based HTTP API without the generated Swagger docs (see
// DESIGN.md for why that doc-generation chain was dropped).
func serveAdminHTTP(addr string, locked *lockedServer, db *database.Database) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Next()
		log.Debug().Str("path", c.Request.URL.Path).Int("status", c.Writer.Status()).Msg("admin http request")
	})

	router.Use(corsMiddleware())

	router.GET("/status", func(c *gin.Context) {
		role, term, leader, hasLeader, commitIdx, lastLogIdx := locked.snapshot()
		body := gin.H{
			"role":         string(role),
			"term":         uint64(term),
			"commitIndex":  uint64(commitIdx),
			"lastLogIndex": uint64(lastLogIdx),
		}
		if hasLeader {
			body["leader"] = uint64(leader)
		}
		c.JSON(http.StatusOK, body)
	})

	router.GET("/nodes", func(c *gin.Context) {
		nodes := locked.nodes()
		body := make([]gin.H, len(nodes))
		for i, n := range nodes {
			body[i] = gin.H{
				"id":       uint64(n.Id),
				"isVoting": n.IsVoting,
				"isMe":     n.IsMe,
				"nextIdx":  uint64(n.NextIdx),
				"matchIdx": uint64(n.MatchIdx),
			}
		}
		c.JSON(http.StatusOK, gin.H{"nodes": body})
	})

	router.GET("/store/:key", func(c *gin.Context) {
		v, ok := db.Get(c.Param("key"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": c.Param("key"), "value": v})
	})

	return router.Run(addr)
}

func corsMiddleware() gin.HandlerFunc {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})
	return func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		ctx.Next()
	}
}
