package rpc

import (
	"context"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/courtstream/logger"
	"github.com/wfunc/courtstream/models"
	"github.com/wfunc/courtstream/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Addr reports the bound listener address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// SnapshotService exposes stored session state to operator tooling over
// net/rpc. Methods follow the net/rpc signature rules.
type SnapshotService struct {
	snapshots *services.SnapshotService
}

func NewSnapshotService(snapshots *services.SnapshotService) *SnapshotService {
	return &SnapshotService{snapshots: snapshots}
}

type GetSnapshotArgs struct {
	SessionID string
}

type GetSnapshotReply struct {
	Found    bool
	Snapshot models.SessionSnapshot
}

func (s *SnapshotService) GetSnapshot(args *GetSnapshotArgs, reply *GetSnapshotReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, ok, err := s.snapshots.GetSnapshot(ctx, args.SessionID)
	if err != nil {
		return err
	}
	reply.Found = ok
	reply.Snapshot = snap
	return nil
}
