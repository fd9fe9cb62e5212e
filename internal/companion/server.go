package companion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
)

// DefaultAddr is the well-known registry address.
const DefaultAddr = "127.0.0.1:47777"

// Server answers registry requests from a Store.
type Server struct {
	store  Store
	logger *zap.Logger

	mu   sync.Mutex
	conn net.PacketConn
	wg   sync.WaitGroup
}

// NewServer creates a registry server backed by store
func NewServer(store Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: store, logger: logger.Named("companion")}
}

// ListenAndServe binds addr and serves until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, conn)
}

// Serve reads datagrams from conn until ctx is done or conn is closed.
// Each datagram is answered on its own goroutine.
func (s *Server) Serve(ctx context.Context, conn net.PacketConn) error {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.logger.Info("registry listening", zap.String("addr", conn.LocalAddr().String()))

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	buf := make([]byte, MaxPayload)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Info("registry stopped")
				return nil
			}
			return fmt.Errorf("read datagram: %w", err)
		}

		datagram := append([]byte(nil), buf[:n]...)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.reply(ctx, conn, from, datagram)
		}()
	}
}

// Addr returns the bound address, or nil before Serve
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Close stops a running Serve loop
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Server) reply(ctx context.Context, conn net.PacketConn, to net.Addr, datagram []byte) {
	var resp *Response
	var key string
	req, err := UnmarshalRequest(datagram)
	if err != nil {
		s.logger.Warn("malformed request", zap.Stringer("from", to), zap.Error(err))
		resp = &Response{Status: StatusError, Message: err.Error()}
	} else {
		key = req.Key
		resp = s.Handle(ctx, req)
	}

	data, err := MarshalResponse(resp)
	if err != nil {
		s.logger.Warn("response not sent", zap.String("key", key), zap.Error(err))
		data, err = MarshalResponse(&Response{
			ID:      resp.ID,
			Status:  StatusError,
			Message: fmt.Sprintf("value of %s does not fit in a datagram: %v", key, err),
		})
		if err != nil {
			return
		}
	}

	if _, err := conn.WriteTo(data, to); err != nil {
		s.logger.Debug("write reply", zap.Stringer("to", to), zap.Error(err))
	}
}

// Handle executes a single request against the store.
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	resp := &Response{ID: req.ID}

	switch req.Op {
	case OpPing:
		resp.Status = StatusPong

	case OpGet:
		value, err := s.store.Get(ctx, req.Key)
		switch {
		case err == nil:
			resp.Status = StatusString
			resp.Value = value
		case IsNotFound(err):
			resp.Status = StatusNotFound
			resp.Message = req.Key
		default:
			resp.Status = StatusError
			resp.Message = err.Error()
		}
		s.logger.Debug("get", zap.String("key", req.Key), zap.Uint8("status", uint8(resp.Status)))

	case OpSet:
		if err := s.store.Set(ctx, req.Key, req.Value); err != nil {
			resp.Status = StatusError
			resp.Message = err.Error()
		} else {
			resp.Status = StatusAck
		}
		s.logger.Debug("set", zap.String("key", req.Key), zap.Int("bytes", len(req.Value)))

	case OpList:
		keys, err := s.store.List(ctx, req.Key)
		if err != nil {
			resp.Status = StatusError
			resp.Message = err.Error()
		} else {
			resp.Status = StatusKeys
			resp.Keys = keys
		}

	default:
		resp.Status = StatusError
		resp.Message = fmt.Sprintf("unknown operation %s", req.Op)
	}

	return resp
}
