// Package smcproxy exposes a call router on a Unix domain socket so
// out-of-process tools can issue calls against the bridge. Frames are
// fixed-layout little-endian: a request is the raw call number followed
// by four argument registers; a response is a register count followed by
// that many registers.
package smcproxy

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/hvkit/pmbridge/internal/smc"
)

// Router routes one decoded call. *sip.Router satisfies this.
type Router interface {
	Route(call smc.Call) smc.Result
}

// Server accepts connections and serves call requests.
type Server struct {
	listener   net.Listener
	socketPath string
	router     Router
	logger     *slog.Logger
	closed     atomic.Bool
	wg         sync.WaitGroup
	connsMu    sync.Mutex
	conns      map[net.Conn]struct{}
}

// NewServer listens on the given Unix socket path.
func NewServer(socketPath string, router Router, logger *slog.Logger) (*Server, error) {
	if router == nil {
		return nil, fmt.Errorf("smcproxy: router is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Remove any stale socket file from a previous run.
	os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("smcproxy: listen on %s: %w", socketPath, err)
	}

	return &Server{
		listener:   listener,
		socketPath: socketPath,
		router:     router,
		logger:     logger,
		conns:      make(map[net.Conn]struct{}),
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Serve accepts connections until Close is called.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			return fmt.Errorf("smcproxy: accept: %w", err)
		}

		if unixConn, ok := conn.(*net.UnixConn); ok {
			if err := checkPeer(unixConn); err != nil {
				s.logger.Warn("rejected caller", "err", err)
				conn.Close()
				continue
			}
		}

		s.connsMu.Lock()
		s.conns[conn] = struct{}{}
		s.connsMu.Unlock()

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Close stops the listener and closes all open connections.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.listener.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	os.Remove(s.socketPath)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		conn.Close()
		s.connsMu.Lock()
		delete(s.conns, conn)
		s.connsMu.Unlock()
	}()

	for {
		call, err := readCall(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.closed.Load() {
				s.logger.Warn("read request", "err", err)
			}
			return
		}

		result := s.router.Route(call)
		if err := writeResult(conn, result); err != nil {
			if !s.closed.Load() {
				s.logger.Warn("write response", "err", err)
			}
			return
		}
	}
}

func readCall(r io.Reader) (smc.Call, error) {
	var frame struct {
		ID   uint32
		Args [4]uint64
	}
	if err := binary.Read(r, binary.LittleEndian, &frame); err != nil {
		return smc.Call{}, err
	}
	return smc.Call{ID: frame.ID, Args: frame.Args}, nil
}

func writeResult(w io.Writer, result smc.Result) error {
	regs := result.Registers()
	if err := binary.Write(w, binary.LittleEndian, uint8(len(regs))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, regs)
}
