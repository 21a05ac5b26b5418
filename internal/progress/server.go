package progress

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Server is the out-of-process aggregator. It processes exactly one request
// at a time to completion, even when multiple client connections are open
// concurrently, via a single serializing worker goroutine.
type Server struct {
	listener net.Listener
	out      io.Writer
	log      zerolog.Logger
	now      func() time.Time

	reqCh chan requestEnvelope

	mu       sync.Mutex
	trackers map[string]*tracker

	closed   chan struct{}
	closeErr error
	once     sync.Once
}

type requestEnvelope struct {
	req   Request
	reply chan Reply
}

// NewServer creates a Server bound to an already-listening socket (see
// FindFreePort for how the engine discovers the port before spawning this
// as a child process).
func NewServer(listener net.Listener, out io.Writer, log zerolog.Logger) *Server {
	return &Server{
		listener: listener,
		out:      out,
		log:      log,
		now:      time.Now,
		reqCh:    make(chan requestEnvelope),
		trackers: make(map[string]*tracker),
		closed:   make(chan struct{}),
	}
}

// FindFreePort opens and immediately closes a listening socket to discover
// a free local port, per the engine's port-discovery contract.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// Serve accepts connections and processes requests until a close command
// arrives or the listener is closed. It blocks until shutdown.
func (s *Server) Serve() error {
	go s.processLoop()

	var wg sync.WaitGroup
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				wg.Wait()
				return nil
			default:
				return err
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	encoder := json.NewEncoder(conn)

	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			var req Request
			if jsonErr := json.Unmarshal(line, &req); jsonErr != nil {
				_ = encoder.Encode(Reply{Error: jsonErr.Error()})
			} else {
				env := requestEnvelope{req: req, reply: make(chan Reply, 1)}
				select {
				case s.reqCh <- env:
					reply := <-env.reply
					_ = encoder.Encode(reply)
				case <-s.closed:
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) processLoop() {
	for env := range s.reqCh {
		reply := s.process(env.req)
		env.reply <- reply
		if env.req.Command == CmdClose {
			s.shutdown()
			return
		}
	}
}

func (s *Server) process(req Request) Reply {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Command {
	case CmdInitialize:
		s.trackers[req.UUID] = newTracker(req, now)
		s.log.Debug().Str("uuid", req.UUID).Msg("tracker initialized")
	case CmdUpdate:
		t, ok := s.trackers[req.UUID]
		if !ok {
			return Reply{}
		}
		count := int64(defaultCount)
		if req.Count != nil {
			count = *req.Count
		}
		if t.add(count, now) {
			s.emit(t, now)
		}
	case CmdFinalize:
		t, ok := s.trackers[req.UUID]
		if !ok {
			return Reply{}
		}
		s.emit(t, now)
		delete(s.trackers, req.UUID)
	case CmdSnapshot:
		snapshots := make([]TrackerSnapshot, 0, len(s.trackers))
		for uuid, t := range s.trackers {
			snapshots = append(snapshots, t.snapshot(uuid))
		}
		return Reply{Trackers: snapshots}
	case CmdClose:
		// handled by the caller after reply is sent
	default:
		return Reply{Error: "unknown command"}
	}
	return Reply{}
}

func (s *Server) emit(t *tracker, now time.Time) {
	line := t.line(now)
	if _, err := io.WriteString(s.out, line+"\n"); err != nil {
		s.log.Warn().Err(err).Msg("failed to write progress line")
	}
}

func (s *Server) shutdown() {
	s.once.Do(func() {
		close(s.closed)
		_ = s.listener.Close()
	})
}

// Addr returns the bound network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
