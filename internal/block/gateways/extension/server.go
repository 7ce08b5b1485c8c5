// Package extension is the WebSocket bridge to the browser extension. The
// extension reports navigations and storage requests; the daemon sends tab
// commands and waits for the correlated response.
package extension

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/haukened/siteblock/internal/block/common/log"
	"github.com/haukened/siteblock/internal/block/domain"
	"github.com/haukened/siteblock/internal/block/repos/kvstore"
)

// readLimit caps a single frame; extracted descriptions are short.
const readLimit = 1 << 20

// Handler receives the extension's events.
type Handler interface {
	HandleNavigation(ctx context.Context, tabID int, pageURL string) domain.Outcome
	AllowFeedback(ctx context.Context, title, description, hostname string) (bool, error)
	BlockPage(ctx context.Context, pageURL string, scope domain.Scope, title, description string) (bool, error)
	ForgetTab(tabID int)
}

type pendingCall struct {
	conn *websocket.Conn
	ch   chan IncomingMsg
}

// Server manages the WebSocket connection to the extension. Only one
// connection is active; a new one replaces the previous.
type Server struct {
	store          kvstore.Store
	logger         log.Logger
	commandTimeout time.Duration
	promptTimeout  time.Duration
	origin         string
	newID          func() string

	mu      sync.Mutex
	conn    *websocket.Conn
	connCtx context.Context
	handler Handler
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]pendingCall
}

type Options struct {
	Store          kvstore.Store
	Logger         log.Logger
	CommandTimeout time.Duration
	PromptTimeout  time.Duration
	// Origin, when set, is the only Origin header accepted on upgrade.
	Origin string
	// NewID generates command ids. Defaults to random UUIDs.
	NewID func() string
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	cmdTimeout := opts.CommandTimeout
	if cmdTimeout <= 0 {
		cmdTimeout = 10 * time.Second
	}
	promptTimeout := opts.PromptTimeout
	if promptTimeout <= 0 {
		promptTimeout = cmdTimeout
	}
	return &Server{
		store:          opts.Store,
		logger:         logger,
		commandTimeout: cmdTimeout,
		promptTimeout:  promptTimeout,
		origin:         strings.TrimSuffix(opts.Origin, "/"),
		newID:          newID,
		pending:        make(map[string]pendingCall),
	}
}

// SetHandler installs the event handler. Events arriving before a handler
// is set are dropped.
func (s *Server) SetHandler(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// Connected reports whether an extension is connected.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Handler returns an http.Handler that accepts WebSocket upgrades.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.origin != "" && strings.TrimSuffix(r.Header.Get("Origin"), "/") != s.origin {
			s.logger.Warn(map[string]any{"origin": r.Header.Get("Origin"), "remote": r.RemoteAddr}, "rejected bridge connection")
			http.Error(w, "forbidden origin", http.StatusForbidden)
			return
		}
		// The Origin header is checked above; extension origins never match the host.
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			s.logger.Error(map[string]any{"error": err.Error()}, "websocket accept failed")
			return
		}
		conn.SetReadLimit(readLimit)

		ctx := r.Context()
		s.mu.Lock()
		if s.conn != nil {
			s.logger.Info(nil, "extension connection replaced")
			s.conn.CloseNow()
		}
		s.conn = conn
		s.connCtx = ctx
		s.mu.Unlock()

		s.logger.Info(map[string]any{"remote": r.RemoteAddr}, "extension connected")

		defer func() {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
				s.connCtx = nil
			}
			s.mu.Unlock()
			conn.CloseNow()
			s.failPending(conn)
			s.logger.Info(nil, "extension disconnected")
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg IncomingMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				s.logger.Warn(map[string]any{"error": err.Error()}, "unparseable extension message")
				continue
			}
			if msg.Type == TypeResponse {
				s.deliver(msg)
				continue
			}
			go s.dispatch(ctx, msg)
		}
	})
}

// ListenAndServe serves the bridge on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/", s.Handler())

	s.logger.Info(map[string]any{"addr": addr}, "bridge listening")
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) active() (*websocket.Conn, context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn, s.connCtx
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, msg OutgoingMsg) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

// send writes msg on the active connection.
func (s *Server) send(msg OutgoingMsg) error {
	conn, ctx := s.active()
	if conn == nil {
		return ErrNotConnected
	}
	return s.write(ctx, conn, msg)
}

// call sends a command and waits for the response with the same id.
func (s *Server) call(ctx context.Context, msg OutgoingMsg, timeout time.Duration) (IncomingMsg, error) {
	conn, connCtx := s.active()
	if conn == nil {
		return IncomingMsg{}, ErrNotConnected
	}
	msg.ID = s.newID()
	ch := make(chan IncomingMsg, 1)

	// registered before writing so neither a fast response nor a disconnect is missed
	s.pendingMu.Lock()
	s.pending[msg.ID] = pendingCall{conn: conn, ch: ch}
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, msg.ID)
		s.pendingMu.Unlock()
	}()

	if err := s.write(connCtx, conn, msg); err != nil {
		return IncomingMsg{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Debug(map[string]any{"type": msg.Type, "id": msg.ID, "tab": msg.TabID}, "command sent")
	select {
	case resp := <-ch:
		return resp, responseError(resp)
	case <-ctx.Done():
		return IncomingMsg{}, fmt.Errorf("%w: %s: %v", ErrTimeout, msg.Type, ctx.Err())
	}
}

func (s *Server) deliver(resp IncomingMsg) {
	s.pendingMu.Lock()
	p, ok := s.pending[resp.ID]
	s.pendingMu.Unlock()
	if !ok {
		s.logger.Debug(map[string]any{"id": resp.ID}, "response for unknown command")
		return
	}
	select {
	case p.ch <- resp:
	default:
	}
}

// failPending resolves every call in flight on conn as disconnected.
func (s *Server) failPending(conn *websocket.Conn) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for id, p := range s.pending {
		if p.conn != conn {
			continue
		}
		select {
		case p.ch <- IncomingMsg{Type: TypeResponse, ID: id, OK: boolPtr(false), Error: codeDisconnected}:
		default:
		}
	}
}
