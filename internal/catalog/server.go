package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/openlobby/openlobby/internal/config"
	"github.com/openlobby/openlobby/internal/protocol"
)

// Server exposes the Store over the framed TCP protocol. One goroutine per
// connection; strictly serial request/response per connection.
type Server struct {
	cfg   config.Catalog
	store *Store

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a Catalog server around an opened store.
func NewServer(cfg config.Catalog, store *Store) *Server {
	return &Server{cfg: cfg, store: store}
}

// Addr returns the listening address, or nil before Run.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close shuts the listener down.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run listens on cfg.BindAddress:cfg.Port and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve accepts connections on a prepared listener. Exposed for tests that
// listen on 127.0.0.1:0.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("catalog server started", "address", ln.Addr())
	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			slog.Error("failed to accept connection", "err", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
	wg.Wait()
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	pc := protocol.NewConn(conn)
	for {
		req, err := pc.ReadMessage()
		if err != nil {
			if err != io.EOF {
				slog.Warn("catalog connection dropped", "remote", conn.RemoteAddr(), "err", err)
			}
			return
		}
		if err := pc.WriteMessage(s.process(req)); err != nil {
			slog.Warn("catalog write failed", "remote", conn.RemoteAddr(), "err", err)
			return
		}
	}
}

// process executes one store request and builds the wire response.
func (s *Server) process(req protocol.Message) protocol.Message {
	action := req.Str("action")
	name := req.Str("collection")
	if action == "" || name == "" {
		return protocol.Fail(protocol.ErrInvalidRequest, "Invalid request")
	}

	data := req.Sub("data")
	if data == nil {
		data = protocol.Message{}
	}
	query := map[string]any(data.Sub("query"))

	switch action {
	case "insert":
		doc := make(map[string]any, len(data))
		for k, v := range data {
			doc[k] = v
		}
		// query is request plumbing, never document data
		delete(doc, "query")
		id, err := s.store.Insert(name, doc)
		if err != nil {
			return storeFail(err)
		}
		return protocol.OK().With("id", id)

	case "find":
		results, err := s.store.Find(name, query)
		if err != nil {
			return storeFail(err)
		}
		return protocol.OK().With("results", results)

	case "find_one":
		doc, err := s.store.FindOne(name, query)
		if err != nil {
			return storeFail(err)
		}
		return protocol.OK().With("result", doc)

	case "update":
		count, err := s.store.Update(name, query, map[string]any(data.Sub("update")))
		if err != nil {
			return storeFail(err)
		}
		return protocol.OK().With("count", count)

	case "delete":
		count, err := s.store.Delete(name, query)
		if err != nil {
			return storeFail(err)
		}
		return protocol.OK().With("count", count)
	}

	return protocol.Fail(protocol.ErrInvalidRequest, "Unknown action")
}

func storeFail(err error) protocol.Message {
	switch {
	case errors.Is(err, ErrUnknownCollection):
		return protocol.Fail(protocol.ErrInvalidRequest, "Invalid request")
	case errors.Is(err, ErrNotFound):
		return protocol.Fail(protocol.ErrNotFound, "Not found")
	default:
		slog.Error("store operation failed", "err", err)
		return protocol.Fail(protocol.ErrInternal, "Storage failure")
	}
}
