// Package httpapi exposes the board, history, and session sync engines over
// HTTP and pushes change events to websocket clients.
package httpapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/draftboard-io/draftboard/pkg/board"
	"github.com/draftboard-io/draftboard/pkg/bus"
	"github.com/draftboard-io/draftboard/pkg/chatstore"
	"github.com/draftboard-io/draftboard/pkg/chatsync"
	"github.com/draftboard-io/draftboard/pkg/history"
)

// DefaultClientIdleTimeout is how long the server waits after the last
// websocket client disconnects before flushing pending sync work.
const DefaultClientIdleTimeout = time.Minute

// Config carries the assembled engines the server exposes.
type Config struct {
	Addr     string
	Board    *board.Store
	Recorder *history.Recorder
	Sessions chatstore.Store
	Sync     *chatsync.Engine
	Bus      *bus.Bus
	// ClientIdleTimeout overrides DefaultClientIdleTimeout; negative
	// disables the idle flush.
	ClientIdleTimeout time.Duration
}

// Server is the HTTP and websocket surface of the editor backend.
type Server struct {
	addr     string
	board    *board.Store
	recorder *history.Recorder
	sessions chatstore.Store
	sync     *chatsync.Engine
	bus      *bus.Bus

	pool      *ConnectionPool
	forwarder *Forwarder
	upgrader  websocket.Upgrader
	httpSrv   *http.Server
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Board == nil || cfg.Recorder == nil || cfg.Sessions == nil || cfg.Sync == nil || cfg.Bus == nil {
		return nil, errors.New("httpapi: missing server dependencies")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}
	idle := cfg.ClientIdleTimeout
	if idle == 0 {
		idle = DefaultClientIdleTimeout
	}
	s := &Server{
		addr:     cfg.Addr,
		board:    cfg.Board,
		recorder: cfg.Recorder,
		sessions: cfg.Sessions,
		sync:     cfg.Sync,
		bus:      cfg.Bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	// With no editors connected there is no reason to sit on pending
	// changes; push them as soon as the idle window elapses.
	s.pool = NewConnectionPool("main", idle, func() {
		if err := s.sync.SaveNow(context.Background()); err != nil {
			log.Warn().Err(err).Msg("idle flush failed")
		}
	})
	s.forwarder = NewForwarder(cfg.Bus, s.pool)

	// Every committed board mutation goes out on the bus; replay (undo/redo)
	// is included so clients can re-render, distinguished by origin.
	cfg.Board.Subscribe(func(st board.State, origin board.Origin) {
		payload := boardStateView(st)
		payload["origin"] = origin
		if err := s.bus.PublishJSON(bus.TopicBoardChanged, payload); err != nil {
			log.Warn().Err(err).Msg("publish board change failed")
		}
	})

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.buildMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) buildMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/board", s.handleGetBoard)
	mux.HandleFunc("POST /api/board/shapes", s.handlePutShape)
	mux.HandleFunc("DELETE /api/board/shapes/{id}", s.handleDeleteShape)
	mux.HandleFunc("POST /api/board/connections", s.handlePutConnection)
	mux.HandleFunc("DELETE /api/board/connections/{id}", s.handleDeleteConnection)

	mux.HandleFunc("POST /api/board/undo", s.handleUndo)
	mux.HandleFunc("POST /api/board/redo", s.handleRedo)
	mux.HandleFunc("GET /api/board/history", s.handleGetHistory)

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions/{id}/open", s.handleOpenSession)
	mux.HandleFunc("GET /api/sessions/{id}/messages", s.handleGetMessages)
	mux.HandleFunc("PUT /api/sessions/{id}/messages", s.handlePutMessages)
	mux.HandleFunc("POST /api/sessions/{id}/clear", s.handleClearSession)

	mux.HandleFunc("POST /api/sync/flush", s.handleSyncFlush)
	mux.HandleFunc("GET /api/sync/status", s.handleSyncStatus)

	mux.HandleFunc("GET /ws", s.handleWS)

	return mux
}

// Handler returns the API handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	if s == nil || s.httpSrv == nil {
		return http.NotFoundHandler()
	}
	return s.httpSrv.Handler
}

// Run serves until ctx is canceled or an interrupt arrives, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("httpapi: ctx is nil")
	}
	if s == nil || s.httpSrv == nil {
		return errors.New("httpapi: server is not initialized")
	}
	eg := errgroup.Group{}
	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()

	if err := s.forwarder.Start(srvCtx, bus.TopicBoardChanged, bus.TopicSyncStatus); err != nil {
		return err
	}

	eg.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			log.Info().Msg("received interrupt signal, shutting down gracefully...")
		case <-srvCtx.Done():
		}
		srvCancel()

		shutdownBase := context.WithoutCancel(ctx)
		shutdownCtx, cancel := context.WithTimeout(shutdownBase, 30*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}
		s.pool.CloseAll()
		if err := s.sync.SaveNow(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("final save on shutdown failed")
		}
		if err := s.sync.Close(); err != nil {
			log.Error().Err(err).Msg("sync engine close error")
		}
		log.Info().Msg("server shutdown complete")
		return nil
	})

	eg.Go(func() error {
		log.Info().Str("addr", s.httpSrv.Addr).Msg("starting draftboard server")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server listen error")
			srvCancel()
			return err
		}
		return nil
	})

	return eg.Wait()
}
