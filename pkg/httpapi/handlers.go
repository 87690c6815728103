package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/draftboard-io/draftboard/pkg/board"
	"github.com/draftboard-io/draftboard/pkg/chat"
	"github.com/draftboard-io/draftboard/pkg/chatstore"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("response write failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// --- board ---

func (s *Server) handleGetBoard(w http.ResponseWriter, _ *http.Request) {
	st := s.board.State()
	writeJSON(w, http.StatusOK, boardStateView(st))
}

func boardStateView(st board.State) map[string]any {
	shapes := st.Shapes
	if shapes == nil {
		shapes = []*board.Shape{}
	}
	conns := st.Connections
	if conns == nil {
		conns = []*board.Connection{}
	}
	return map[string]any{"shapes": shapes, "connections": conns}
}

func (s *Server) handlePutShape(w http.ResponseWriter, r *http.Request) {
	var sh board.Shape
	if !decodeBody(w, r, &sh) {
		return
	}
	put := &sh
	if strings.TrimSpace(sh.ID) == "" {
		put = board.NewShape(sh.X, sh.Y, sh.W, sh.H)
		put.Attrs = sh.Attrs
	}
	if err := s.board.PutShape(put, board.OriginUser); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, put)
}

func (s *Server) handleDeleteShape(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.board.DeleteShapes(board.OriginUser, id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handlePutConnection(w http.ResponseWriter, r *http.Request) {
	var c board.Connection
	if !decodeBody(w, r, &c) {
		return
	}
	put := &c
	if strings.TrimSpace(c.ID) == "" {
		nc := board.NewConnection(c.SourceID, c.TargetID)
		nc.SourceSide = c.SourceSide
		nc.TargetSide = c.TargetSide
		nc.Label = c.Label
		nc.Path = c.Path
		put = nc
	}
	if err := s.board.PutConnection(put, board.OriginUser); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, put)
}

func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.board.DeleteConnection(id, board.OriginUser); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// --- history ---

func (s *Server) handleUndo(w http.ResponseWriter, _ *http.Request) {
	applied := s.recorder.Undo()
	s.writeHistoryView(w, applied)
}

func (s *Server) handleRedo(w http.ResponseWriter, _ *http.Request) {
	applied := s.recorder.Redo()
	s.writeHistoryView(w, applied)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, _ *http.Request) {
	s.writeHistoryView(w, false)
}

func (s *Server) writeHistoryView(w http.ResponseWriter, applied bool) {
	writeJSON(w, http.StatusOK, map[string]any{
		"applied": applied,
		"canUndo": s.recorder.CanUndo(),
		"canRedo": s.recorder.CanRedo(),
		"length":  s.recorder.Len(),
	})
}

// --- sessions ---

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	sess, err := s.sessions.CreateSession(r.Context(), chatstore.Session{ID: in.ID, Title: in.Title})
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = v
	}
	sessions, err := s.sessions.ListSessions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []chatstore.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	msgs, err := s.sync.Open(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessionId": id, "messages": msgs})
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	msgs, err := s.sessions.LoadMessages(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// handlePutMessages replaces the active session's local message list. The
// sync engine decides when and how the change reaches the remote store.
func (s *Server) handlePutMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id != s.sync.ActiveSessionID() {
		writeError(w, http.StatusConflict, "session is not open")
		return
	}
	var msgs []chat.Message
	if !decodeBody(w, r, &msgs) {
		return
	}
	s.sync.NoteChange(msgs)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id != s.sync.ActiveSessionID() {
		writeError(w, http.StatusConflict, "session is not open")
		return
	}
	if err := s.sync.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// --- sync ---

func (s *Server) handleSyncFlush(w http.ResponseWriter, r *http.Request) {
	if err := s.sync.SaveNow(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.sync.Status())
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sync.Status())
}

// --- websocket ---

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.pool.Add(conn)
	go s.readLoop(conn)
}

// readLoop drains client frames (the push channel is one-way) and detaches on
// close or error.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.pool.Remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
