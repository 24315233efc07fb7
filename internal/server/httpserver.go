package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"seabattle/internal/app"
	"seabattle/internal/codec"
	"seabattle/internal/game"
	"seabattle/internal/stats"
)

const (
	maxFieldBytes = 64 << 10
	writeWait     = 5 * time.Second
)

// StatsLister is the read side of the stats store.
type StatsLister interface {
	ListByPlayer(ctx context.Context, player string, limit int) ([]stats.Record, error)
}

type Server struct {
	Sessions *app.Manager
	Stats    StatsLister // nil disables /v1/stats
	Log      zerolog.Logger

	upgrader websocket.Upgrader
}

func New(sessions *app.Manager, st StatsLister, log zerolog.Logger) *Server {
	return &Server{
		Sessions: sessions,
		Stats:    st,
		Log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /v1/matches", s.handleCreate)
	mux.HandleFunc("GET /v1/matches/{id}", s.withSession(s.handleStatus))
	mux.HandleFunc("DELETE /v1/matches/{id}", s.handleDiscard)

	// Setup
	mux.HandleFunc("POST /v1/matches/{id}/ships", s.withSession(s.handlePlace))
	mux.HandleFunc("DELETE /v1/matches/{id}/ships/{ship}", s.withSession(s.handleRemove))
	mux.HandleFunc("POST /v1/matches/{id}/auto", s.withSession(s.setupAction((*app.Session).AutoPlace)))
	mux.HandleFunc("POST /v1/matches/{id}/clear", s.withSession(s.setupAction((*app.Session).ClearBoard)))
	mux.HandleFunc("POST /v1/matches/{id}/start", s.withSession(s.setupAction((*app.Session).Start)))
	mux.HandleFunc("GET /v1/matches/{id}/field", s.withSession(s.handleExport))
	mux.HandleFunc("PUT /v1/matches/{id}/field", s.withSession(s.handleImport))

	// Play
	mux.HandleFunc("POST /v1/matches/{id}/fire", s.withSession(s.handleFire))
	mux.HandleFunc("GET /v1/matches/{id}/reveal", s.withSession(s.handleReveal))
	mux.HandleFunc("GET /v1/matches/{id}/events", s.withSession(s.handleEvents))

	mux.HandleFunc("GET /v1/stats/{player}", s.handleStats)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// errorCode maps domain errors onto HTTP status codes. Everything else is a
// malformed request: bad placements, parse errors, underfilled fleets.
func errorCode(err error) int {
	switch {
	case errors.Is(err, game.ErrShipNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNotInSetup),
		errors.Is(err, game.ErrFleetIncomplete),
		errors.Is(err, app.ErrSessionClosed),
		errors.Is(err, app.ErrNotFinished):
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *app.Session)

// withSession resolves {id} to a live session or answers 404.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "unknown match id")
			return
		}
		sess, ok := s.Sessions.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown match id")
			return
		}
		h(w, r, sess)
	}
}

// === Matches ===

type createReq struct {
	Player string `json:"player"` // required, keys the stats records
	Mode   string `json:"mode"`   // classic (default) | competitive
	Tier   string `json:"tier"`   // easy (default) | medium | hard | expert
	Counts []int  `json:"counts"` // optional custom composition in library order
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	req.Player = strings.TrimSpace(req.Player)
	if req.Player == "" {
		writeError(w, http.StatusBadRequest, "player is required")
		return
	}
	if req.Mode == "" {
		req.Mode = string(game.Classic)
	}
	if req.Tier == "" {
		req.Tier = "easy"
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	preset, err := game.LookupPreset(req.Tier)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg := preset.Config()
	if req.Counts != nil {
		comp, err := game.CompositionFromCounts(req.Counts)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if cfg, err = preset.Custom(comp); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	sess, err := s.Sessions.Create(req.Player, cfg, mode)
	if err != nil {
		s.Log.Warn().Err(err).Str("tier", cfg.Tier).Msg("create match")
		writeError(w, errorCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess.Status())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	writeJSON(w, http.StatusOK, sess.Status())
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil || !s.Sessions.Discard(id) {
		writeError(w, http.StatusNotFound, "unknown match id")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Setup ===

type placeReq struct {
	Kind     string `json:"kind"`
	Row      int    `json:"row"`
	Col      int    `json:"col"`
	Rotation int    `json:"rotation"` // degrees clockwise
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	var req placeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	kind, err := game.ParseShipKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rot := game.Rotation(req.Rotation)
	if !rot.Valid() {
		writeError(w, http.StatusBadRequest, "rotation must be 0, 90, 180 or 270")
		return
	}
	ps, err := sess.PlaceShip(kind, req.Row, req.Col, rot)
	if err != nil {
		writeError(w, errorCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ship": ps, "status": sess.Status()})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	id, err := strconv.Atoi(r.PathValue("ship"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "ship id must be an integer")
		return
	}
	if err := sess.RemoveShip(id); err != nil {
		writeError(w, errorCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.Status())
}

func (s *Server) setupAction(fn func(*app.Session) error) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, sess *app.Session) {
		if err := fn(sess); err != nil {
			writeError(w, errorCode(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sess.Status())
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	text, err := sess.ExportField()
	if err != nil {
		writeError(w, errorCode(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="fleet`+codec.Extension+`"`)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, text)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFieldBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "field too large")
		return
	}
	if err := sess.ImportField(string(body)); err != nil {
		writeError(w, errorCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.Status())
}

// === Play ===

type fireReq struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type fireResp struct {
	Accepted bool       `json:"accepted"`
	Shot     *game.Shot `json:"shot,omitempty"`
	Status   app.Status `json:"status"`
}

// handleFire answers 200 for ignored shots too; accepted tells them apart.
func (s *Server) handleFire(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	var req fireReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	shot, ok := sess.Fire(req.Row, req.Col)
	resp := fireResp{Accepted: ok, Status: sess.Status()}
	if ok {
		resp.Shot = &shot
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	rev, err := sess.Reveal()
	if err != nil {
		writeError(w, errorCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// handleEvents streams a status snapshot after every change until the client
// goes away or the match is discarded.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case st, open := <-updates:
			if !open {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "match closed"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(st); err != nil {
				s.Log.Debug().Err(err).Str("session", st.ID).Msg("websocket write")
				return
			}
		}
	}
}

// === Stats ===

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.Stats == nil {
		writeError(w, http.StatusNotFound, "stats are disabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	recs, err := s.Stats.ListByPlayer(r.Context(), r.PathValue("player"), limit)
	if err != nil {
		s.Log.Error().Err(err).Msg("list stats")
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// === CORS ===

func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// In dev we allow any origin. For production, set this to the specific origin(s).
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithRequestLog logs one line per request.
func WithRequestLog(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("took", time.Since(start)).Msg("request")
	})
}
