package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gongahkia/mike/internal/ai"
	"github.com/gongahkia/mike/internal/kifu"
	"github.com/gongahkia/mike/internal/shogi"
	"github.com/gongahkia/mike/internal/storage"
)

// Server wires the game registry, websocket hub and storage behind the API.
type Server struct {
	configStore *ConfigStore
	registry    *Registry
	hub         *Hub
	store       *storage.Storage
}

// New builds a Server. store may be nil, in which case finished games are
// not persisted.
func New(configStore *ConfigStore, registry *Registry, hub *Hub, store *storage.Storage) *Server {
	return &Server{
		configStore: configStore,
		registry:    registry,
		hub:         hub,
		store:       store,
	}
}

type pieceDTO struct {
	Type     string `json:"type"`
	Owner    string `json:"owner"`
	Promoted bool   `json:"promoted,omitempty"`
}

// StateResponse is the full game state pushed to clients.
type StateResponse struct {
	GameID     string                    `json:"game_id"`
	Board      [][]*pieceDTO             `json:"board"`
	Hands      map[string]map[string]int `json:"hands"`
	Turn       string                    `json:"turn"`
	Status     string                    `json:"status"`
	Winner     string                    `json:"winner,omitempty"`
	InCheck    bool                      `json:"in_check"`
	MoveCount  int                       `json:"move_count"`
	Repetition int                       `json:"repetition_count"`
	Difficulty string                    `json:"difficulty"`
}

type moveResultDTO struct {
	Move      shogi.Move `json:"move"`
	Score     int        `json:"score"`
	Depth     int        `json:"depth"`
	Nodes     int64      `json:"nodes"`
	ElapsedMs int64      `json:"elapsed_ms"`
	TimedOut  bool       `json:"timed_out"`
}

type gameSummaryDTO struct {
	ID         string `json:"id"`
	MoveCount  int    `json:"move_count"`
	Status     string `json:"status"`
	Difficulty string `json:"difficulty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func searchResultDTO(result ai.SearchResult) moveResultDTO {
	return moveResultDTO{
		Move:      result.Move,
		Score:     result.Score,
		Depth:     result.Depth,
		Nodes:     result.Nodes,
		ElapsedMs: result.Elapsed.Milliseconds(),
		TimedOut:  result.TimedOut,
	}
}

func positionState(id string, pos *shogi.Position, difficulty ai.Difficulty) StateResponse {
	board := make([][]*pieceDTO, shogi.BoardSize)
	for row := 0; row < shogi.BoardSize; row++ {
		board[row] = make([]*pieceDTO, shogi.BoardSize)
		for col := 0; col < shogi.BoardSize; col++ {
			piece := pos.At(shogi.Square{Row: row, Col: col})
			if piece.IsEmpty() {
				continue
			}
			board[row][col] = &pieceDTO{
				Type:     piece.Type.Letter(),
				Owner:    piece.Owner.String(),
				Promoted: piece.Promoted,
			}
		}
	}

	hands := make(map[string]map[string]int, 2)
	for _, player := range []shogi.Player{shogi.Sente, shogi.Gote} {
		hand := make(map[string]int)
		for t := shogi.Pawn; t <= shogi.Rook; t++ {
			if n := pos.HandCount(player, t); n > 0 {
				hand[t.Letter()] = n
			}
		}
		hands[player.String()] = hand
	}

	outcome := pos.Outcome()
	state := StateResponse{
		GameID:     id,
		Board:      board,
		Hands:      hands,
		Turn:       pos.Turn.String(),
		Status:     outcome.Status.String(),
		InCheck:    pos.InCheck(pos.Turn),
		MoveCount:  pos.Ply,
		Repetition: pos.RepetitionCount(),
		Difficulty: string(difficulty),
	}
	if outcome.Status == shogi.StatusCheckmate {
		state.Winner = outcome.Winner.String()
	}
	return state
}

func (s *Server) sessionState(session *GameSession) StateResponse {
	var state StateResponse
	_ = session.withLock(func(pos *shogi.Position, engine *ai.Engine) error {
		state = positionState(session.id, pos, engine.Difficulty())
		return nil
	})
	return state
}

// Router builds the chi handler with the full API surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Post("/api/game/new", s.handleNewGame)
	r.Get("/api/games", s.handleListGames)

	r.Get("/api/stats", s.handleStats)
	r.Get("/api/preferences", s.handleGetPreferences)
	r.Put("/api/preferences", s.handleUpdatePreferences)
	r.Get("/api/records", s.handleRecords)
	r.Get("/api/records/{id}", s.handleRecord)
	r.Get("/api/config", s.handleGetConfig)
	r.Put("/api/config", s.handleUpdateConfig)

	r.Route("/api/game/{id}", func(r chi.Router) {
		r.Get("/state", s.withSession(s.handleState))
		r.Post("/move", s.withSession(s.handleMove))
		r.Post("/drop", s.withSession(s.handleDrop))
		r.Get("/legal-moves", s.withSession(s.handleLegalMoves))
		r.Get("/drop-squares", s.withSession(s.handleDropSquares))
		r.Post("/ai-move", s.withSession(s.handleAIMove))
		r.Get("/analysis", s.withSession(s.handleAnalysis))
		r.Get("/suggest", s.withSession(s.handleSuggest))
		r.Put("/difficulty", s.withSession(s.handleDifficulty))
		r.Get("/history", s.withSession(s.handleHistory))
		r.Delete("/", s.handleDeleteGame)
	})

	r.Get("/ws/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.serveWS(w, r, chi.URLParam(r, "id"))
	})

	return r
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, session *GameSession)

func (s *Server) withSession(fn sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.registry.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		fn(w, r, session)
	}
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Difficulty string `json:"difficulty"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	difficulty := ai.Difficulty(req.Difficulty)
	if req.Difficulty == "" {
		difficulty = s.defaultDifficulty()
	}

	session, err := s.registry.Create(difficulty)
	if err != nil {
		if errors.Is(err, ErrTooManyGames) {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.sessionState(session))
}

// defaultDifficulty prefers the saved user preference, falling back to the
// server config when no store is attached.
func (s *Server) defaultDifficulty() ai.Difficulty {
	if s.store != nil {
		if prefs, err := s.store.LoadPreferences(); err == nil && prefs.Difficulty != "" {
			return ai.Difficulty(prefs.Difficulty)
		}
	}
	return ai.Difficulty(s.configStore.Get().DefaultDifficulty)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	summaries := make([]gameSummaryDTO, 0, s.registry.Len())
	for _, id := range s.registry.IDs() {
		session, err := s.registry.Get(id)
		if err != nil {
			continue
		}
		state := s.sessionState(session)
		summaries = append(summaries, gameSummaryDTO{
			ID:         id,
			MoveCount:  state.MoveCount,
			Status:     state.Status,
			Difficulty: state.Difficulty,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": summaries})
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if !s.registry.Remove(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, ErrGameNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, session *GameSession) {
	writeJSON(w, http.StatusOK, s.sessionState(session))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request, session *GameSession) {
	var move shogi.Move
	if err := json.NewDecoder(r.Body).Decode(&move); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	move.Drop = shogi.NoPiece
	s.applyMove(w, session, move)
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request, session *GameSession) {
	var req struct {
		Piece string       `json:"piece"`
		To    shogi.Square `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	t, ok := shogi.ParsePieceType(req.Piece)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("unknown piece type"))
		return
	}
	s.applyMove(w, session, shogi.Move{To: req.To, Drop: t})
}

func (s *Server) applyMove(w http.ResponseWriter, session *GameSession, move shogi.Move) {
	var state StateResponse
	err := session.withLock(func(pos *shogi.Position, engine *ai.Engine) error {
		if pos.Outcome().Status != shogi.StatusOngoing {
			return shogi.ErrIllegalMove
		}
		if _, err := pos.Apply(move); err != nil {
			return err
		}
		state = positionState(session.id, pos, engine.Difficulty())
		return nil
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.afterMove(session, state)
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleAIMove(w http.ResponseWriter, r *http.Request, session *GameSession) {
	var result ai.SearchResult
	var state StateResponse
	err := session.withLock(func(pos *shogi.Position, engine *ai.Engine) error {
		if pos.Outcome().Status != shogi.StatusOngoing {
			return ai.ErrNoLegalMove
		}
		chosen, err := engine.ChooseMove(r.Context(), pos)
		if err != nil {
			return err
		}
		if _, err := pos.Apply(chosen.Move); err != nil {
			return err
		}
		result = chosen
		state = positionState(session.id, pos, engine.Difficulty())
		return nil
	})
	if err != nil {
		if errors.Is(err, ai.ErrNoLegalMove) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.afterMove(session, state)
	writeJSON(w, http.StatusOK, map[string]any{
		"result": searchResultDTO(result),
		"state":  state,
	})
}

func (s *Server) handleLegalMoves(w http.ResponseWriter, r *http.Request, session *GameSession) {
	row, errRow := strconv.Atoi(r.URL.Query().Get("row"))
	col, errCol := strconv.Atoi(r.URL.Query().Get("col"))
	if errRow != nil || errCol != nil {
		writeError(w, http.StatusBadRequest, errors.New("row and col query parameters required"))
		return
	}
	sq := shogi.Square{Row: row, Col: col}
	if !sq.Valid() {
		writeError(w, http.StatusBadRequest, errors.New("square out of range"))
		return
	}

	var moves []shogi.Move
	_ = session.withLock(func(pos *shogi.Position, engine *ai.Engine) error {
		moves = pos.LegalMoves(sq)
		return nil
	})
	if moves == nil {
		moves = []shogi.Move{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"moves": moves})
}

func (s *Server) handleDropSquares(w http.ResponseWriter, r *http.Request, session *GameSession) {
	t, ok := shogi.ParsePieceType(r.URL.Query().Get("piece"))
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("unknown piece type"))
		return
	}

	var squares []shogi.Square
	_ = session.withLock(func(pos *shogi.Position, engine *ai.Engine) error {
		squares = pos.LegalDropSquares(t)
		return nil
	})
	if squares == nil {
		squares = []shogi.Square{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"squares": squares})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request, session *GameSession) {
	var analysis ai.Analysis
	err := session.withLock(func(pos *shogi.Position, engine *ai.Engine) error {
		var analyzeErr error
		analysis, analyzeErr = engine.Analyze(r.Context(), pos)
		return analyzeErr
	})
	if err != nil && !errors.Is(err, ai.ErrNoLegalMove) {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request, session *GameSession) {
	var result ai.SearchResult
	err := session.withLock(func(pos *shogi.Position, engine *ai.Engine) error {
		var searchErr error
		result, searchErr = engine.Suggest(r.Context(), pos)
		return searchErr
	})
	if err != nil {
		if errors.Is(err, ai.ErrNoLegalMove) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResultDTO(result))
}

func (s *Server) handleDifficulty(w http.ResponseWriter, r *http.Request, session *GameSession) {
	var req struct {
		Difficulty string `json:"difficulty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := session.withLock(func(pos *shogi.Position, engine *ai.Engine) error {
		return engine.SetDifficulty(ai.Difficulty(req.Difficulty))
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionState(session))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, session *GameSession) {
	var lines []string
	err := session.withLock(func(pos *shogi.Position, engine *ai.Engine) error {
		var kifuErr error
		lines, kifuErr = kifu.Lines(pos.Moves)
		return kifuErr
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"moves": lines})
}

var errStoreUnavailable = errors.New("storage unavailable")

// requireStore rejects persistence endpoints while running without a store.
func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, errStoreUnavailable)
		return false
	}
	return true
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	stats, err := s.store.LoadStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":    stats,
		"win_rate": stats.WinRate(),
	})
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	prefs, err := s.store.LoadPreferences()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	prefs, err := s.store.LoadPreferences()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(prefs); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.SavePreferences(prefs); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	records, err := s.store.ListGames(s.configStore.Get().HistoryLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []*storage.GameRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	rec, err := s.store.LoadGame(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configStore.Get())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.configStore.Get()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.configStore.Update(cfg)
	writeJSON(w, http.StatusOK, cfg)
}

// afterMove publishes the new state and, once a game finishes, persists the
// record and result.
func (s *Server) afterMove(session *GameSession, state StateResponse) {
	s.hub.PublishState(session.id, state)
	if state.Status == "ongoing" {
		return
	}
	s.recordFinished(session, state)
}

func (s *Server) recordFinished(session *GameSession, state StateResponse) {
	if s.store == nil {
		return
	}

	var export string
	var duration time.Duration
	_ = session.withLock(func(pos *shogi.Position, engine *ai.Engine) error {
		text, err := kifu.Export("Player", "Engine", pos.Moves, pos.Outcome())
		if err == nil {
			export = text
		}
		duration = time.Since(session.startedAt)
		return nil
	})

	rec := &storage.GameRecord{
		ID:         session.id,
		Difficulty: state.Difficulty,
		Winner:     state.Winner,
		Plies:      state.MoveCount,
		Kifu:       export,
	}
	if state.Status == "draw" {
		rec.Winner = "draw"
	}
	if err := s.store.SaveGame(rec); err != nil {
		log.Printf("[server] save game %s: %v", session.id, err)
	}

	result := storage.Result{
		Won:        state.Winner == shogi.Sente.String(),
		Draw:       state.Status == "draw",
		Difficulty: state.Difficulty,
		Duration:   duration,
	}
	if err := s.store.RecordResult(result); err != nil {
		log.Printf("[server] record result for %s: %v", session.id, err)
	}
}
