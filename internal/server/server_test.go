package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gongahkia/mike/internal/ai"
	"github.com/gongahkia/mike/internal/storage"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	srv := New(NewConfigStore(DefaultConfig()), NewRegistry(16), NewHub(), nil)
	return srv, srv.Router()
}

func newStoredServer(t *testing.T) (*Server, http.Handler, *storage.Storage) {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	srv := New(NewConfigStore(DefaultConfig()), NewRegistry(16), NewHub(), store)
	return srv, srv.Router(), store
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) StateResponse {
	t.Helper()
	var state StateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v (body %s)", err, rec.Body.String())
	}
	return state
}

func TestHealth(t *testing.T) {
	_, handler := newTestServer(t)
	rec := doJSON(t, handler, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestNewGameAndState(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/game/new", map[string]string{"difficulty": "easy"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("new game status = %d, body %s", rec.Code, rec.Body.String())
	}
	state := decodeState(t, rec)
	if state.GameID == "" {
		t.Fatalf("missing game id")
	}
	if state.Turn != "sente" || state.Status != "ongoing" || state.MoveCount != 0 {
		t.Fatalf("unexpected initial state: %+v", state)
	}
	if state.Difficulty != "easy" {
		t.Fatalf("difficulty = %q, want easy", state.Difficulty)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/game/"+state.GameID+"/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("state status = %d", rec.Code)
	}
}

func TestNewGameRejectsUnknownDifficulty(t *testing.T) {
	_, handler := newTestServer(t)
	rec := doJSON(t, handler, http.MethodPost, "/api/game/new", map[string]string{"difficulty": "impossible"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestMoveAndIllegalMove(t *testing.T) {
	_, handler := newTestServer(t)
	state := decodeState(t, doJSON(t, handler, http.MethodPost, "/api/game/new", nil))

	move := map[string]any{
		"from": map[string]int{"row": 6, "col": 4},
		"to":   map[string]int{"row": 5, "col": 4},
	}
	rec := doJSON(t, handler, http.MethodPost, "/api/game/"+state.GameID+"/move", move)
	if rec.Code != http.StatusOK {
		t.Fatalf("move status = %d, body %s", rec.Code, rec.Body.String())
	}
	after := decodeState(t, rec)
	if after.Turn != "gote" || after.MoveCount != 1 {
		t.Fatalf("state after move: %+v", after)
	}

	// Sente already moved, so replaying the same move is out of turn.
	rec = doJSON(t, handler, http.MethodPost, "/api/game/"+state.GameID+"/move", move)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("illegal move status = %d, want 422", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error == "" {
		t.Fatalf("expected error body, got %s", rec.Body.String())
	}
}

func TestLegalMovesEndpoint(t *testing.T) {
	_, handler := newTestServer(t)
	state := decodeState(t, doJSON(t, handler, http.MethodPost, "/api/game/new", nil))

	rec := doJSON(t, handler, http.MethodGet, "/api/game/"+state.GameID+"/legal-moves?row=6&col=4", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("legal-moves status = %d", rec.Code)
	}
	var resp struct {
		Moves []json.RawMessage `json:"moves"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Moves) != 1 {
		t.Fatalf("pawn has %d legal moves, want 1", len(resp.Moves))
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/game/"+state.GameID+"/legal-moves?row=99&col=0", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out of range square status = %d, want 400", rec.Code)
	}
}

func TestDropSquaresEndpoint(t *testing.T) {
	_, handler := newTestServer(t)
	state := decodeState(t, doJSON(t, handler, http.MethodPost, "/api/game/new", nil))

	// No pieces in hand at the start of a game.
	rec := doJSON(t, handler, http.MethodGet, "/api/game/"+state.GameID+"/drop-squares?piece=P", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("drop-squares status = %d", rec.Code)
	}
	var resp struct {
		Squares []json.RawMessage `json:"squares"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Squares) != 0 {
		t.Fatalf("drop squares with empty hand = %d, want 0", len(resp.Squares))
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/game/"+state.GameID+"/drop-squares?piece=X", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown piece status = %d, want 400", rec.Code)
	}
}

func TestAIMoveEndpoint(t *testing.T) {
	_, handler := newTestServer(t)
	state := decodeState(t, doJSON(t, handler, http.MethodPost, "/api/game/new", map[string]string{"difficulty": "easy"}))

	rec := doJSON(t, handler, http.MethodPost, "/api/game/"+state.GameID+"/ai-move", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ai-move status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Result moveResultDTO `json:"result"`
		State  StateResponse `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State.MoveCount != 1 || resp.State.Turn != "gote" {
		t.Fatalf("state after ai move: %+v", resp.State)
	}
}

func TestDifficultyUpdate(t *testing.T) {
	_, handler := newTestServer(t)
	state := decodeState(t, doJSON(t, handler, http.MethodPost, "/api/game/new", nil))

	rec := doJSON(t, handler, http.MethodPut, "/api/game/"+state.GameID+"/difficulty", map[string]string{"difficulty": "hard"})
	if rec.Code != http.StatusOK {
		t.Fatalf("difficulty status = %d", rec.Code)
	}
	if got := decodeState(t, rec).Difficulty; got != "hard" {
		t.Fatalf("difficulty = %q, want hard", got)
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/game/"+state.GameID+"/difficulty", map[string]string{"difficulty": "nope"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown difficulty status = %d, want 422", rec.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	_, handler := newTestServer(t)
	state := decodeState(t, doJSON(t, handler, http.MethodPost, "/api/game/new", nil))

	move := map[string]any{
		"from": map[string]int{"row": 6, "col": 6},
		"to":   map[string]int{"row": 5, "col": 6},
	}
	if rec := doJSON(t, handler, http.MethodPost, "/api/game/"+state.GameID+"/move", move); rec.Code != http.StatusOK {
		t.Fatalf("move status = %d", rec.Code)
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/game/"+state.GameID+"/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	var resp struct {
		Moves []string `json:"moves"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Moves) != 1 {
		t.Fatalf("history has %d moves, want 1", len(resp.Moves))
	}
}

func TestAnalysisEndpoint(t *testing.T) {
	_, handler := newTestServer(t)
	state := decodeState(t, doJSON(t, handler, http.MethodPost, "/api/game/new", map[string]string{"difficulty": "easy"}))

	rec := doJSON(t, handler, http.MethodGet, "/api/game/"+state.GameID+"/analysis", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analysis status = %d", rec.Code)
	}
	var analysis ai.Analysis
	if err := json.Unmarshal(rec.Body.Bytes(), &analysis); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if analysis.Legal != 30 {
		t.Fatalf("legal moves = %d, want 30", analysis.Legal)
	}
}

func TestListAndDeleteGames(t *testing.T) {
	_, handler := newTestServer(t)
	state := decodeState(t, doJSON(t, handler, http.MethodPost, "/api/game/new", nil))

	rec := doJSON(t, handler, http.MethodGet, "/api/games", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var resp struct {
		Games []gameSummaryDTO `json:"games"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Games) != 1 || resp.Games[0].ID != state.GameID {
		t.Fatalf("unexpected list: %+v", resp.Games)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/game/"+state.GameID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/game/"+state.GameID+"/state", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("state after delete status = %d, want 404", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	_, handler, store := newStoredServer(t)

	results := []storage.Result{
		{Won: true, Difficulty: "medium", Duration: time.Minute},
		{Difficulty: "medium", Duration: time.Minute},
	}
	for _, result := range results {
		if err := store.RecordResult(result); err != nil {
			t.Fatalf("RecordResult: %v", err)
		}
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Stats   storage.Stats `json:"stats"`
		WinRate float64       `json:"win_rate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stats.GamesPlayed != 2 || resp.Stats.Wins != 1 {
		t.Fatalf("stats = %+v", resp.Stats)
	}
	if resp.WinRate != 50 {
		t.Fatalf("win rate = %v, want 50", resp.WinRate)
	}
}

func TestStatsWithoutStore(t *testing.T) {
	_, handler := newTestServer(t)
	rec := doJSON(t, handler, http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("stats without store status = %d, want 503", rec.Code)
	}
}

func TestRecordsEndpoints(t *testing.T) {
	_, handler, store := newStoredServer(t)

	for _, id := range []string{"g1", "g2"} {
		if err := store.SaveGame(&storage.GameRecord{ID: id, Difficulty: "easy", Winner: "sente", Plies: 10}); err != nil {
			t.Fatalf("SaveGame %s: %v", id, err)
		}
		time.Sleep(time.Millisecond)
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/records", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("records status = %d", rec.Code)
	}
	var resp struct {
		Records []storage.GameRecord `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Records) != 2 || resp.Records[0].ID != "g2" {
		t.Fatalf("records = %+v", resp.Records)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/records/g1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("record status = %d", rec.Code)
	}
	var single storage.GameRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &single); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if single.ID != "g1" || single.Plies != 10 {
		t.Fatalf("record = %+v", single)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/records/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing record status = %d, want 404", rec.Code)
	}
}

func TestConfigHistoryLimitCapsRecords(t *testing.T) {
	_, handler, store := newStoredServer(t)

	for _, id := range []string{"g1", "g2", "g3"} {
		if err := store.SaveGame(&storage.GameRecord{ID: id}); err != nil {
			t.Fatalf("SaveGame %s: %v", id, err)
		}
		time.Sleep(time.Millisecond)
	}

	rec := doJSON(t, handler, http.MethodPut, "/api/config", map[string]int{"history_limit": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("config update status = %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/config", nil)
	var cfg Config
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.HistoryLimit != 1 || cfg.Addr != DefaultConfig().Addr {
		t.Fatalf("config after update = %+v", cfg)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/records", nil)
	var resp struct {
		Records []storage.GameRecord `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Records) != 1 || resp.Records[0].ID != "g3" {
		t.Fatalf("capped records = %+v", resp.Records)
	}
}

func TestPreferencesFeedDefaultDifficulty(t *testing.T) {
	_, handler, _ := newStoredServer(t)

	rec := doJSON(t, handler, http.MethodPut, "/api/preferences", map[string]any{"difficulty": "hard", "player_name": "Aki"})
	if rec.Code != http.StatusOK {
		t.Fatalf("preferences update status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/preferences", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preferences status = %d", rec.Code)
	}
	var prefs storage.Preferences
	if err := json.Unmarshal(rec.Body.Bytes(), &prefs); err != nil {
		t.Fatalf("decode preferences: %v", err)
	}
	if prefs.Difficulty != "hard" || prefs.PlayerName != "Aki" {
		t.Fatalf("preferences = %+v", prefs)
	}
	// Defaults survive a partial update.
	if !prefs.ShowHints {
		t.Fatalf("show_hints reset by partial update")
	}

	// A new game without an explicit difficulty picks up the preference.
	state := decodeState(t, doJSON(t, handler, http.MethodPost, "/api/game/new", nil))
	if state.Difficulty != "hard" {
		t.Fatalf("default difficulty = %q, want hard", state.Difficulty)
	}
}

func TestRegistryLimit(t *testing.T) {
	registry := NewRegistry(1)
	if _, err := registry.Create(ai.Easy); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := registry.Create(ai.Easy); err != ErrTooManyGames {
		t.Fatalf("second Create err = %v, want ErrTooManyGames", err)
	}
}
