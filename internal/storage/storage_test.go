package storage

import (
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPreferencesRoundTrip(t *testing.T) {
	s := openTestStorage(t)

	prefs, err := s.LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if prefs.Difficulty != "medium" || !prefs.ShowHints {
		t.Fatalf("unexpected defaults: %+v", prefs)
	}

	prefs.Difficulty = "hard"
	prefs.FlipBoard = true
	if err := s.SavePreferences(prefs); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}

	got, err := s.LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if got.Difficulty != "hard" || !got.FlipBoard {
		t.Fatalf("preferences not persisted: %+v", got)
	}
	if got.LastPlayed.IsZero() {
		t.Fatalf("LastPlayed not set on save")
	}
}

func TestRecordResultUpdatesStats(t *testing.T) {
	s := openTestStorage(t)

	results := []Result{
		{Won: true, Difficulty: "easy", Duration: time.Minute},
		{Won: true, Difficulty: "easy", Duration: time.Minute},
		{Draw: true, Difficulty: "medium", Duration: time.Minute},
		{Won: false, Difficulty: "hard", Duration: time.Minute},
	}
	for _, r := range results {
		if err := s.RecordResult(r); err != nil {
			t.Fatalf("RecordResult: %v", err)
		}
	}

	stats, err := s.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	if stats.GamesPlayed != 4 || stats.Wins != 2 || stats.Losses != 1 || stats.Draws != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.WinsByDiff["easy"] != 2 {
		t.Fatalf("WinsByDiff[easy] = %d, want 2", stats.WinsByDiff["easy"])
	}
	if stats.LongestWinStrk != 2 || stats.CurrentStreak != 0 {
		t.Fatalf("streaks = %d/%d, want 2/0", stats.LongestWinStrk, stats.CurrentStreak)
	}
	if got := stats.WinRate(); got != 50 {
		t.Fatalf("WinRate = %v, want 50", got)
	}
	if stats.TotalPlayTime != 4*time.Minute {
		t.Fatalf("TotalPlayTime = %v", stats.TotalPlayTime)
	}
}

func TestGameRecords(t *testing.T) {
	s := openTestStorage(t)

	recs := []*GameRecord{
		{ID: "a1", Difficulty: "easy", Winner: "sente", Plies: 40, Kifu: "kif a1", FinishedAt: time.Now().Add(-2 * time.Hour)},
		{ID: "b2", Difficulty: "hard", Winner: "gote", Plies: 88, Kifu: "kif b2", FinishedAt: time.Now().Add(-time.Hour)},
		{ID: "c3", Difficulty: "medium", Winner: "draw", Plies: 120, Kifu: "kif c3", FinishedAt: time.Now()},
	}
	for _, r := range recs {
		if err := s.SaveGame(r); err != nil {
			t.Fatalf("SaveGame(%s): %v", r.ID, err)
		}
	}

	got, err := s.LoadGame("b2")
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if got.Winner != "gote" || got.Plies != 88 || got.Kifu != "kif b2" {
		t.Fatalf("unexpected record: %+v", got)
	}

	if _, err := s.LoadGame("missing"); err != badger.ErrKeyNotFound {
		t.Fatalf("LoadGame(missing) err = %v, want ErrKeyNotFound", err)
	}

	list, err := s.ListGames(2)
	if err != nil {
		t.Fatalf("ListGames: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListGames returned %d records, want 2", len(list))
	}
	if list[0].ID != "c3" || list[1].ID != "b2" {
		t.Fatalf("unexpected order: %s, %s", list[0].ID, list[1].ID)
	}
}

func TestSaveGameStampsFinishedAt(t *testing.T) {
	s := openTestStorage(t)

	rec := &GameRecord{ID: "x", Difficulty: "easy", Winner: "sente"}
	if err := s.SaveGame(rec); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	got, err := s.LoadGame("x")
	if err != nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if got.FinishedAt.IsZero() {
		t.Fatalf("FinishedAt not stamped")
	}
}
