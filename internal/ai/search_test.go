package ai

import (
	"context"
	"testing"
	"time"

	"github.com/gongahkia/mike/internal/shogi"
)

func TestSearchFindsMateInOne(t *testing.T) {
	p := barePosition(shogi.Sente, map[shogi.Square]shogi.Piece{
		{Row: 0, Col: 4}: {Type: shogi.King, Owner: shogi.Gote},
		{Row: 2, Col: 3}: {Type: shogi.Gold, Owner: shogi.Sente},
		{Row: 2, Col: 4}: {Type: shogi.King, Owner: shogi.Sente},
	})
	result, err := Search(context.Background(), p, SearchSettings{Depth: 2})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	want := shogi.Move{From: shogi.Square{Row: 2, Col: 3}, To: shogi.Square{Row: 1, Col: 4}}
	if result.Move != want {
		t.Fatalf("search chose %v, want mating move %v", result.Move, want)
	}
	if result.Score < winScore-100 {
		t.Fatalf("mate should score near winScore, got %d", result.Score)
	}
}

func TestSearchPrefersFasterMate(t *testing.T) {
	// Mate in one must outscore deeper mates: the mate score shrinks with
	// distance from the root.
	p := barePosition(shogi.Sente, map[shogi.Square]shogi.Piece{
		{Row: 0, Col: 4}: {Type: shogi.King, Owner: shogi.Gote},
		{Row: 2, Col: 3}: {Type: shogi.Gold, Owner: shogi.Sente},
		{Row: 2, Col: 4}: {Type: shogi.King, Owner: shogi.Sente},
	})
	result, err := Search(context.Background(), p, SearchSettings{Depth: 4})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if result.Score != winScore-1 {
		t.Fatalf("mate in one should score winScore-1, got %d", result.Score)
	}
}

func TestSearchNoLegalMove(t *testing.T) {
	p := barePosition(shogi.Gote, map[shogi.Square]shogi.Piece{
		{Row: 0, Col: 4}: {Type: shogi.King, Owner: shogi.Gote},
		{Row: 1, Col: 4}: {Type: shogi.Gold, Owner: shogi.Sente},
		{Row: 2, Col: 4}: {Type: shogi.King, Owner: shogi.Sente},
	})
	if _, err := Search(context.Background(), p, SearchSettings{Depth: 2}); err != ErrNoLegalMove {
		t.Fatalf("expected ErrNoLegalMove, got %v", err)
	}
}

func TestSearchDeterministic(t *testing.T) {
	first := func() SearchResult {
		p := shogi.NewPosition()
		result, err := Search(context.Background(), p, SearchSettings{Depth: 2, TT: NewTranspositionTable(1<<12, 2)})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		return result
	}
	a := first()
	b := first()
	if a.Move != b.Move || a.Score != b.Score || a.Depth != b.Depth {
		t.Fatalf("search is not deterministic: %+v vs %+v", a, b)
	}
}

func TestSearchReturnsLastCompletedDepthOnTimeout(t *testing.T) {
	p := shogi.NewPosition()
	stats := &SearchStats{Start: time.Now()}
	result, err := Search(context.Background(), p, SearchSettings{
		Depth:      50,
		TimeBudget: 50 * time.Millisecond,
		Stats:      stats,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !result.TimedOut {
		t.Fatalf("depth 50 cannot complete in 50ms")
	}
	if result.Depth < 1 {
		t.Fatalf("depth 1 must always complete, got %d", result.Depth)
	}
	if result.Depth != stats.CompletedDepths {
		t.Fatalf("result depth %d disagrees with completed depths %d", result.Depth, stats.CompletedDepths)
	}
	legal := p.AllLegalMoves()
	found := false
	for _, m := range legal {
		if m == result.Move {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("returned move %v is not legal", result.Move)
	}
}

func TestSearchLeavesPositionUntouched(t *testing.T) {
	p := shogi.NewPosition()
	hash := p.Hash
	ply := p.Ply
	if _, err := Search(context.Background(), p, SearchSettings{Depth: 2}); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if p.Hash != hash || p.Ply != ply {
		t.Fatalf("search must restore the position it was given")
	}
}

func TestSearchHonorsContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	p := shogi.NewPosition()
	start := time.Now()
	result, err := Search(ctx, p, SearchSettings{Depth: 50})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("search ignored the context deadline, ran %v", elapsed)
	}
	if !result.TimedOut {
		t.Fatalf("expected a timed out result")
	}
}

func TestTimedOutNodeStoresNothing(t *testing.T) {
	prev := timedOut
	calls := 0
	timedOut = func(sc *searchContext) bool {
		calls++
		return calls > 3
	}
	defer func() { timedOut = prev }()

	p := shogi.NewPosition()
	tt := NewTranspositionTable(1<<10, 2)
	sc := &searchContext{
		settings: SearchSettings{Depth: 3},
		player:   p.Turn,
		start:    time.Now(),
		killers:  make([][]shogi.Move, 8),
		tt:       tt,
	}

	// The deadline fires mid-loop, so every node on the stack breaks out
	// with a mix of real child scores and static evals.
	sc.minimax(p, 3, 0, -winScore*2, winScore*2)

	if _, ok := tt.Probe(p.Hash); ok {
		t.Fatalf("node cut off by the deadline stored an entry for its position")
	}
}
