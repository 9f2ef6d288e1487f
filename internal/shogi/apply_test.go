package shogi

import "testing"

func testPosition(t *testing.T, turn Player, pieces map[Square]Piece) *Position {
	t.Helper()
	p := &Position{Turn: turn, seen: make(map[uint64]int)}
	for sq, piece := range pieces {
		p.Board[sq.Row][sq.Col] = piece
	}
	p.Hash = computeHash(p)
	p.seen[p.Hash] = 1
	return p
}

func positionsEqual(a, b *Position) bool {
	if a.Board != b.Board || a.Hands != b.Hands || a.Turn != b.Turn {
		return false
	}
	if a.Hash != b.Hash || a.Ply != b.Ply || len(a.Moves) != len(b.Moves) {
		return false
	}
	if len(a.seen) != len(b.seen) {
		return false
	}
	for hash, count := range a.seen {
		if b.seen[hash] != count {
			return false
		}
	}
	return true
}

func TestApplyUndoRoundTrip(t *testing.T) {
	p := NewPosition()
	original := p.Clone()

	var undos []UndoRecord
	for i := 0; i < 20; i++ {
		moves := p.AllLegalMoves()
		if len(moves) == 0 {
			t.Fatalf("no legal moves at ply %d", i)
		}
		move := moves[i%len(moves)]
		undo, err := p.Apply(move)
		if err != nil {
			t.Fatalf("apply %v failed: %v", move, err)
		}
		if p.Hash != computeHash(p) {
			t.Fatalf("incremental hash diverged after %v", move)
		}
		undos = append(undos, undo)
	}
	for i := len(undos) - 1; i >= 0; i-- {
		p.Undo(undos[i])
	}
	if !positionsEqual(p, original) {
		t.Fatalf("position not restored after undoing all moves")
	}
}

func TestApplyUndoCapture(t *testing.T) {
	p := testPosition(t, Sente, map[Square]Piece{
		{Row: 8, Col: 4}: {Type: King, Owner: Sente},
		{Row: 0, Col: 4}: {Type: King, Owner: Gote},
		{Row: 4, Col: 2}: {Type: Rook, Owner: Sente},
		{Row: 4, Col: 6}: {Type: Silver, Owner: Gote, Promoted: true},
	})
	before := p.Clone()

	capture := Move{From: Square{Row: 4, Col: 2}, To: Square{Row: 4, Col: 6}}
	undo, err := p.Apply(capture)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if p.HandCount(Sente, Silver) != 1 {
		t.Fatalf("promoted silver should enter the hand as a silver, hand=%d", p.HandCount(Sente, Silver))
	}
	if p.Hash != computeHash(p) {
		t.Fatalf("hash mismatch after capture")
	}

	p.Undo(undo)
	if !positionsEqual(p, before) {
		t.Fatalf("position not restored after undoing capture")
	}
}

func TestApplyUndoDrop(t *testing.T) {
	p := testPosition(t, Sente, map[Square]Piece{
		{Row: 8, Col: 4}: {Type: King, Owner: Sente},
		{Row: 0, Col: 4}: {Type: King, Owner: Gote},
	})
	p.Hands[Sente][Silver] = 1
	p.Hash = computeHash(p)
	p.seen = map[uint64]int{p.Hash: 1}
	before := p.Clone()

	drop := Move{Drop: Silver, To: Square{Row: 5, Col: 5}}
	undo, err := p.Apply(drop)
	if err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	if p.HandCount(Sente, Silver) != 0 {
		t.Fatalf("hand not decremented by drop")
	}
	dropped := p.At(Square{Row: 5, Col: 5})
	if dropped.Type != Silver || dropped.Promoted {
		t.Fatalf("dropped piece should be an unpromoted silver, got %+v", dropped)
	}
	if p.Hash != computeHash(p) {
		t.Fatalf("hash mismatch after drop")
	}

	p.Undo(undo)
	if !positionsEqual(p, before) {
		t.Fatalf("position not restored after undoing drop")
	}
}

func TestForcedPromotion(t *testing.T) {
	p := testPosition(t, Sente, map[Square]Piece{
		{Row: 8, Col: 8}: {Type: King, Owner: Sente},
		{Row: 0, Col: 0}: {Type: King, Owner: Gote},
		{Row: 1, Col: 4}: {Type: Pawn, Owner: Sente},
	})
	moves := p.LegalMoves(Square{Row: 1, Col: 4})
	if len(moves) != 1 {
		t.Fatalf("expected a single forced move, got %d", len(moves))
	}
	if !moves[0].Promote {
		t.Fatalf("pawn reaching the last rank must promote")
	}

	// Promote flag left unset still promotes.
	undo, err := p.Apply(Move{From: Square{Row: 1, Col: 4}, To: Square{Row: 0, Col: 4}})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if piece := p.At(Square{Row: 0, Col: 4}); !piece.Promoted {
		t.Fatalf("pawn was not promoted on the last rank")
	}
	if !undo.Move.Promote {
		t.Fatalf("undo record should carry the forced promotion")
	}
	p.Undo(undo)
	if piece := p.At(Square{Row: 1, Col: 4}); piece.Promoted {
		t.Fatalf("undo should restore the unpromoted pawn")
	}
}

func TestPromotedPieceMoveNotRelabeled(t *testing.T) {
	p := testPosition(t, Sente, map[Square]Piece{
		{Row: 8, Col: 8}: {Type: King, Owner: Sente},
		{Row: 0, Col: 0}: {Type: King, Owner: Gote},
		{Row: 1, Col: 4}: {Type: Pawn, Owner: Sente, Promoted: true},
	})

	// A tokin stepping onto the last rank is not a fresh promotion; the move
	// must be recorded exactly as played.
	undo, err := p.Apply(Move{From: Square{Row: 1, Col: 4}, To: Square{Row: 0, Col: 4}})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if undo.Move.Promote {
		t.Fatalf("undo record relabeled a promoted piece's move as promoting")
	}
	if last := p.Moves[len(p.Moves)-1]; last.Promote {
		t.Fatalf("history relabeled a promoted piece's move as promoting")
	}
	if piece := p.At(Square{Row: 0, Col: 4}); !piece.Promoted || piece.Type != Pawn {
		t.Fatalf("tokin changed identity: %+v", piece)
	}

	p.Undo(undo)
	if piece := p.At(Square{Row: 1, Col: 4}); !piece.Promoted {
		t.Fatalf("undo should restore the tokin as promoted")
	}
}

func TestPromotionOutsideZoneIllegal(t *testing.T) {
	p := testPosition(t, Sente, map[Square]Piece{
		{Row: 8, Col: 8}: {Type: King, Owner: Sente},
		{Row: 0, Col: 0}: {Type: King, Owner: Gote},
		{Row: 6, Col: 4}: {Type: Silver, Owner: Sente},
	})
	_, err := p.Apply(Move{From: Square{Row: 6, Col: 4}, To: Square{Row: 5, Col: 4}, Promote: true})
	if err == nil {
		t.Fatalf("promotion outside the zone should be illegal")
	}
}

func TestRepetitionDraw(t *testing.T) {
	p := testPosition(t, Sente, map[Square]Piece{
		{Row: 8, Col: 4}: {Type: King, Owner: Sente},
		{Row: 0, Col: 4}: {Type: King, Owner: Gote},
	})
	cycle := []Move{
		{From: Square{Row: 8, Col: 4}, To: Square{Row: 8, Col: 3}},
		{From: Square{Row: 0, Col: 4}, To: Square{Row: 0, Col: 3}},
		{From: Square{Row: 8, Col: 3}, To: Square{Row: 8, Col: 4}},
		{From: Square{Row: 0, Col: 3}, To: Square{Row: 0, Col: 4}},
	}
	for round := 0; round < 3; round++ {
		if outcome := p.Outcome(); outcome.Status != StatusOngoing {
			t.Fatalf("unexpected outcome %v after %d rounds", outcome.Status, round)
		}
		for _, m := range cycle {
			if _, err := p.Apply(m); err != nil {
				t.Fatalf("apply %v failed: %v", m, err)
			}
		}
	}
	if p.RepetitionCount() != RepetitionLimit {
		t.Fatalf("repetition count = %d, want %d", p.RepetitionCount(), RepetitionLimit)
	}
	if outcome := p.Outcome(); outcome.Status != StatusDraw {
		t.Fatalf("expected repetition draw, got %v", outcome.Status)
	}
}
