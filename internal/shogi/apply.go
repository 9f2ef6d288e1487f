package shogi

import (
	"errors"
	"fmt"
)

// ErrIllegalMove is returned by Apply when the move is not legal in the
// current position. The wrapped message carries the reason.
var ErrIllegalMove = errors.New("illegal move")

func illegalMovef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrIllegalMove}, args...)...)
}

// Apply validates the move for the side to move, mutates the position and
// returns the record needed to undo it. The hash and repetition counters
// are updated incrementally.
func (p *Position) Apply(m Move) (UndoRecord, error) {
	if !m.To.Valid() {
		return UndoRecord{}, illegalMovef("target square %s off board", m.To)
	}
	if m.IsDrop() {
		return p.applyDrop(m)
	}
	return p.applyBoardMove(m)
}

func (p *Position) applyBoardMove(m Move) (UndoRecord, error) {
	if !m.From.Valid() {
		return UndoRecord{}, illegalMovef("source square %s off board", m.From)
	}
	piece := p.At(m.From)
	if piece.IsEmpty() {
		return UndoRecord{}, illegalMovef("no piece on %s", m.From)
	}
	if piece.Owner != p.Turn {
		return UndoRecord{}, illegalMovef("piece on %s belongs to %s", m.From, piece.Owner)
	}
	found := false
	for _, to := range p.PseudoMoves(m.From) {
		if to == m.To {
			found = true
			break
		}
	}
	if !found {
		return UndoRecord{}, illegalMovef("%s cannot reach %s from %s", piece.Type, m.To, m.From)
	}
	if m.Promote {
		if !piece.Type.CanPromote() || piece.Promoted {
			return UndoRecord{}, illegalMovef("%s cannot promote", piece.Type)
		}
		if !InPromotionZone(piece.Owner, m.From) && !InPromotionZone(piece.Owner, m.To) {
			return UndoRecord{}, illegalMovef("promotion outside the promotion zone")
		}
	}
	undo := p.ApplyUnchecked(m)
	if p.InCheck(piece.Owner) {
		p.Undo(undo)
		return UndoRecord{}, illegalMovef("king would remain in check")
	}
	return undo, nil
}

func (p *Position) applyDrop(m Move) (UndoRecord, error) {
	if m.Promote {
		return UndoRecord{}, illegalMovef("drops cannot promote")
	}
	if p.HandCount(p.Turn, m.Drop) <= 0 {
		return UndoRecord{}, illegalMovef("no %s in hand", m.Drop)
	}
	if !p.At(m.To).IsEmpty() {
		return UndoRecord{}, illegalMovef("square %s is occupied", m.To)
	}
	if mustPromote(m.Drop, p.Turn, m.To) {
		return UndoRecord{}, illegalMovef("%s dropped on %s could never move", m.Drop, m.To)
	}
	if m.Drop == Pawn && p.hasUnpromotedPawnOnFile(p.Turn, m.To.Col) {
		return UndoRecord{}, illegalMovef("two unpromoted pawns on file %d", m.To.Col)
	}
	mover := p.Turn
	undo := p.ApplyUnchecked(m)
	if p.InCheck(mover) {
		p.Undo(undo)
		return UndoRecord{}, illegalMovef("king would remain in check")
	}
	if m.Drop == Pawn && p.IsCheckmate(mover.Opponent()) {
		p.Undo(undo)
		return UndoRecord{}, illegalMovef("pawn drop delivers mate")
	}
	return undo, nil
}

// ApplyUnchecked mutates the position without legality checks. The caller
// must pass a pseudo-legal move, normally one produced by AllLegalMoves.
func (p *Position) ApplyUnchecked(m Move) UndoRecord {
	undo := UndoRecord{Move: m, PrevHash: p.Hash}
	if m.IsDrop() {
		mover := p.Turn
		count := p.Hands[mover][m.Drop]
		p.Hash ^= handHash(mover, m.Drop, count)
		p.Hands[mover][m.Drop] = count - 1
		p.Hash ^= handHash(mover, m.Drop, count-1)
		dropped := Piece{Type: m.Drop, Owner: mover}
		p.Board[m.To.Row][m.To.Col] = dropped
		p.Hash ^= zobrist.piece(m.To, dropped)
		undo.Moved = dropped
	} else {
		piece := p.At(m.From)
		undo.Moved = piece
		p.Hash ^= zobrist.piece(m.From, piece)
		p.Board[m.From.Row][m.From.Col] = Piece{}
		captured := p.At(m.To)
		if !captured.IsEmpty() {
			undo.Captured = captured
			p.Hash ^= zobrist.piece(m.To, captured)
			count := p.Hands[piece.Owner][captured.Type]
			p.Hash ^= handHash(piece.Owner, captured.Type, count)
			p.Hands[piece.Owner][captured.Type] = count + 1
			p.Hash ^= handHash(piece.Owner, captured.Type, count+1)
		}
		if !piece.Promoted && (m.Promote || mustPromote(piece.Type, piece.Owner, m.To)) {
			piece.Promoted = true
			undo.Move.Promote = true
		}
		p.Board[m.To.Row][m.To.Col] = piece
		p.Hash ^= zobrist.piece(m.To, piece)
	}
	p.Hash ^= zobrist.side
	p.Turn = p.Turn.Opponent()
	p.Ply++
	p.Moves = append(p.Moves, undo.Move)
	if p.seen == nil {
		p.seen = make(map[uint64]int)
	}
	p.seen[p.Hash]++
	return undo
}

// Undo restores the position that produced the record. Records must be
// undone LIFO; the restored position is bit-equal to the original.
func (p *Position) Undo(undo UndoRecord) {
	m := undo.Move
	if count := p.seen[p.Hash] - 1; count > 0 {
		p.seen[p.Hash] = count
	} else {
		delete(p.seen, p.Hash)
	}
	p.Turn = p.Turn.Opponent()
	p.Ply--
	p.Moves = p.Moves[:len(p.Moves)-1]
	if m.IsDrop() {
		p.Board[m.To.Row][m.To.Col] = Piece{}
		p.Hands[undo.Moved.Owner][m.Drop]++
	} else {
		p.Board[m.From.Row][m.From.Col] = undo.Moved
		p.Board[m.To.Row][m.To.Col] = undo.Captured
		if !undo.Captured.IsEmpty() {
			p.Hands[undo.Moved.Owner][undo.Captured.Type]--
		}
	}
	p.Hash = undo.PrevHash
}
