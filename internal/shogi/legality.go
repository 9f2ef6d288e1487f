package shogi

// InCheck reports whether the player's king is attacked.
func (p *Position) InCheck(player Player) bool {
	king, ok := p.KingSquare(player)
	if !ok {
		return false
	}
	return p.attacks(player.Opponent(), king)
}

// LegalMoves returns the legal board moves for the piece on sq, including
// both the promoting and non-promoting variant where the mover may choose.
func (p *Position) LegalMoves(sq Square) []Move {
	piece := p.At(sq)
	if piece.IsEmpty() || piece.Owner != p.Turn {
		return nil
	}
	var out []Move
	for _, to := range p.PseudoMoves(sq) {
		for _, m := range moveVariants(piece, sq, to) {
			if p.moveEscapesCheck(m, piece.Owner) {
				out = append(out, m)
			}
		}
	}
	return out
}

// moveVariants expands a destination into the promotion choices available
// to the piece. Forced promotions yield a single promoting move.
func moveVariants(piece Piece, from, to Square) []Move {
	base := Move{From: from, To: to}
	if piece.Promoted || !piece.Type.CanPromote() {
		return []Move{base}
	}
	if mustPromote(piece.Type, piece.Owner, to) {
		base.Promote = true
		return []Move{base}
	}
	if InPromotionZone(piece.Owner, from) || InPromotionZone(piece.Owner, to) {
		promoting := base
		promoting.Promote = true
		return []Move{base, promoting}
	}
	return []Move{base}
}

func (p *Position) moveEscapesCheck(m Move, mover Player) bool {
	undo := p.ApplyUnchecked(m)
	safe := !p.InCheck(mover)
	p.Undo(undo)
	return safe
}

// LegalDropSquares returns where the side to move may legally drop a piece
// of the given type. Pawn drops that would deliver immediate checkmate are
// excluded.
func (p *Position) LegalDropSquares(t PieceType) []Square {
	var out []Square
	for _, sq := range p.PseudoDrops(t) {
		if p.legalDrop(t, sq) {
			out = append(out, sq)
		}
	}
	return out
}

func (p *Position) legalDrop(t PieceType, sq Square) bool {
	mover := p.Turn
	undo := p.ApplyUnchecked(Move{Drop: t, To: sq})
	ok := !p.InCheck(mover)
	if ok && t == Pawn && p.IsCheckmate(mover.Opponent()) {
		ok = false
	}
	p.Undo(undo)
	return ok
}

// AllLegalMoves returns every legal board move and drop for the side to
// move.
func (p *Position) AllLegalMoves() []Move {
	var out []Move
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			sq := Square{Row: row, Col: col}
			if piece := p.At(sq); !piece.IsEmpty() && piece.Owner == p.Turn {
				out = append(out, p.LegalMoves(sq)...)
			}
		}
	}
	for t := Pawn; t < King; t++ {
		if p.HandCount(p.Turn, t) <= 0 {
			continue
		}
		for _, sq := range p.LegalDropSquares(t) {
			out = append(out, Move{Drop: t, To: sq})
		}
	}
	return out
}

func (p *Position) hasAnyLegalMove() bool {
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			sq := Square{Row: row, Col: col}
			piece := p.At(sq)
			if piece.IsEmpty() || piece.Owner != p.Turn {
				continue
			}
			for _, to := range p.PseudoMoves(sq) {
				for _, m := range moveVariants(piece, sq, to) {
					if p.moveEscapesCheck(m, piece.Owner) {
						return true
					}
				}
			}
		}
	}
	for t := Pawn; t < King; t++ {
		if p.HandCount(p.Turn, t) <= 0 {
			continue
		}
		for _, sq := range p.PseudoDrops(t) {
			mover := p.Turn
			undo := p.ApplyUnchecked(Move{Drop: t, To: sq})
			safe := !p.InCheck(mover)
			p.Undo(undo)
			if safe {
				return true
			}
		}
	}
	return false
}

// IsCheckmate reports whether the player is in check with no legal reply.
func (p *Position) IsCheckmate(player Player) bool {
	if !p.InCheck(player) {
		return false
	}
	if p.Turn != player {
		clone := p.Clone()
		clone.Turn = player
		clone.Hash = computeHash(clone)
		return !clone.hasAnyLegalMove()
	}
	return !p.hasAnyLegalMove()
}

type Status int

const (
	StatusOngoing Status = iota
	StatusCheckmate
	StatusDraw
)

func (s Status) String() string {
	switch s {
	case StatusCheckmate:
		return "checkmate"
	case StatusDraw:
		return "draw"
	default:
		return "ongoing"
	}
}

type GameOutcome struct {
	Status Status
	Winner Player
}

// Outcome reports whether the side to move has been checkmated or the
// position has repeated to a draw.
func (p *Position) Outcome() GameOutcome {
	if p.IsCheckmate(p.Turn) {
		return GameOutcome{Status: StatusCheckmate, Winner: p.Turn.Opponent()}
	}
	if p.RepetitionCount() >= RepetitionLimit {
		return GameOutcome{Status: StatusDraw}
	}
	return GameOutcome{Status: StatusOngoing}
}
