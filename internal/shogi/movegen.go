package shogi

var (
	kingSteps   = [][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	goldSteps   = [][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, 0}}
	silverSteps = [][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {1, -1}, {1, 1}}
	knightSteps = [][2]int{{-2, -1}, {-2, 1}}

	orthoDirs = [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	diagDirs  = [][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
)

// PseudoMoves returns the movement-pattern destinations for the piece at sq:
// blockers are respected and own pieces cannot be captured, but the mover's
// king is allowed to remain in check.
func (p *Position) PseudoMoves(sq Square) []Square {
	piece := p.At(sq)
	if piece.IsEmpty() {
		return nil
	}
	var out []Square
	appendStep := func(dRow, dCol int) {
		if piece.Owner == Gote {
			dRow = -dRow
		}
		to := Square{Row: sq.Row + dRow, Col: sq.Col + dCol}
		if !to.Valid() {
			return
		}
		if target := p.At(to); !target.IsEmpty() && target.Owner == piece.Owner {
			return
		}
		out = append(out, to)
	}
	appendSlide := func(dRow, dCol int) {
		if piece.Owner == Gote {
			dRow = -dRow
		}
		to := Square{Row: sq.Row + dRow, Col: sq.Col + dCol}
		for to.Valid() {
			target := p.At(to)
			if target.IsEmpty() {
				out = append(out, to)
				to = Square{Row: to.Row + dRow, Col: to.Col + dCol}
				continue
			}
			if target.Owner != piece.Owner {
				out = append(out, to)
			}
			break
		}
	}

	switch {
	case piece.Type == King:
		for _, step := range kingSteps {
			appendStep(step[0], step[1])
		}
	case piece.movesAsGold():
		for _, step := range goldSteps {
			appendStep(step[0], step[1])
		}
	case piece.Type == Pawn:
		appendStep(-1, 0)
	case piece.Type == Knight:
		for _, step := range knightSteps {
			appendStep(step[0], step[1])
		}
	case piece.Type == Silver:
		for _, step := range silverSteps {
			appendStep(step[0], step[1])
		}
	case piece.Type == Lance:
		appendSlide(-1, 0)
	case piece.Type == Rook:
		for _, dir := range orthoDirs {
			appendSlide(dir[0], dir[1])
		}
		if piece.Promoted {
			for _, dir := range diagDirs {
				appendStep(dir[0], dir[1])
			}
		}
	case piece.Type == Bishop:
		for _, dir := range diagDirs {
			appendSlide(dir[0], dir[1])
		}
		if piece.Promoted {
			for _, dir := range orthoDirs {
				appendStep(dir[0], dir[1])
			}
		}
	}
	return out
}

// PseudoDrops returns the squares where the player to move could drop a
// piece of the given type: empty squares, minus squares the piece could
// never move from again and minus two-pawn files. Drops that leave the own
// king in check or deliver pawn-drop mate are filtered by LegalDrops.
func (p *Position) PseudoDrops(t PieceType) []Square {
	if p.HandCount(p.Turn, t) <= 0 {
		return nil
	}
	var out []Square
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			sq := Square{Row: row, Col: col}
			if !p.At(sq).IsEmpty() {
				continue
			}
			if mustPromote(t, p.Turn, sq) {
				continue
			}
			if t == Pawn && p.hasUnpromotedPawnOnFile(p.Turn, col) {
				continue
			}
			out = append(out, sq)
		}
	}
	return out
}

// attacks reports whether any piece of the player gives a pseudo-legal
// capture on target.
func (p *Position) attacks(player Player, target Square) bool {
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			piece := p.Board[row][col]
			if piece.IsEmpty() || piece.Owner != player {
				continue
			}
			for _, to := range p.PseudoMoves(Square{Row: row, Col: col}) {
				if to == target {
					return true
				}
			}
		}
	}
	return false
}

// Mobility counts pseudo-legal board moves for the player. Used by the
// evaluator; cheaper than the fully filtered move list.
func (p *Position) Mobility(player Player) int {
	count := 0
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			piece := p.Board[row][col]
			if piece.IsEmpty() || piece.Owner != player {
				continue
			}
			count += len(p.PseudoMoves(Square{Row: row, Col: col}))
		}
	}
	return count
}
