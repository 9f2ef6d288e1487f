package shogi

import "strings"

const BoardSize = 9

// RepetitionLimit is how many times the same position (board, hands and
// side to move) must occur before the game is a draw.
const RepetitionLimit = 4

type Position struct {
	Board [BoardSize][BoardSize]Piece
	Hands [2][King + 1]int
	Turn  Player
	Hash  uint64
	Ply   int
	Moves []Move

	seen map[uint64]int
}

// NewPosition returns the standard initial setup with Sente to move.
func NewPosition() *Position {
	p := &Position{seen: make(map[uint64]int)}
	backRank := [BoardSize]PieceType{Lance, Knight, Silver, Gold, King, Gold, Silver, Knight, Lance}
	for col := 0; col < BoardSize; col++ {
		p.Board[0][col] = Piece{Type: backRank[col], Owner: Gote}
		p.Board[2][col] = Piece{Type: Pawn, Owner: Gote}
		p.Board[6][col] = Piece{Type: Pawn, Owner: Sente}
		p.Board[8][col] = Piece{Type: backRank[col], Owner: Sente}
	}
	p.Board[1][1] = Piece{Type: Bishop, Owner: Gote}
	p.Board[1][7] = Piece{Type: Rook, Owner: Gote}
	p.Board[7][1] = Piece{Type: Rook, Owner: Sente}
	p.Board[7][7] = Piece{Type: Bishop, Owner: Sente}
	p.Turn = Sente
	p.Hash = computeHash(p)
	p.seen[p.Hash] = 1
	return p
}

func (p *Position) Clone() *Position {
	clone := &Position{
		Board: p.Board,
		Hands: p.Hands,
		Turn:  p.Turn,
		Hash:  p.Hash,
		Ply:   p.Ply,
		Moves: append([]Move(nil), p.Moves...),
		seen:  make(map[uint64]int, len(p.seen)),
	}
	for hash, count := range p.seen {
		clone.seen[hash] = count
	}
	return clone
}

func (p *Position) At(sq Square) Piece {
	return p.Board[sq.Row][sq.Col]
}

func (p *Position) KingSquare(player Player) (Square, bool) {
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			piece := p.Board[row][col]
			if piece.Type == King && piece.Owner == player {
				return Square{Row: row, Col: col}, true
			}
		}
	}
	return Square{}, false
}

// InPromotionZone reports whether sq lies in the player's promotion zone,
// the three ranks nearest the opponent.
func InPromotionZone(player Player, sq Square) bool {
	if player == Sente {
		return sq.Row <= 2
	}
	return sq.Row >= 6
}

// mustPromote reports whether a piece of this type would be stranded with
// no further moves on sq and therefore has to promote.
func mustPromote(t PieceType, owner Player, sq Square) bool {
	switch t {
	case Pawn, Lance:
		if owner == Sente {
			return sq.Row == 0
		}
		return sq.Row == BoardSize-1
	case Knight:
		if owner == Sente {
			return sq.Row <= 1
		}
		return sq.Row >= BoardSize-2
	}
	return false
}

// Rehash recomputes the hash from scratch and restarts repetition
// tracking. Call it after constructing a position by hand or restoring one
// from storage.
func (p *Position) Rehash() {
	p.Hash = computeHash(p)
	p.seen = map[uint64]int{p.Hash: 1}
}

// RepetitionCount is how many times the current position has occurred.
func (p *Position) RepetitionCount() int {
	if p.seen == nil {
		return 0
	}
	return p.seen[p.Hash]
}

// HandCount returns how many pieces of the given base type the player holds.
func (p *Position) HandCount(player Player, t PieceType) int {
	if t <= NoPiece || t >= King {
		return 0
	}
	return p.Hands[player][t]
}

// hasUnpromotedPawnOnFile backs the two-pawn drop rule.
func (p *Position) hasUnpromotedPawnOnFile(player Player, col int) bool {
	for row := 0; row < BoardSize; row++ {
		piece := p.Board[row][col]
		if piece.Type == Pawn && piece.Owner == player && !piece.Promoted {
			return true
		}
	}
	return false
}

func (p *Position) String() string {
	var sb strings.Builder
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			sb.WriteString(p.Board[row][col].String())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
