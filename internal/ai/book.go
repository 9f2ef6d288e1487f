package ai

import (
	"sort"

	"github.com/gongahkia/mike/internal/shogi"
)

// bookMaxPlies cuts the book off after the opening phase.
const bookMaxPlies = 10

// OpeningBook holds named opening lines as full move sequences from the
// initial position. A line stays playable only while the game history is a
// prefix of it; once the game diverges the book never re-enters.
type OpeningBook struct {
	lines map[string][]shogi.Move
}

func bm(fromRow, fromCol, toRow, toCol int) shogi.Move {
	return shogi.Move{
		From: shogi.Square{Row: fromRow, Col: fromCol},
		To:   shogi.Square{Row: toRow, Col: toCol},
	}
}

// DefaultBook carries a handful of standard development schemes: mutual
// pawn and silver development (static rook) and a central ranging rook
// setup for sente.
func DefaultBook() *OpeningBook {
	book := &OpeningBook{lines: make(map[string][]shogi.Move)}
	book.AddLine("static_rook", []shogi.Move{
		bm(6, 6, 5, 6), // sente pawn up
		bm(2, 2, 3, 2), // gote mirrors
		bm(8, 6, 7, 6), // sente silver up
		bm(0, 2, 1, 3), // gote silver up
		bm(8, 2, 7, 3), // sente silver up
		bm(2, 6, 3, 6), // gote pawn up
		bm(6, 2, 5, 2), // sente pawn up
		bm(0, 6, 1, 5), // gote silver up
		bm(6, 4, 5, 4), // sente central pawn
		bm(2, 4, 3, 4), // gote central pawn
	})
	book.AddLine("ranging_rook", []shogi.Move{
		bm(6, 6, 5, 6), // sente pawn up
		bm(2, 2, 3, 2), // gote mirrors
		bm(6, 5, 5, 5), // sente opens the rook diagonal
		bm(2, 6, 3, 6), // gote pawn up
		bm(7, 1, 7, 4), // sente rook swings to the center
		bm(0, 6, 1, 5), // gote silver up
		bm(8, 6, 7, 6), // sente silver up
		bm(2, 4, 3, 4), // gote central pawn
	})
	return book
}

func (b *OpeningBook) AddLine(name string, moves []shogi.Move) {
	b.lines[name] = moves
}

// Lookup returns the next book move when the position's move history is a
// proper prefix of a stored line and the continuation is legal. Lines are
// tried in deterministic name order.
func (b *OpeningBook) Lookup(p *shogi.Position) (shogi.Move, bool) {
	if b == nil || p.Ply >= bookMaxPlies {
		return shogi.Move{}, false
	}
	history := p.Moves
	for _, name := range sortedLineNames(b.lines) {
		line := b.lines[name]
		if len(history) >= len(line) {
			continue
		}
		if !isPrefix(history, line) {
			continue
		}
		next := line[len(history)]
		if b.isLegal(p, next) {
			return next, true
		}
	}
	return shogi.Move{}, false
}

func (b *OpeningBook) isLegal(p *shogi.Position, move shogi.Move) bool {
	for _, legal := range p.AllLegalMoves() {
		if legal == move {
			return true
		}
	}
	return false
}

func isPrefix(history, line []shogi.Move) bool {
	for i, move := range history {
		if line[i] != move {
			return false
		}
	}
	return true
}

func sortedLineNames(lines map[string][]shogi.Move) []string {
	names := make([]string, 0, len(lines))
	for name := range lines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
