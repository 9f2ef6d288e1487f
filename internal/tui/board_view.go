package tui

import (
	"strconv"
	"strings"

	"github.com/gongahkia/mike/internal/shogi"
)

// RenderBoard renders the position in a fixed-width grid, KIF-style
// coordinates: files 9..1 left to right, ranks 1..9 top to bottom.
func RenderBoard(pos *shogi.Position) string {
	var b strings.Builder
	b.WriteString("    9  8  7  6  5  4  3  2  1\n")
	b.WriteString("  +---------------------------+\n")

	for row := 0; row < shogi.BoardSize; row++ {
		b.WriteString(" ")
		b.WriteByte(byte('1' + row))
		b.WriteString("|")
		for col := 0; col < shogi.BoardSize; col++ {
			b.WriteString(cell(pos.At(shogi.Square{Row: row, Col: col})))
		}
		b.WriteString("|\n")
	}

	b.WriteString("  +---------------------------+\n")
	b.WriteString(renderHand(pos, shogi.Gote))
	b.WriteString(renderHand(pos, shogi.Sente))
	return b.String()
}

// cell returns a fixed-width 3-char cell: side marker plus piece letter,
// lowercase letters for promoted pieces.
func cell(p shogi.Piece) string {
	if p.IsEmpty() {
		return " . "
	}
	tri := "▲"
	if p.Owner == shogi.Gote {
		tri = "▽"
	}
	letter := p.Type.Letter()
	if p.Promoted {
		letter = strings.ToLower(letter)
	}
	return tri + letter + " "
}

func renderHand(pos *shogi.Position, player shogi.Player) string {
	var parts []string
	for t := shogi.Pawn; t <= shogi.Rook; t++ {
		if n := pos.HandCount(player, t); n > 0 {
			part := t.Letter()
			if n > 1 {
				part += "x" + strconv.Itoa(n)
			}
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "-")
	}
	marker := "▲"
	if player == shogi.Gote {
		marker = "▽"
	}
	return marker + " hand: " + strings.Join(parts, " ") + "\n"
}
