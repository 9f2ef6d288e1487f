// Package kifu renders games in KIF-style Japanese notation, the format
// used for exported records and move logs.
package kifu

import (
	"fmt"
	"strings"
	"time"

	"github.com/gongahkia/mike/internal/shogi"
)

var fwDigits = [10]string{"０", "１", "２", "３", "４", "５", "６", "７", "８", "９"}

var rankKanji = [10]string{"", "一", "二", "三", "四", "五", "六", "七", "八", "九"}

var pieceJP = map[shogi.PieceType]string{
	shogi.Pawn:   "歩",
	shogi.Lance:  "香",
	shogi.Knight: "桂",
	shogi.Silver: "銀",
	shogi.Gold:   "金",
	shogi.Bishop: "角",
	shogi.Rook:   "飛",
	shogi.King:   "玉",
}

var promotedJP = map[shogi.PieceType]string{
	shogi.Pawn:   "と",
	shogi.Lance:  "成香",
	shogi.Knight: "成桂",
	shogi.Silver: "成銀",
	shogi.Bishop: "馬",
	shogi.Rook:   "龍",
}

// NowFunc stamps exported records; tests pin it.
var NowFunc = func() string {
	return time.Now().Format("2006/01/02 15:04:05")
}

// fileRank converts a board square to traditional file/rank numbering:
// files count 9..1 from the left edge, ranks 1..9 from the top.
func fileRank(sq shogi.Square) (int, int) {
	return shogi.BoardSize - sq.Col, sq.Row + 1
}

func squareKIF(sq shogi.Square) string {
	file, rank := fileRank(sq)
	return fwDigits[file] + rankKanji[rank]
}

func pieceName(piece shogi.Piece) string {
	if piece.Promoted {
		if name, ok := promotedJP[piece.Type]; ok {
			return name
		}
	}
	return pieceJP[piece.Type]
}

// MoveText renders one move, e.g. "▲７六歩(77)" or "△４四歩打". The
// piece is the mover as it stood before the move.
func MoveText(m shogi.Move, moved shogi.Piece) string {
	marker := "▲"
	if moved.Owner == shogi.Gote {
		marker = "△"
	}
	var sb strings.Builder
	sb.WriteString(marker)
	sb.WriteString(squareKIF(m.To))
	sb.WriteString(pieceName(moved))
	if m.IsDrop() {
		sb.WriteString("打")
		return sb.String()
	}
	if m.Promote && !moved.Promoted {
		sb.WriteString("成")
	}
	file, rank := fileRank(m.From)
	fmt.Fprintf(&sb, "(%d%d)", file, rank)
	return sb.String()
}

// Lines replays moves from the initial position and renders each one.
func Lines(moves []shogi.Move) ([]string, error) {
	p := shogi.NewPosition()
	out := make([]string, 0, len(moves))
	for i, m := range moves {
		var moved shogi.Piece
		if m.IsDrop() {
			moved = shogi.Piece{Type: m.Drop, Owner: p.Turn}
		} else {
			moved = p.At(m.From)
		}
		if _, err := p.Apply(m); err != nil {
			return nil, fmt.Errorf("move %d (%v): %w", i+1, m, err)
		}
		out = append(out, fmt.Sprintf("%4d %s", i+1, MoveText(m, moved)))
	}
	return out, nil
}

// Export produces a complete KIF-style record with a header block.
func Export(senteName, goteName string, moves []shogi.Move, outcome shogi.GameOutcome) (string, error) {
	lines, err := Lines(moves)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "開始日時：%s\n", NowFunc())
	fmt.Fprintf(&sb, "先手：%s\n", senteName)
	fmt.Fprintf(&sb, "後手：%s\n", goteName)
	sb.WriteString("手数----指手----\n")
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	switch outcome.Status {
	case shogi.StatusCheckmate:
		fmt.Fprintf(&sb, "%4d 詰み\n", len(moves)+1)
	case shogi.StatusDraw:
		fmt.Fprintf(&sb, "%4d 千日手\n", len(moves)+1)
	}
	return sb.String(), nil
}
