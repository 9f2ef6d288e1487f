package ai

import "github.com/gongahkia/mike/internal/shogi"

// Board values in centipawn-like units. The king carries no material value.
var pieceValues = [shogi.King + 1]int{
	shogi.Pawn:   100,
	shogi.Lance:  250,
	shogi.Knight: 300,
	shogi.Silver: 350,
	shogi.Gold:   400,
	shogi.Bishop: 450,
	shogi.Rook:   500,
}

var promotedValues = [shogi.King + 1]int{
	shogi.Pawn:   200,
	shogi.Lance:  350,
	shogi.Knight: 400,
	shogi.Silver: 450,
	shogi.Bishop: 550,
	shogi.Rook:   600,
}

// positionBonus rewards central control, 0 at the rim rising to 20 in the
// middle.
var positionBonus = [shogi.BoardSize][shogi.BoardSize]int{
	{0, 0, 0, 0, 0, 0, 0, 0, 0},
	{0, 5, 5, 5, 5, 5, 5, 5, 0},
	{0, 5, 10, 10, 10, 10, 10, 5, 0},
	{0, 5, 10, 15, 15, 15, 10, 5, 0},
	{0, 5, 10, 15, 20, 15, 10, 5, 0},
	{0, 5, 10, 15, 15, 15, 10, 5, 0},
	{0, 5, 10, 10, 10, 10, 10, 5, 0},
	{0, 5, 5, 5, 5, 5, 5, 5, 0},
	{0, 0, 0, 0, 0, 0, 0, 0, 0},
}

func pieceValue(piece shogi.Piece) int {
	if piece.Promoted {
		return promotedValues[piece.Type]
	}
	return pieceValues[piece.Type]
}

// Evaluate scores the position from the player's perspective. The result
// depends only on the position, never on search state.
func Evaluate(p *shogi.Position, player shogi.Player) int {
	score := 0
	for row := 0; row < shogi.BoardSize; row++ {
		for col := 0; col < shogi.BoardSize; col++ {
			piece := p.Board[row][col]
			if piece.IsEmpty() {
				continue
			}
			value := pieceValue(piece) + positionBonus[row][col]
			if piece.Owner == player {
				score += value
			} else {
				score -= value
			}
		}
	}
	score += kingSafety(p, player)
	score += p.Mobility(player) - p.Mobility(player.Opponent())
	score += handScore(p, player) - handScore(p, player.Opponent())
	return score
}

func kingSafety(p *shogi.Position, player shogi.Player) int {
	score := 0
	if p.InCheck(player) {
		score -= 100
	}
	if p.InCheck(player.Opponent()) {
		score += 50
	}
	if king, ok := p.KingSquare(player); ok {
		home := king.Row >= 7
		if player == shogi.Gote {
			home = king.Row <= 1
		}
		if home {
			score += 20
		}
		switch king.Col {
		case 0, 1, 7, 8:
			score += 10
		}
	}
	return score
}

// handScore values pieces in hand at half their board value.
func handScore(p *shogi.Position, player shogi.Player) int {
	score := 0
	for t := shogi.Pawn; t < shogi.King; t++ {
		score += p.HandCount(player, t) * pieceValues[t] / 2
	}
	return score
}

// EvalBreakdown mirrors the per-term structure of Evaluate for analysis
// output.
type EvalBreakdown struct {
	Material   int  `json:"material_balance"`
	Positional int  `json:"position_score"`
	KingSafety int  `json:"king_safety"`
	Mobility   int  `json:"mobility"`
	Hand       int  `json:"captured_pieces"`
	Total      int  `json:"total_evaluation"`
	InCheck    bool `json:"in_check"`
	Checkmate  bool `json:"checkmate"`
}

func DetailedEvaluation(p *shogi.Position, player shogi.Player) EvalBreakdown {
	material, positional := 0, 0
	for row := 0; row < shogi.BoardSize; row++ {
		for col := 0; col < shogi.BoardSize; col++ {
			piece := p.Board[row][col]
			if piece.IsEmpty() {
				continue
			}
			sign := 1
			if piece.Owner != player {
				sign = -1
			}
			material += sign * pieceValue(piece)
			positional += sign * positionBonus[row][col]
		}
	}
	breakdown := EvalBreakdown{
		Material:   material,
		Positional: positional,
		KingSafety: kingSafety(p, player),
		Mobility:   p.Mobility(player) - p.Mobility(player.Opponent()),
		Hand:       handScore(p, player) - handScore(p, player.Opponent()),
		InCheck:    p.InCheck(player),
		Checkmate:  p.IsCheckmate(player),
	}
	breakdown.Total = breakdown.Material + breakdown.Positional + breakdown.KingSafety + breakdown.Mobility + breakdown.Hand
	return breakdown
}
