package ai

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/gongahkia/mike/internal/shogi"
)

const winScore = 1000000

// ErrNoLegalMove is returned when the side to move has nothing to play.
var ErrNoLegalMove = errors.New("no legal move")

type SearchSettings struct {
	Depth      int
	TimeBudget time.Duration
	TT         *TranspositionTable
	Stats      *SearchStats
}

type SearchResult struct {
	Move     shogi.Move
	Score    int
	Depth    int
	Nodes    int64
	Elapsed  time.Duration
	TimedOut bool
}

type SearchStats struct {
	Nodes           int64
	TTProbes        int64
	TTHits          int64
	TTStores        int64
	Cutoffs         int64
	DepthDurations  []time.Duration
	CompletedDepths int
	Start           time.Time
}

type searchContext struct {
	settings    SearchSettings
	player      shogi.Player
	start       time.Time
	deadline    time.Time
	hasDeadline bool
	killers     [][]shogi.Move
	stats       *SearchStats
	tt          *TranspositionTable
}

// timedOut is a var so tests can pin the deadline deterministically.
var timedOut = func(sc *searchContext) bool {
	return sc.hasDeadline && time.Now().After(sc.deadline)
}

// Search runs iterative deepening to the requested depth within the time
// budget and returns the best move of the last fully completed depth.
// Depth 1 always completes, so a move is returned whenever one exists.
func Search(ctx context.Context, p *shogi.Position, settings SearchSettings) (SearchResult, error) {
	if settings.Depth < 1 {
		settings.Depth = 1
	}
	moves := p.AllLegalMoves()
	if len(moves) == 0 {
		return SearchResult{}, ErrNoLegalMove
	}

	sc := &searchContext{
		settings: settings,
		player:   p.Turn,
		start:    time.Now(),
		killers:  make([][]shogi.Move, settings.Depth+2),
		stats:    settings.Stats,
		tt:       settings.TT,
	}
	if settings.TimeBudget > 0 {
		sc.deadline = sc.start.Add(settings.TimeBudget)
		sc.hasDeadline = true
	}
	if ctxDeadline, ok := ctx.Deadline(); ok {
		if !sc.hasDeadline || ctxDeadline.Before(sc.deadline) {
			sc.deadline = ctxDeadline
			sc.hasDeadline = true
		}
	}
	if sc.stats != nil && sc.stats.Start.IsZero() {
		sc.stats.Start = sc.start
	}

	result := SearchResult{}
	committed := false
	for depth := 1; depth <= settings.Depth; depth++ {
		if depth > 1 && timedOut(sc) {
			result.TimedOut = true
			break
		}
		depthStart := time.Now()
		best, bestMove, completed := sc.rootSearch(p, moves, depth)
		if !completed {
			result.TimedOut = true
			break
		}
		result.Move = bestMove
		result.Score = best
		result.Depth = depth
		committed = true
		if sc.stats != nil {
			sc.stats.DepthDurations = append(sc.stats.DepthDurations, time.Since(depthStart))
			sc.stats.CompletedDepths = depth
		}
	}
	result.Elapsed = time.Since(sc.start)
	if sc.stats != nil {
		result.Nodes = sc.stats.Nodes
	}
	if !committed {
		// Cannot happen: depth 1 is never abandoned. Kept as a guard.
		return SearchResult{}, ErrNoLegalMove
	}
	return result, nil
}

// rootSearch scores every root move with a full window. The root is never
// pruned; a depth is either evaluated for all moves or reported incomplete.
func (sc *searchContext) rootSearch(p *shogi.Position, moves []shogi.Move, depth int) (int, shogi.Move, bool) {
	ordered := sc.orderMoves(p, moves, 0)
	best := -winScore * 2
	bestMove := ordered[0]
	for _, move := range ordered {
		if depth > 1 && timedOut(sc) {
			return 0, shogi.Move{}, false
		}
		undo := p.ApplyUnchecked(move)
		value := sc.minimax(p, depth-1, 1, best, winScore*2)
		p.Undo(undo)
		if value > best {
			best = value
			bestMove = move
		}
	}
	if depth > 1 && timedOut(sc) {
		return 0, shogi.Move{}, false
	}
	if sc.tt != nil {
		sc.tt.Store(p.Hash, depth, best, TTExact, bestMove)
	}
	return best, bestMove, true
}

// minimax scores the position from the root player's perspective.
func (sc *searchContext) minimax(p *shogi.Position, depth, depthFromRoot, alpha, beta int) int {
	if sc.stats != nil {
		sc.stats.Nodes++
	}
	if p.RepetitionCount() >= shogi.RepetitionLimit {
		return 0
	}
	moves := p.AllLegalMoves()
	if len(moves) == 0 {
		// Mated (or stalemated, which also loses). Nearer mates score
		// higher so the search prefers the fastest win.
		mate := winScore - depthFromRoot
		if p.Turn == sc.player {
			return -mate
		}
		return mate
	}
	if depth <= 0 || timedOut(sc) {
		return Evaluate(p, sc.player)
	}

	alphaOrig := alpha
	betaOrig := beta
	var pvMove *shogi.Move
	if sc.tt != nil {
		if sc.stats != nil {
			sc.stats.TTProbes++
		}
		if entry, ok := sc.tt.Probe(p.Hash); ok {
			if sc.stats != nil {
				sc.stats.TTHits++
			}
			pv := entry.BestMove
			pvMove = &pv
			if entry.Depth >= depth {
				switch entry.Flag {
				case TTExact:
					return entry.Score
				case TTLower:
					if entry.Score > alpha {
						alpha = entry.Score
					}
				case TTUpper:
					if entry.Score < beta {
						beta = entry.Score
					}
				}
				if alpha >= beta {
					if sc.stats != nil {
						sc.stats.Cutoffs++
					}
					return entry.Score
				}
			}
		}
	}

	maximizing := p.Turn == sc.player
	best := -winScore * 2
	if !maximizing {
		best = winScore * 2
	}
	bestMove := shogi.Move{}
	truncated := false
	ordered := sc.orderMovesPV(p, moves, depthFromRoot, pvMove)
	for _, move := range ordered {
		undo := p.ApplyUnchecked(move)
		value := sc.minimax(p, depth-1, depthFromRoot+1, alpha, beta)
		p.Undo(undo)
		if maximizing {
			if value > best {
				best = value
				bestMove = move
			}
			if best > alpha {
				alpha = best
			}
		} else {
			if value < best {
				best = value
				bestMove = move
			}
			if best < beta {
				beta = best
			}
		}
		if beta <= alpha {
			if sc.stats != nil {
				sc.stats.Cutoffs++
			}
			sc.recordKiller(depthFromRoot, move)
			break
		}
		if timedOut(sc) {
			truncated = true
			break
		}
	}

	// Values from a cut-off loop mix real child scores with static evals;
	// never let them into the table.
	if sc.tt != nil && !truncated {
		flag := TTExact
		if best <= alphaOrig {
			flag = TTUpper
		} else if best >= betaOrig {
			flag = TTLower
		}
		sc.tt.Store(p.Hash, depth, best, flag, bestMove)
	}
	return best
}

// orderMoves sorts captures and promotions first, most valuable victim
// leading. Ordering is stable so equal moves keep generation order and the
// search stays deterministic.
func (sc *searchContext) orderMoves(p *shogi.Position, moves []shogi.Move, depthFromRoot int) []shogi.Move {
	return sc.orderMovesPV(p, moves, depthFromRoot, nil)
}

func (sc *searchContext) orderMovesPV(p *shogi.Position, moves []shogi.Move, depthFromRoot int, pvMove *shogi.Move) []shogi.Move {
	type scored struct {
		move  shogi.Move
		score int
	}
	items := make([]scored, len(moves))
	for i, move := range moves {
		score := 0
		if pvMove != nil && move == *pvMove {
			score += 1 << 20
		}
		if !move.IsDrop() {
			if target := p.At(move.To); !target.IsEmpty() {
				score += 10000 + pieceValue(target)
			}
			if move.Promote {
				score += 5000
			}
		}
		if sc.isKiller(depthFromRoot, move) {
			score += 2000
		}
		items[i] = scored{move: move, score: score}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })
	out := make([]shogi.Move, len(items))
	for i, item := range items {
		out[i] = item.move
	}
	return out
}

func (sc *searchContext) isKiller(depthFromRoot int, move shogi.Move) bool {
	if depthFromRoot >= len(sc.killers) {
		return false
	}
	for _, killer := range sc.killers[depthFromRoot] {
		if killer == move {
			return true
		}
	}
	return false
}

func (sc *searchContext) recordKiller(depthFromRoot int, move shogi.Move) {
	if depthFromRoot >= len(sc.killers) {
		return
	}
	for _, killer := range sc.killers[depthFromRoot] {
		if killer == move {
			return
		}
	}
	sc.killers[depthFromRoot] = append(sc.killers[depthFromRoot], move)
	if len(sc.killers[depthFromRoot]) > 2 {
		sc.killers[depthFromRoot] = sc.killers[depthFromRoot][1:]
	}
}
