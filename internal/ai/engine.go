package ai

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/gongahkia/mike/internal/shogi"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

type Level struct {
	Depth      int
	TimeBudget time.Duration
	Randomness float64
}

var levels = map[Difficulty]Level{
	Easy:   {Depth: 1, TimeBudget: 1 * time.Second, Randomness: 0.3},
	Medium: {Depth: 3, TimeBudget: 3 * time.Second, Randomness: 0.1},
	Hard:   {Depth: 5, TimeBudget: 8 * time.Second, Randomness: 0},
}

func LevelFor(d Difficulty) (Level, bool) {
	level, ok := levels[d]
	return level, ok
}

const engineTTSize = 1 << 16

// Engine picks moves for one game: opening book while the game follows a
// known line, then time-budgeted search, with a per-difficulty chance of a
// random move to keep weaker levels beatable.
type Engine struct {
	difficulty Difficulty
	level      Level
	book       *OpeningBook
	tt         *TranspositionTable
	rng        *rand.Rand
}

func NewEngine(d Difficulty) (*Engine, error) {
	level, ok := LevelFor(d)
	if !ok {
		return nil, fmt.Errorf("unknown difficulty %q", d)
	}
	return &Engine{
		difficulty: d,
		level:      level,
		book:       DefaultBook(),
		tt:         NewTranspositionTable(engineTTSize, 2),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (e *Engine) Difficulty() Difficulty {
	return e.difficulty
}

func (e *Engine) SetDifficulty(d Difficulty) error {
	level, ok := LevelFor(d)
	if !ok {
		return fmt.Errorf("unknown difficulty %q", d)
	}
	e.difficulty = d
	e.level = level
	return nil
}

// SetRand replaces the randomness source. Tests inject a seeded source to
// make ChooseMove deterministic.
func (e *Engine) SetRand(rng *rand.Rand) {
	e.rng = rng
}

// ChooseMove returns the engine's move for the side to move.
func (e *Engine) ChooseMove(ctx context.Context, p *shogi.Position) (SearchResult, error) {
	if move, ok := e.book.Lookup(p); ok {
		return SearchResult{Move: move}, nil
	}
	legal := p.AllLegalMoves()
	if len(legal) == 0 {
		return SearchResult{}, ErrNoLegalMove
	}
	if e.level.Randomness > 0 && e.rng.Float64() < e.level.Randomness {
		return SearchResult{Move: legal[e.rng.Intn(len(legal))]}, nil
	}
	stats := &SearchStats{Start: time.Now()}
	return Search(ctx, p, SearchSettings{
		Depth:      e.level.Depth,
		TimeBudget: e.level.TimeBudget,
		TT:         e.tt,
		Stats:      stats,
	})
}

// Suggest searches for the best move without the book or randomization, so
// hints stay honest at every difficulty.
func (e *Engine) Suggest(ctx context.Context, p *shogi.Position) (SearchResult, error) {
	stats := &SearchStats{Start: time.Now()}
	return Search(ctx, p, SearchSettings{
		Depth:      e.level.Depth,
		TimeBudget: e.level.TimeBudget,
		TT:         e.tt,
		Stats:      stats,
	})
}

type Analysis struct {
	Best       SearchResult  `json:"best"`
	Breakdown  EvalBreakdown `json:"evaluation"`
	Difficulty Difficulty    `json:"difficulty"`
	Legal      int           `json:"legal_moves"`
}

// Analyze reports a fixed-depth assessment of the position for the side to
// move. It never randomizes and never consults the book.
func (e *Engine) Analyze(ctx context.Context, p *shogi.Position) (Analysis, error) {
	legal := p.AllLegalMoves()
	analysis := Analysis{
		Breakdown:  DetailedEvaluation(p, p.Turn),
		Difficulty: e.difficulty,
		Legal:      len(legal),
	}
	if len(legal) == 0 {
		return analysis, ErrNoLegalMove
	}
	best, err := Search(ctx, p, SearchSettings{
		Depth:      e.level.Depth,
		TimeBudget: e.level.TimeBudget,
		TT:         e.tt,
		Stats:      &SearchStats{Start: time.Now()},
	})
	if err != nil {
		return analysis, err
	}
	analysis.Best = best
	return analysis, nil
}
