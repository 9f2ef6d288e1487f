// Command selfplay pits the engine against itself and reports results.
// Useful for sanity-checking difficulty levels after evaluation changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gongahkia/mike/internal/ai"
	"github.com/gongahkia/mike/internal/kifu"
	"github.com/gongahkia/mike/internal/shogi"
)

type matchResult struct {
	winner shogi.Player
	draw   bool
	plies  int
}

func main() {
	games := flag.Int("games", 10, "number of games to play")
	senteDiff := flag.String("sente", "medium", "sente difficulty")
	goteDiff := flag.String("gote", "medium", "gote difficulty")
	maxPlies := flag.Int("max-plies", 300, "adjudicate as draw after this many plies")
	printKifu := flag.Bool("kifu", false, "print the kifu of each game")
	flag.Parse()

	logger := log.New(os.Stderr, "[selfplay] ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var senteWins, goteWins, draws int
	start := time.Now()

	for i := 0; i < *games; i++ {
		if ctx.Err() != nil {
			logger.Printf("interrupted after %d games", i)
			break
		}
		result, err := playGame(ctx, ai.Difficulty(*senteDiff), ai.Difficulty(*goteDiff), *maxPlies, *printKifu)
		if err != nil {
			logger.Fatalf("game %d: %v", i+1, err)
		}
		switch {
		case result.draw:
			draws++
			logger.Printf("game %d: draw after %d plies", i+1, result.plies)
		case result.winner == shogi.Sente:
			senteWins++
			logger.Printf("game %d: sente wins in %d plies", i+1, result.plies)
		default:
			goteWins++
			logger.Printf("game %d: gote wins in %d plies", i+1, result.plies)
		}
	}

	total := senteWins + goteWins + draws
	if total > 0 {
		fmt.Printf("sente(%s) %d  gote(%s) %d  draws %d  (%d games in %s)\n",
			*senteDiff, senteWins, *goteDiff, goteWins, draws, total, time.Since(start).Round(time.Second))
	}
}

func playGame(ctx context.Context, senteDiff, goteDiff ai.Difficulty, maxPlies int, printKifu bool) (matchResult, error) {
	senteEngine, err := ai.NewEngine(senteDiff)
	if err != nil {
		return matchResult{}, err
	}
	goteEngine, err := ai.NewEngine(goteDiff)
	if err != nil {
		return matchResult{}, err
	}

	pos := shogi.NewPosition()
	for pos.Ply < maxPlies {
		if ctx.Err() != nil {
			return matchResult{draw: true, plies: pos.Ply}, nil
		}
		outcome := pos.Outcome()
		if outcome.Status != shogi.StatusOngoing {
			if printKifu {
				dumpKifu(pos, senteDiff, goteDiff)
			}
			return matchResult{
				winner: outcome.Winner,
				draw:   outcome.Status == shogi.StatusDraw,
				plies:  pos.Ply,
			}, nil
		}

		engine := senteEngine
		if pos.Turn == shogi.Gote {
			engine = goteEngine
		}
		result, err := engine.ChooseMove(ctx, pos)
		if err != nil {
			return matchResult{}, fmt.Errorf("ply %d: %w", pos.Ply, err)
		}
		if _, err := pos.Apply(result.Move); err != nil {
			return matchResult{}, fmt.Errorf("ply %d: engine played illegal move: %w", pos.Ply, err)
		}
	}

	if printKifu {
		dumpKifu(pos, senteDiff, goteDiff)
	}
	return matchResult{draw: true, plies: pos.Ply}, nil
}

func dumpKifu(pos *shogi.Position, senteDiff, goteDiff ai.Difficulty) {
	text, err := kifu.Export("Engine ("+string(senteDiff)+")", "Engine ("+string(goteDiff)+")", pos.Moves, pos.Outcome())
	if err != nil {
		return
	}
	fmt.Println(text)
}
