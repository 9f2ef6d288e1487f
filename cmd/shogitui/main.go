package main

import (
	"flag"
	"log"

	"github.com/gongahkia/mike/internal/ai"
	"github.com/gongahkia/mike/internal/tui"
)

func main() {
	difficulty := flag.String("difficulty", "medium", "engine difficulty: easy, medium or hard")
	flag.Parse()

	if err := tui.Run(ai.Difficulty(*difficulty)); err != nil {
		log.Fatal(err)
	}
}
