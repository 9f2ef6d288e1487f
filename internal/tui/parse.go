// Package tui is a terminal client for playing against the engine.
package tui

import (
	"fmt"

	"github.com/gongahkia/mike/internal/shogi"
)

// ParseNumeric decodes KIF-style numeric move input.
//   - "7776"  : move from file 7 rank 7 to file 7 rank 6
//   - "77761" : same move with promotion
//   - "076"   : drop on file 7 rank 6 (piece picked from hand candidates)
func ParseNumeric(s string) (tag string, from *shogi.Square, to shogi.Square, promote bool, err error) {
	toSquare := func(file, rank int) (shogi.Square, error) {
		if file < 1 || file > 9 || rank < 1 || rank > 9 {
			return shogi.Square{}, fmt.Errorf("file/rank out of range: %d%d", file, rank)
		}
		return shogi.Square{Row: rank - 1, Col: 9 - file}, nil
	}
	digit := func(i int) int { return int(s[i] - '0') }

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", nil, shogi.Square{}, false, fmt.Errorf("not a numeric move: %q", s)
		}
	}

	switch {
	case len(s) == 3 && s[0] == '0':
		to, err = toSquare(digit(1), digit(2))
		if err != nil {
			return "", nil, shogi.Square{}, false, err
		}
		return "drop", nil, to, false, nil

	case len(s) == 4 || (len(s) == 5 && s[4] == '1'):
		f, err := toSquare(digit(0), digit(1))
		if err != nil {
			return "", nil, shogi.Square{}, false, err
		}
		to, err = toSquare(digit(2), digit(3))
		if err != nil {
			return "", nil, shogi.Square{}, false, err
		}
		return "move", &f, to, len(s) == 5, nil
	}
	return "", nil, shogi.Square{}, false, fmt.Errorf("unrecognized input: %q", s)
}
