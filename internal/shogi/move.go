package shogi

import "fmt"

type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < BoardSize && s.Col >= 0 && s.Col < BoardSize
}

func (s Square) String() string {
	return fmt.Sprintf("(%d,%d)", s.Row, s.Col)
}

// Move is either a board move (Drop == NoPiece) or a drop from hand.
type Move struct {
	From    Square    `json:"from"`
	To      Square    `json:"to"`
	Drop    PieceType `json:"drop,omitempty"`
	Promote bool      `json:"promote,omitempty"`
}

func (m Move) IsDrop() bool {
	return m.Drop != NoPiece
}

func (m Move) String() string {
	if m.IsDrop() {
		return fmt.Sprintf("%s*%s", m.Drop.Letter(), m.To)
	}
	suffix := ""
	if m.Promote {
		suffix = "+"
	}
	return fmt.Sprintf("%s-%s%s", m.From, m.To, suffix)
}

// UndoRecord carries what Apply changed so Undo can restore the prior
// position exactly. Records must be undone in reverse order of application.
type UndoRecord struct {
	Move     Move
	Moved    Piece
	Captured Piece
	PrevHash uint64
}
