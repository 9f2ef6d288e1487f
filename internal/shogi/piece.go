package shogi

type Player int

const (
	Sente Player = iota
	Gote
)

func (p Player) Opponent() Player {
	if p == Sente {
		return Gote
	}
	return Sente
}

func (p Player) String() string {
	if p == Sente {
		return "sente"
	}
	return "gote"
}

// forward is the row delta a piece of this player advances by.
func (p Player) forward() int {
	if p == Sente {
		return -1
	}
	return 1
}

type PieceType int

const (
	NoPiece PieceType = iota
	Pawn
	Lance
	Knight
	Silver
	Gold
	Bishop
	Rook
	King
)

var pieceNames = map[PieceType]string{
	Pawn:   "pawn",
	Lance:  "lance",
	Knight: "knight",
	Silver: "silver",
	Gold:   "gold",
	Bishop: "bishop",
	Rook:   "rook",
	King:   "king",
}

var pieceLetters = map[PieceType]string{
	Pawn:   "P",
	Lance:  "L",
	Knight: "N",
	Silver: "S",
	Gold:   "G",
	Bishop: "B",
	Rook:   "R",
	King:   "K",
}

func (t PieceType) String() string {
	if name, ok := pieceNames[t]; ok {
		return name
	}
	return "none"
}

func (t PieceType) Letter() string {
	if letter, ok := pieceLetters[t]; ok {
		return letter
	}
	return "."
}

func (t PieceType) CanPromote() bool {
	switch t {
	case Pawn, Lance, Knight, Silver, Bishop, Rook:
		return true
	default:
		return false
	}
}

// ParsePieceType accepts both the long name ("pawn") and the letter ("P").
func ParsePieceType(raw string) (PieceType, bool) {
	for t, name := range pieceNames {
		if raw == name || raw == pieceLetters[t] {
			return t, true
		}
	}
	return NoPiece, false
}

type Piece struct {
	Type     PieceType
	Owner    Player
	Promoted bool
}

func (p Piece) IsEmpty() bool {
	return p.Type == NoPiece
}

// movesAsGold reports whether the piece steps like a gold general.
func (p Piece) movesAsGold() bool {
	if p.Type == Gold {
		return true
	}
	if !p.Promoted {
		return false
	}
	switch p.Type {
	case Pawn, Lance, Knight, Silver:
		return true
	}
	return false
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return " . "
	}
	letter := p.Type.Letter()
	if p.Promoted {
		letter = "+" + letter
	} else {
		letter = " " + letter
	}
	if p.Owner == Gote {
		return letter + "'"
	}
	return letter + " "
}
