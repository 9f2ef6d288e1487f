package shogi

type zobristTable struct {
	pieces []uint64
	side   uint64
}

var zobrist = newZobristTable()

func newZobristTable() *zobristTable {
	rng := splitmix64{state: 0x9e3779b97f4a7c15 ^ uint64(BoardSize)}
	table := &zobristTable{pieces: make([]uint64, BoardSize*BoardSize*2*int(King+1)*2)}
	for i := range table.pieces {
		table.pieces[i] = rng.next()
	}
	table.side = rng.next()
	return table
}

func (z *zobristTable) piece(sq Square, piece Piece) uint64 {
	idx := (sq.Row*BoardSize + sq.Col) * 2
	if piece.Owner == Gote {
		idx++
	}
	idx = idx*int(King+1) + int(piece.Type)
	idx *= 2
	if piece.Promoted {
		idx++
	}
	return z.pieces[idx]
}

func handHash(player Player, t PieceType, count int) uint64 {
	seed := uint64(count)<<8 | uint64(t)<<1 | uint64(player&1)
	rng := splitmix64{state: seed + 0x9e3779b97f4a7c15}
	return rng.next()
}

func computeHash(p *Position) uint64 {
	var hash uint64
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			piece := p.Board[row][col]
			if piece.IsEmpty() {
				continue
			}
			hash ^= zobrist.piece(Square{Row: row, Col: col}, piece)
		}
	}
	if p.Turn == Gote {
		hash ^= zobrist.side
	}
	for _, player := range []Player{Sente, Gote} {
		for t := Pawn; t < King; t++ {
			hash ^= handHash(player, t, p.Hands[player][t])
		}
	}
	return hash
}

type splitmix64 struct {
	state uint64
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
