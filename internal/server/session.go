package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/gongahkia/mike/internal/ai"
	"github.com/gongahkia/mike/internal/shogi"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrTooManyGames = errors.New("too many active games")
)

// GameSession owns one game. The mutex serializes every read and mutation
// of the position and engine so concurrent requests cannot interleave moves.
type GameSession struct {
	mu        sync.Mutex
	id        string
	pos       *shogi.Position
	engine    *ai.Engine
	startedAt time.Time
}

func (g *GameSession) ID() string { return g.id }

// withLock runs fn with exclusive access to the session state.
func (g *GameSession) withLock(fn func(pos *shogi.Position, engine *ai.Engine) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.pos, g.engine)
}

// Registry tracks active game sessions by id.
type Registry struct {
	mu       sync.RWMutex
	games    map[string]*GameSession
	maxGames int
}

func NewRegistry(maxGames int) *Registry {
	return &Registry{
		games:    make(map[string]*GameSession),
		maxGames: maxGames,
	}
}

func newGameID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; fall back to time.
		return hex.EncodeToString([]byte(time.Now().Format("150405.000")))[:16]
	}
	return hex.EncodeToString(buf)
}

// Create starts a new game at the given difficulty.
func (r *Registry) Create(difficulty ai.Difficulty) (*GameSession, error) {
	engine, err := ai.NewEngine(difficulty)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxGames > 0 && len(r.games) >= r.maxGames {
		return nil, ErrTooManyGames
	}

	id := newGameID()
	for r.games[id] != nil {
		id = newGameID()
	}
	session := &GameSession{
		id:        id,
		pos:       shogi.NewPosition(),
		engine:    engine,
		startedAt: time.Now(),
	}
	r.games[id] = session
	return session, nil
}

// Get looks up a session by id.
func (r *Registry) Get(id string) (*GameSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return session, nil
}

// Remove deletes a session. It reports whether the id existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[id]; !ok {
		return false
	}
	delete(r.games, id)
	return true
}

// IDs returns the ids of all active sessions.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.games))
	for id := range r.games {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
