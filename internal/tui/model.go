package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gongahkia/mike/internal/ai"
	"github.com/gongahkia/mike/internal/kifu"
	"github.com/gongahkia/mike/internal/shogi"
)

type mode int

const (
	modeNormal mode = iota
	modeInput
)

type aiMoveMsg struct {
	result ai.SearchResult
	err    error
}

type Model struct {
	pos      *shogi.Position
	engine   *ai.Engine
	thinking bool

	m        mode
	input    textinput.Model
	logLines []string

	width  int
	height int
}

func NewModel(difficulty ai.Difficulty) (Model, error) {
	engine, err := ai.NewEngine(difficulty)
	if err != nil {
		return Model{}, err
	}

	ti := textinput.New()
	ti.Placeholder = "move..."
	ti.Prompt = "> "
	ti.CharLimit = 40
	ti.Width = 40

	return Model{
		pos:    shogi.NewPosition(),
		engine: engine,
		m:      modeNormal,
		input:  ti,
		logLines: []string{
			fmt.Sprintf("new game, difficulty %s (press i to enter a move)", difficulty),
		},
	}, nil
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case aiMoveMsg:
		m.thinking = false
		if msg.err != nil {
			m.appendLog(fmt.Sprintf("engine: %v", msg.err))
			return m, nil
		}
		moved := m.pos.At(msg.result.Move.From)
		if msg.result.Move.IsDrop() {
			moved = shogi.Piece{Type: msg.result.Move.Drop, Owner: m.pos.Turn}
		}
		if _, err := m.pos.Apply(msg.result.Move); err != nil {
			m.appendLog(fmt.Sprintf("engine move rejected: %v", err))
			return m, nil
		}
		m.appendLog(fmt.Sprintf("engine: %s (depth %d, score %d)",
			kifu.MoveText(msg.result.Move, moved), msg.result.Depth, msg.result.Score))
		m.logOutcome()
		return m, nil

	case tea.KeyMsg:
		switch m.m {
		case modeNormal:
			switch msg.String() {
			case "q", "ctrl+c":
				return m, tea.Quit
			case "i":
				if m.thinking {
					return m, nil
				}
				m.m = modeInput
				m.input.SetValue("")
				m.input.Focus()
				return m, nil
			default:
				return m, nil
			}

		case modeInput:
			switch msg.String() {
			case "esc":
				m.m = modeNormal
				m.input.Blur()
				return m, nil
			case "enter":
				cmdline := strings.TrimSpace(m.input.Value())
				m.input.SetValue("")
				m.m = modeNormal
				m.input.Blur()
				if cmdline != "" {
					return m.execCommand(cmdline)
				}
				return m, nil
			}

			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) execCommand(line string) (tea.Model, tea.Cmd) {
	m.appendLog("> " + line)

	if tag, _, _, _, err := ParseNumeric(line); err == nil && tag != "" {
		return m.execNumeric(line)
	}

	parts := strings.Fields(line)
	switch parts[0] {
	case "new":
		difficulty := m.engine.Difficulty()
		if len(parts) > 1 {
			difficulty = ai.Difficulty(parts[1])
		}
		engine, err := ai.NewEngine(difficulty)
		if err != nil {
			m.appendLog(err.Error())
			return m, nil
		}
		m.engine = engine
		m.pos = shogi.NewPosition()
		m.appendLog(fmt.Sprintf("new game, difficulty %s", difficulty))

	case "diff":
		if len(parts) < 2 {
			m.appendLog("usage: diff easy|medium|hard")
			return m, nil
		}
		if err := m.engine.SetDifficulty(ai.Difficulty(parts[1])); err != nil {
			m.appendLog(err.Error())
			return m, nil
		}
		m.appendLog("difficulty set to " + parts[1])

	case "hint":
		result, err := m.engine.Suggest(context.Background(), m.pos)
		if err != nil {
			m.appendLog(fmt.Sprintf("hint: %v", err))
			return m, nil
		}
		moved := m.pos.At(result.Move.From)
		if result.Move.IsDrop() {
			moved = shogi.Piece{Type: result.Move.Drop, Owner: m.pos.Turn}
		}
		m.appendLog("hint: " + kifu.MoveText(result.Move, moved))

	case "kif":
		text, err := kifu.Export("Player", "Engine", m.pos.Moves, m.pos.Outcome())
		if err != nil {
			m.appendLog(fmt.Sprintf("kif: %v", err))
			return m, nil
		}
		for _, ln := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			m.appendLog("  " + ln)
		}

	default:
		m.appendLog("unknown command: " + parts[0])
	}
	return m, nil
}

func (m Model) execNumeric(s string) (tea.Model, tea.Cmd) {
	if m.pos.Outcome().Status != shogi.StatusOngoing {
		m.appendLog("game over. use new to start another.")
		return m, nil
	}
	if m.thinking {
		m.appendLog("engine is thinking")
		return m, nil
	}

	tag, from, to, promote, err := ParseNumeric(s)
	if err != nil {
		m.appendLog(err.Error())
		return m, nil
	}

	var move shogi.Move
	switch tag {
	case "drop":
		cands := m.dropCandidates(to)
		if len(cands) == 0 {
			m.appendLog(fmt.Sprintf("no piece in hand can drop on %v", to))
			return m, nil
		}
		if len(cands) > 1 {
			m.appendLog(fmt.Sprintf("ambiguous drop, candidates: %v", cands))
			return m, nil
		}
		move = shogi.Move{To: to, Drop: cands[0]}

	case "move":
		move = shogi.Move{From: *from, To: to, Promote: promote}
	}

	moved := m.pos.At(move.From)
	if move.IsDrop() {
		moved = shogi.Piece{Type: move.Drop, Owner: m.pos.Turn}
	}
	if _, err := m.pos.Apply(move); err != nil {
		m.appendLog(err.Error())
		return m, nil
	}
	m.appendLog(kifu.MoveText(move, moved))
	m.logOutcome()

	if m.pos.Outcome().Status != shogi.StatusOngoing {
		return m, nil
	}
	m.thinking = true
	return m, m.engineMove()
}

func (m Model) engineMove() tea.Cmd {
	engine, pos := m.engine, m.pos
	return func() tea.Msg {
		result, err := engine.ChooseMove(context.Background(), pos.Clone())
		return aiMoveMsg{result: result, err: err}
	}
}

func (m *Model) dropCandidates(to shogi.Square) []shogi.PieceType {
	var cands []shogi.PieceType
	for t := shogi.Pawn; t <= shogi.Rook; t++ {
		if m.pos.HandCount(m.pos.Turn, t) == 0 {
			continue
		}
		for _, sq := range m.pos.LegalDropSquares(t) {
			if sq == to {
				cands = append(cands, t)
				break
			}
		}
	}
	return cands
}

func (m *Model) logOutcome() {
	switch outcome := m.pos.Outcome(); outcome.Status {
	case shogi.StatusCheckmate:
		m.appendLog(fmt.Sprintf("checkmate, %s wins", outcome.Winner))
	case shogi.StatusDraw:
		m.appendLog("draw by repetition")
	default:
		if m.pos.InCheck(m.pos.Turn) {
			m.appendLog("check")
		}
	}
}

func (m *Model) appendLog(s string) {
	m.logLines = append(m.logLines, s)
	if len(m.logLines) > 200 {
		m.logLines = m.logLines[len(m.logLines)-200:]
	}
}

func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	status := "your move"
	if m.thinking {
		status = "thinking..."
	}
	header := titleStyle.Render(fmt.Sprintf("shogi  [%s]  difficulty:%s", status, m.engine.Difficulty()))

	board := boxStyle.Render(RenderBoard(m.pos))

	logHeight := maxInt(4, m.height-20)
	logStart := maxInt(0, len(m.logLines)-logHeight)
	logBody := strings.Join(m.logLines[logStart:], "\n")
	logBox := boxStyle.Width(maxInt(30, m.width-2)).Render(logBody)

	var inputLine string
	if m.m == modeInput {
		inputLine = m.input.View()
	} else {
		inputLine = "press i to enter a move (7776, 77761 promote, 076 drop)"
	}
	inputBox := boxStyle.Width(maxInt(30, m.width-2)).Render(inputLine)

	return header + "\n" + board + "\n" + logBox + "\n" + inputBox + "\n"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
