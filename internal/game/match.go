package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

type Mode string

const (
	Classic     Mode = "classic"
	Competitive Mode = "competitive"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Classic, Competitive:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

type Phase string

const (
	Setup    Phase = "setup"
	Active   Phase = "active"
	Finished Phase = "finished"
)

type Side string

const (
	Nobody   Side = ""
	Player   Side = "player"
	Computer Side = "computer"
)

// GenerationAttempts is how many fresh fleets a match draws before giving up.
const GenerationAttempts = 20

var (
	ErrNotInSetup          = errors.New("match is not in setup")
	ErrNoUnitsLeft         = errors.New("no units of this ship type left to place")
	ErrFleetIncomplete     = errors.New("fleet is not fully placed")
	ErrCompositionMismatch = errors.New("fleet composition does not match the match configuration")
)

// Shot is an applied fire action.
type Shot struct {
	Shooter  Side `json:"shooter"`
	Row      int  `json:"row"`
	Col      int  `json:"col"`
	Value    int  `json:"value"`
	Hit      bool `json:"hit"`
	Finished bool `json:"finished"`
}

// Match is one game's state. It is owned by a single session and is not
// safe for concurrent use.
type Match struct {
	mode  Mode
	cfg   Config
	phase Phase

	player   *Board // nil in classic mode
	computer *Board

	// playerShots is the player's view of the computer's board and vice versa.
	playerShots   *Revealed
	computerShots *Revealed

	playerMoves   int
	computerMoves int

	remaining Composition
	turn      Side
	winner    Side

	startedAt  time.Time
	finishedAt time.Time

	rng        *rand.Rand
	now        func() time.Time
	onActivate func(*Board) error
}

type Option func(*Match)

func WithRand(rng *rand.Rand) Option { return func(m *Match) { m.rng = rng } }

func WithClock(now func() time.Time) Option { return func(m *Match) { m.now = now } }

// OnActivate runs with the computer's fleet just before the match turns
// active. An error aborts activation and leaves the match as it was.
func OnActivate(fn func(computer *Board) error) Option {
	return func(m *Match) { m.onActivate = fn }
}

// WithComputerBoard fixes the computer's fleet instead of generating one.
func WithComputerBoard(b *Board) Option { return func(m *Match) { m.computer = b } }

func NewMatch(cfg Config, mode Mode, opts ...Option) (*Match, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	m := &Match{
		mode: mode,
		cfg:  Config{Tier: cfg.Tier, Size: cfg.Size, Fleet: cfg.Fleet.Clone()},
		now:  time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if m.computer != nil && m.computer.Size != cfg.Size {
		return nil, fmt.Errorf("computer board is %dx%d, config wants %d", m.computer.Size, m.computer.Size, cfg.Size)
	}

	if mode == Classic {
		if err := m.activate(); err != nil {
			return nil, err
		}
		return m, nil
	}
	m.phase = Setup
	m.player = NewBoard(cfg.Size)
	m.remaining = cfg.Fleet.Clone()
	return m, nil
}

func (m *Match) activate() error {
	computer := m.computer
	if computer == nil {
		b, err := GenerateFleetRetry(m.cfg.Size, m.cfg.Fleet, m.rng, GenerationAttempts)
		if err != nil {
			return fmt.Errorf("generate computer fleet: %w", err)
		}
		computer = b
	}
	if m.onActivate != nil {
		if err := m.onActivate(computer); err != nil {
			return err
		}
	}
	m.computer = computer
	m.playerShots = NewRevealed(m.cfg.Size)
	if m.mode == Competitive {
		m.computerShots = NewRevealed(m.cfg.Size)
		m.turn = Player
	}
	m.phase = Active
	m.startedAt = m.now()
	return nil
}

func (m *Match) Mode() Mode { return m.mode }
func (m *Match) Config() Config { return m.cfg }
func (m *Match) Phase() Phase { return m.phase }
func (m *Match) Turn() Side { return m.turn }
func (m *Match) Winner() Side { return m.winner }
func (m *Match) StartedAt() time.Time { return m.startedAt }

// PlayerBoard is nil in classic mode. Callers must not mutate it.
func (m *Match) PlayerBoard() *Board { return m.player }

// ComputerBoard is nil until the match is active. Callers must not mutate it.
func (m *Match) ComputerBoard() *Board { return m.computer }

// PlayerShots is the player's revealed grid of the computer's board.
func (m *Match) PlayerShots() *Revealed { return m.playerShots }

// ComputerShots is nil outside competitive play.
func (m *Match) ComputerShots() *Revealed { return m.computerShots }

func (m *Match) Moves(s Side) int {
	switch s {
	case Player:
		return m.playerMoves
	case Computer:
		return m.computerMoves
	}
	return 0
}

// Elapsed is measured from entry to active play until finish (or now).
func (m *Match) Elapsed() time.Duration {
	if m.startedAt.IsZero() {
		return 0
	}
	if m.phase == Finished {
		return m.finishedAt.Sub(m.startedAt)
	}
	return m.now().Sub(m.startedAt)
}

// Remaining is the count of units still to place during setup.
func (m *Match) Remaining() Composition { return m.remaining.Clone() }

func (m *Match) PlaceShip(kind ShipKind, row, col int, rot Rotation) (PlacedShip, error) {
	if m.phase != Setup {
		return PlacedShip{}, ErrNotInSetup
	}
	if !kind.Valid() || m.remaining[kind] == 0 {
		return PlacedShip{}, ErrNoUnitsLeft
	}
	ps, err := m.player.Place(kind, row, col, rot)
	if err != nil {
		return PlacedShip{}, err
	}
	m.consume(kind)
	return ps, nil
}

func (m *Match) consume(k ShipKind) {
	m.remaining[k]--
	if m.remaining[k] == 0 {
		delete(m.remaining, k)
	}
}

func (m *Match) RemoveShip(id int) error {
	if m.phase != Setup {
		return ErrNotInSetup
	}
	ps, err := m.player.Remove(id)
	if err != nil {
		return err
	}
	m.remaining[ps.Kind]++
	return nil
}

// AutoPlace replaces the player's board with a generated fleet. The board is
// left as it was if generation fails.
func (m *Match) AutoPlace() error {
	if m.phase != Setup {
		return ErrNotInSetup
	}
	b, err := GenerateFleetRetry(m.cfg.Size, m.cfg.Fleet, m.rng, GenerationAttempts)
	if err != nil {
		return err
	}
	m.player = b
	m.remaining = Composition{}
	return nil
}

func (m *Match) ClearBoard() error {
	if m.phase != Setup {
		return ErrNotInSetup
	}
	m.player.Clear()
	m.remaining = m.cfg.Fleet.Clone()
	return nil
}

// ImportField restores a decoded fieldfile as the player's fleet. The grid must
// read back as exactly the configured ships, none touching. Ships on an
// imported board cannot be removed one by one; ClearBoard still works.
func (m *Match) ImportField(grid [][]uint8, comp Composition) error {
	if m.phase != Setup {
		return ErrNotInSetup
	}
	if !comp.Equal(m.cfg.Fleet) {
		return ErrCompositionMismatch
	}
	b := NewBoard(m.cfg.Size)
	if err := b.LoadOccupancy(grid); err != nil {
		return err
	}
	if got, want := b.ShipCells(), m.cfg.Fleet.Cells(); got != want {
		return fmt.Errorf("imported field has %d ship cells, fleet needs %d", got, want)
	}
	read, err := LayoutComposition(grid)
	if err != nil {
		return err
	}
	if !read.Equal(m.cfg.Fleet) {
		return fmt.Errorf("%w: ships read as %v, fleet needs %v", ErrLayoutMismatch, read.Counts(), m.cfg.Fleet.Counts())
	}
	m.player = b
	m.remaining = Composition{}
	return nil
}

// Start leaves setup once every unit is placed; the computer's fleet is
// generated and the player moves first.
func (m *Match) Start() error {
	if m.phase != Setup {
		return ErrNotInSetup
	}
	if m.remaining.Units() != 0 {
		return ErrFleetIncomplete
	}
	return m.activate()
}

// Fire is the player's shot at the computer's board. ok is false when the
// action is ignored: not active, not the player's turn, out of bounds or a
// cell already revealed. Ignored actions change nothing.
func (m *Match) Fire(row, col int) (Shot, bool) {
	if m.phase != Active || (m.mode == Competitive && m.turn != Player) {
		return Shot{}, false
	}
	return m.apply(Player, m.playerShots, m.computer, row, col)
}

// ComputerFire plays the computer's turn in competitive mode.
func (m *Match) ComputerFire() (Shot, bool) {
	if m.phase != Active || m.mode != Competitive || m.turn != Computer {
		return Shot{}, false
	}
	row, col, ok := SelectTarget(m.computerShots, m.rng)
	if !ok {
		return Shot{}, false
	}
	return m.apply(Computer, m.computerShots, m.player, row, col)
}

func (m *Match) apply(shooter Side, shots *Revealed, target *Board, row, col int) (Shot, bool) {
	value, ok := shots.reveal(target, row, col)
	if !ok {
		return Shot{}, false
	}
	if shooter == Player {
		m.playerMoves++
	} else {
		m.computerMoves++
	}
	shot := Shot{Shooter: shooter, Row: row, Col: col, Value: value, Hit: value > 0}
	switch {
	case shots.Hits() == target.ShipCells():
		m.phase = Finished
		m.winner = shooter
		m.turn = Nobody
		m.finishedAt = m.now()
		shot.Finished = true
	case m.mode == Competitive:
		m.turn = opponent(shooter)
	}
	return shot, true
}

func opponent(s Side) Side {
	if s == Player {
		return Computer
	}
	return Player
}
