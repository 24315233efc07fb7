package game

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"
)

func testRand() *rand.Rand { return rand.New(rand.NewPCG(11, 13)) }

func scenarioConfig() Config {
	return Config{Tier: "custom", Size: 6, Fleet: Composition{PatrolBoat: 3}}
}

func TestClassicScenario(t *testing.T) {
	fleet := NewBoard(6)
	for _, c := range []Coord{{0, 0}, {2, 2}, {4, 4}} {
		if _, err := fleet.Place(PatrolBoat, c.Row, c.Col, Rot0); err != nil {
			t.Fatalf("place at %v: %v", c, err)
		}
	}
	m, err := NewMatch(scenarioConfig(), Classic, WithComputerBoard(fleet), WithRand(testRand()))
	if err != nil {
		t.Fatal(err)
	}
	if m.Phase() != Active {
		t.Fatalf("classic phase = %s, want active", m.Phase())
	}
	if m.PlayerBoard() != nil {
		t.Fatal("classic match has a player board")
	}
	if got := m.ComputerBoard().ShipCells(); got != 3 {
		t.Fatalf("total ship cells = %d, want 3", got)
	}

	if shot, ok := m.Fire(5, 0); !ok || shot.Hit || shot.Value != Miss {
		t.Fatalf("miss shot = %+v, %v", shot, ok)
	}
	for i, c := range []Coord{{0, 0}, {2, 2}, {4, 4}} {
		shot, ok := m.Fire(c.Row, c.Col)
		if !ok || !shot.Hit {
			t.Fatalf("shot at %v = %+v, %v", c, shot, ok)
		}
		if last := i == 2; shot.Finished != last {
			t.Fatalf("shot %d finished = %v", i, shot.Finished)
		}
	}
	if m.Phase() != Finished || m.Winner() != Player {
		t.Fatalf("phase=%s winner=%q", m.Phase(), m.Winner())
	}
	if m.Moves(Player) != 4 {
		t.Errorf("moves = %d, want 4", m.Moves(Player))
	}
	if _, ok := m.Fire(1, 1); ok {
		t.Error("fire accepted after finish")
	}
	if m.Moves(Player) != 4 {
		t.Error("ignored fire changed the move counter")
	}
}

func TestFireTwiceIsIgnored(t *testing.T) {
	m, err := NewMatch(scenarioConfig(), Classic, WithRand(testRand()))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Fire(3, 3); !ok {
		t.Fatal("first shot rejected")
	}
	before := m.PlayerShots().Cells[3][3]
	if _, ok := m.Fire(3, 3); ok {
		t.Fatal("second shot at the same cell accepted")
	}
	if m.PlayerShots().Cells[3][3] != before || m.Moves(Player) != 1 {
		t.Error("second shot changed state")
	}
	for _, c := range []Coord{{-1, 0}, {0, 6}, {6, 6}} {
		if _, ok := m.Fire(c.Row, c.Col); ok {
			t.Errorf("out of bounds shot %v accepted", c)
		}
	}
}

func TestCompetitiveSetup(t *testing.T) {
	cfg := Config{Size: 6, Fleet: Composition{PatrolBoat: 1, Destroyer: 1}}
	m, err := NewMatch(cfg, Competitive, WithRand(testRand()))
	if err != nil {
		t.Fatal(err)
	}
	if m.Phase() != Setup {
		t.Fatalf("phase = %s, want setup", m.Phase())
	}
	if _, ok := m.Fire(0, 0); ok {
		t.Fatal("fire accepted during setup")
	}
	if err := m.Start(); !errors.Is(err, ErrFleetIncomplete) {
		t.Fatalf("Start err = %v, want ErrFleetIncomplete", err)
	}
	ps, err := m.PlaceShip(Destroyer, 0, 0, Rot90)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.PlaceShip(Destroyer, 4, 4, Rot0); !errors.Is(err, ErrNoUnitsLeft) {
		t.Fatalf("second destroyer err = %v", err)
	}
	if _, err := m.PlaceShip(PatrolBoat, 1, 1, Rot0); !errors.Is(err, ErrInvalidPlacement) {
		t.Fatalf("touching patrol err = %v", err)
	}
	if err := m.RemoveShip(ps.ID); err != nil {
		t.Fatal(err)
	}
	if m.Remaining()[Destroyer] != 1 {
		t.Fatalf("remaining destroyers = %d", m.Remaining()[Destroyer])
	}
	if err := m.AutoPlace(); err != nil {
		t.Fatal(err)
	}
	if m.Remaining().Units() != 0 || m.PlayerBoard().ShipCells() != 3 {
		t.Fatalf("auto-place left remaining=%v cells=%d", m.Remaining(), m.PlayerBoard().ShipCells())
	}
	if err := m.ClearBoard(); err != nil {
		t.Fatal(err)
	}
	if m.PlayerBoard().ShipCells() != 0 || m.Remaining().Units() != 2 {
		t.Fatal("clear did not reset the board")
	}
	if err := m.AutoPlace(); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	if m.Phase() != Active || m.Turn() != Player {
		t.Fatalf("after start phase=%s turn=%s", m.Phase(), m.Turn())
	}
	if m.ComputerBoard().ShipCells() != 3 {
		t.Errorf("computer ship cells = %d", m.ComputerBoard().ShipCells())
	}
	if err := m.ClearBoard(); !errors.Is(err, ErrNotInSetup) {
		t.Errorf("clear after start err = %v", err)
	}
}

func TestCompetitiveTurns(t *testing.T) {
	cfg := Config{Size: 4, Fleet: Composition{PatrolBoat: 1}}
	fleet := NewBoard(4)
	if _, err := fleet.Place(PatrolBoat, 3, 3, Rot0); err != nil {
		t.Fatal(err)
	}
	m, err := NewMatch(cfg, Competitive, WithRand(testRand()), WithComputerBoard(fleet))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.PlaceShip(PatrolBoat, 0, 0, Rot0); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.ComputerFire(); ok {
		t.Fatal("computer fired on the player's turn")
	}
	next := 0
	for m.Phase() == Active {
		if m.Turn() != Player {
			t.Fatalf("turn = %s, want player", m.Turn())
		}
		shot, ok := m.Fire(next/4, next%4)
		if !ok {
			t.Fatalf("player shot %d rejected", next)
		}
		next++
		if shot.Finished {
			break
		}
		if _, ok := m.Fire(next/4, next%4); ok {
			t.Fatal("player fired twice in a row")
		}
		if m.Turn() != Computer {
			t.Fatalf("turn = %s, want computer", m.Turn())
		}
		if _, ok := m.ComputerFire(); !ok {
			t.Fatal("computer shot rejected on its turn")
		}
	}
	switch m.Winner() {
	case Player:
		if m.PlayerShots().Hits() != 1 || m.Moves(Player) != m.Moves(Computer)+1 {
			t.Errorf("player win: hits=%d moves=%d/%d", m.PlayerShots().Hits(), m.Moves(Player), m.Moves(Computer))
		}
	case Computer:
		if m.ComputerShots().Cells[0][0] != 1 || m.Moves(Player) != m.Moves(Computer) {
			t.Errorf("computer win: cell=%d moves=%d/%d", m.ComputerShots().Cells[0][0], m.Moves(Player), m.Moves(Computer))
		}
	default:
		t.Fatal("match finished without a winner")
	}
	if m.Turn() != Nobody {
		t.Errorf("turn after finish = %q", m.Turn())
	}
}

func TestImportField(t *testing.T) {
	cfg := Config{Size: 4, Fleet: Composition{Destroyer: 1}}
	m, err := NewMatch(cfg, Competitive, WithRand(testRand()))
	if err != nil {
		t.Fatal(err)
	}
	grid := [][]uint8{{1, 1, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}
	if err := m.ImportField(grid, Composition{PatrolBoat: 2}); !errors.Is(err, ErrCompositionMismatch) {
		t.Fatalf("mismatch err = %v", err)
	}
	bad := [][]uint8{{1, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}
	if err := m.ImportField(bad, Composition{Destroyer: 1}); err == nil {
		t.Fatal("short cell count accepted")
	}
	if err := m.ImportField(grid, Composition{Destroyer: 1}); err != nil {
		t.Fatal(err)
	}
	if m.PlayerBoard().At(0, 1) != ImportedShipID {
		t.Errorf("imported cell = %d", m.PlayerBoard().At(0, 1))
	}
	if err := m.RemoveShip(1); !errors.Is(err, ErrShipNotFound) {
		t.Errorf("remove on imported board err = %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
}

func TestImportFieldRejectsIllegalLayouts(t *testing.T) {
	grid := func(cells ...Coord) [][]uint8 {
		g := make([][]uint8, 6)
		for r := range g {
			g[r] = make([]uint8, 6)
		}
		for _, p := range cells {
			g[p.Row][p.Col] = 1
		}
		return g
	}
	tests := []struct {
		name  string
		fleet Composition
		cells []Coord
		ok    bool
	}{
		{"patrols apart", Composition{PatrolBoat: 2}, []Coord{{0, 0}, {0, 2}}, true},
		{"patrols side by side", Composition{PatrolBoat: 2}, []Coord{{0, 0}, {0, 1}}, false},
		{"patrols diagonal", Composition{PatrolBoat: 2}, []Coord{{0, 0}, {1, 1}}, false},
		{"destroyer vertical", Composition{Destroyer: 1}, []Coord{{2, 3}, {3, 3}}, true},
		{"destroyer bent", Composition{Destroyer: 1, PatrolBoat: 1}, []Coord{{0, 0}, {1, 1}, {4, 4}}, false},
		{"cruiser as L", Composition{Cruiser: 1}, []Coord{{0, 0}, {1, 0}, {1, 1}}, false},
		{"hovercraft upside down", Composition{Hovercraft: 1}, []Coord{{3, 2}, {4, 1}, {4, 2}, {4, 3}}, true},
		{"battleship read as hovercraft", Composition{Hovercraft: 1}, []Coord{{5, 0}, {5, 1}, {5, 2}, {5, 3}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMatch(Config{Size: 6, Fleet: tt.fleet}, Competitive, WithRand(testRand()))
			if err != nil {
				t.Fatal(err)
			}
			err = m.ImportField(grid(tt.cells...), tt.fleet)
			if tt.ok {
				if err != nil {
					t.Fatalf("ImportField err = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrLayoutMismatch) {
				t.Fatalf("ImportField err = %v, want ErrLayoutMismatch", err)
			}
			if m.PlayerBoard().ShipCells() != 0 {
				t.Error("rejected import changed the board")
			}
			if err := m.Start(); !errors.Is(err, ErrFleetIncomplete) {
				t.Errorf("Start after rejected import err = %v", err)
			}
		})
	}
}

func TestActivationHookFailureKeepsSetup(t *testing.T) {
	boom := errors.New("commit failed")
	var seen *Board
	hook := OnActivate(func(b *Board) error {
		seen = b
		return boom
	})

	m, err := NewMatch(scenarioConfig(), Competitive, WithRand(testRand()), hook)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.AutoPlace(); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(); !errors.Is(err, boom) {
		t.Fatalf("Start err = %v", err)
	}
	if seen == nil || seen.ShipCells() != scenarioConfig().Fleet.Cells() {
		t.Fatal("hook did not see the computer fleet")
	}
	if m.Phase() != Setup || m.Turn() != Nobody || m.ComputerBoard() != nil || !m.StartedAt().IsZero() {
		t.Fatalf("failed start left phase=%s turn=%q", m.Phase(), m.Turn())
	}
	if _, ok := m.Fire(0, 0); ok {
		t.Error("fire accepted after failed start")
	}

	if _, err := NewMatch(scenarioConfig(), Classic, WithRand(testRand()), hook); !errors.Is(err, boom) {
		t.Errorf("classic NewMatch err = %v", err)
	}
}

func TestElapsed(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	fleet := NewBoard(3)
	if _, err := fleet.Place(PatrolBoat, 1, 1, Rot0); err != nil {
		t.Fatal(err)
	}
	m, err := NewMatch(Config{Size: 3, Fleet: Composition{PatrolBoat: 1}}, Classic,
		WithClock(clock), WithComputerBoard(fleet))
	if err != nil {
		t.Fatal(err)
	}
	now = now.Add(90 * time.Second)
	if _, ok := m.Fire(1, 1); !ok {
		t.Fatal("shot rejected")
	}
	now = now.Add(time.Hour)
	if got := m.Elapsed(); got != 90*time.Second {
		t.Errorf("Elapsed = %v, want 90s", got)
	}
}

func TestNewMatchRejectsBadConfig(t *testing.T) {
	if _, err := NewMatch(Config{Size: 0, Fleet: Composition{PatrolBoat: 1}}, Classic); err == nil {
		t.Error("zero board accepted")
	}
	if _, err := NewMatch(Config{Size: 6, Fleet: Composition{PatrolBoat: 1}}, Mode("arcade")); err == nil {
		t.Error("unknown mode accepted")
	}
	if _, err := NewMatch(Config{Size: 2, Fleet: Composition{Carrier: 1}}, Classic); err == nil {
		t.Error("oversized fleet accepted")
	}
}
