package codec

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"seabattle/internal/game"
)

func TestEncodeLayout(t *testing.T) {
	b := game.NewBoard(4)
	if _, err := b.Place(game.Destroyer, 0, 1, game.Rot0); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Place(game.PatrolBoat, 3, 3, game.Rot0); err != nil {
		t.Fatal(err)
	}
	got := Encode(b, game.Composition{game.PatrolBoat: 1, game.Destroyer: 1})
	want := "4x4;1;1;0;0;0;0\n.##.\n....\n....\n...#\n"
	if got != want {
		t.Fatalf("Encode =\n%q\nwant\n%q", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 8))
	for _, p := range game.Presets() {
		cfg := p.Config()
		b, err := game.GenerateFleetRetry(cfg.Size, cfg.Fleet, rng, game.GenerationAttempts)
		if err != nil {
			t.Fatal(err)
		}
		f, err := Decode(Encode(b, cfg.Fleet))
		if err != nil {
			t.Fatalf("%s: %v", p.Name, err)
		}
		if f.Size != cfg.Size || !f.Fleet.Equal(cfg.Fleet) {
			t.Errorf("%s: header = %d %v", p.Name, f.Size, f.Fleet.Counts())
		}
		occ := b.Occupancy()
		for r := range occ {
			for c := range occ[r] {
				if f.Grid[r][c] != occ[r][c] {
					t.Fatalf("%s: cell (%d,%d) = %d, want %d", p.Name, r, c, f.Grid[r][c], occ[r][c])
				}
			}
		}
		rb, err := f.Board()
		if err != nil {
			t.Fatal(err)
		}
		if rb.ShipCells() != b.ShipCells() || len(rb.Ships()) != 0 {
			t.Errorf("%s: rebuilt board cells=%d ships=%d", p.Name, rb.ShipCells(), len(rb.Ships()))
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line int
	}{
		{"empty", "", 0},
		{"no dims", "4;1;1;0;0;0;0\n", 1},
		{"not square", "4x5;1;1;0;0;0;0\n", 1},
		{"too large", "17x17;1;0;0;0;0;0\n", 1},
		{"few counts", "2x2;1;0\n#.\n..\n", 1},
		{"bad count", "2x2;1;x;0;0;0;0\n#.\n..\n", 1},
		{"negative count", "2x2;-1;0;0;0;0;0\n#.\n..\n", 1},
		{"short row", "2x2;1;0;0;0;0;0\n#\n..\n", 2},
		{"long row", "2x2;1;0;0;0;0;0\n#..\n..\n", 2},
		{"bad mark", "2x2;1;0;0;0;0;0\n#.\n.x\n", 3},
		{"missing rows", "2x2;1;0;0;0;0;0\n#.\n", 0},
		{"extra rows", "2x2;1;0;0;0;0;0\n#.\n..\n..\n", 4},
	}
	for _, tt := range tests {
		_, err := Decode(tt.in)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%s: err = %v, want *ParseError", tt.name, err)
			continue
		}
		if pe.Line != tt.line {
			t.Errorf("%s: line = %d, want %d (%v)", tt.name, pe.Line, tt.line, err)
		}
	}
}

func TestDecodeToleratesCRLF(t *testing.T) {
	in := strings.ReplaceAll("2x2;1;0;0;0;0;0\n#.\n..\n\n", "\n", "\r\n")
	f, err := Decode(in)
	if err != nil {
		t.Fatal(err)
	}
	if f.Grid[0][0] != 1 || f.Grid[1][1] != 0 {
		t.Errorf("grid = %v", f.Grid)
	}
}
