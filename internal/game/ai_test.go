package game

import (
	"math/rand/v2"
	"testing"
)

func TestSelectTargetHuntsNeighbours(t *testing.T) {
	rng := testRand()
	v := NewRevealed(5)
	v.Cells[2][2] = 3

	tests := []struct {
		resolve []Coord
		want    Coord
	}{
		{nil, Coord{1, 2}},
		{[]Coord{{1, 2}}, Coord{3, 2}},
		{[]Coord{{3, 2}}, Coord{2, 1}},
		{[]Coord{{2, 1}}, Coord{2, 3}},
	}
	for i, tt := range tests {
		for _, c := range tt.resolve {
			v.Cells[c.Row][c.Col] = Miss
		}
		r, c, ok := SelectTarget(v, rng)
		if !ok || r != tt.want.Row || c != tt.want.Col {
			t.Errorf("step %d: SelectTarget = (%d,%d,%v), want %v", i, r, c, ok, tt.want)
		}
	}
}

func TestSelectTargetSkipsOffBoardNeighbours(t *testing.T) {
	v := NewRevealed(3)
	v.Cells[0][0] = 1
	r, c, ok := SelectTarget(v, testRand())
	if !ok || r != 1 || c != 0 {
		t.Fatalf("SelectTarget = (%d,%d,%v), want (1,0)", r, c, ok)
	}
}

func TestSelectTargetAlwaysUnknown(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 9))
	for trial := 0; trial < 50; trial++ {
		v := NewRevealed(6)
		// Reveal a random subset, leaving at least one cell unknown.
		for r := 0; r < 6; r++ {
			for c := 0; c < 6; c++ {
				if (r != 5 || c != 5) && rng.IntN(3) > 0 {
					v.Cells[r][c] = Miss
					if rng.IntN(4) == 0 {
						v.Cells[r][c] = 2
					}
				}
			}
		}
		r, c, ok := SelectTarget(v, rng)
		if !ok || v.Cells[r][c] != Unknown {
			t.Fatalf("trial %d: SelectTarget = (%d,%d,%v) value %d", trial, r, c, ok, v.Cells[r][c])
		}
	}

	full := NewRevealed(2)
	for r := range full.Cells {
		for c := range full.Cells[r] {
			full.Cells[r][c] = Miss
		}
	}
	if _, _, ok := SelectTarget(full, rng); ok {
		t.Fatal("SelectTarget on a fully revealed grid reported ok")
	}
}
