package game

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

// MaxPlacementTries bounds the random draws spent on a single ship unit.
const MaxPlacementTries = 1000

// UnderfilledFleetError names the units the generator could not place.
type UnderfilledFleetError struct {
	Size    int
	Missing Composition
}

func (e *UnderfilledFleetError) Error() string {
	kinds := make([]ShipKind, 0, len(e.Missing))
	for k := range e.Missing {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s x%d", k, e.Missing[k]))
	}
	return fmt.Sprintf("fleet underfilled on %dx%d board: %s", e.Size, e.Size, strings.Join(parts, ", "))
}

// GenerateFleet places every unit of comp at random on a fresh size x size
// board. Larger ship kinds go first. When a unit exhausts MaxPlacementTries
// the remaining units are still attempted and an *UnderfilledFleetError is
// returned instead of a board.
func GenerateFleet(size int, comp Composition, rng *rand.Rand) (*Board, error) {
	b := NewBoard(size)
	missing := Composition{}
	for k := ShipKind(NumKinds() - 1); k >= 0; k-- {
		for unit := 0; unit < comp[k]; unit++ {
			if !placeRandom(b, k, rng) {
				missing[k]++
			}
		}
	}
	if len(missing) > 0 {
		return nil, &UnderfilledFleetError{Size: size, Missing: missing}
	}
	return b, nil
}

func placeRandom(b *Board, k ShipKind, rng *rand.Rand) bool {
	for try := 0; try < MaxPlacementTries; try++ {
		r := rng.IntN(b.Size)
		c := rng.IntN(b.Size)
		rot := Rotations[rng.IntN(len(Rotations))]
		if _, err := b.Place(k, r, c, rot); err == nil {
			return true
		}
	}
	return false
}

// GenerateFleetRetry reruns GenerateFleet up to attempts times, returning the
// last underfill error when every attempt fails.
func GenerateFleetRetry(size int, comp Composition, rng *rand.Rand, attempts int) (*Board, error) {
	var err error
	for i := 0; i < max(attempts, 1); i++ {
		var b *Board
		if b, err = GenerateFleet(size, comp, rng); err == nil {
			return b, nil
		}
	}
	return nil, err
}
