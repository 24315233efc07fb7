package game

import "math/rand/v2"

// up, down, left, right
var huntOrder = []Coord{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// SelectTarget picks the computer's next shot. It hunts around known hits
// first (row-major scan, neighbours in huntOrder) and otherwise draws
// uniformly from the unknown cells. ok is false only when nothing is unknown.
func SelectTarget(v *Revealed, rng *rand.Rand) (row, col int, ok bool) {
	for r := 0; r < v.Size; r++ {
		for c := 0; c < v.Size; c++ {
			if v.Cells[r][c] <= 0 {
				continue
			}
			for _, d := range huntOrder {
				nr, nc := r+d.Row, c+d.Col
				if v.InBounds(nr, nc) && v.Cells[nr][nc] == Unknown {
					return nr, nc, true
				}
			}
		}
	}
	open := v.Unknowns()
	if len(open) == 0 {
		return 0, 0, false
	}
	pick := open[rng.IntN(len(open))]
	return pick.Row, pick.Col, true
}
