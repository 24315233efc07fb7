package game

import (
	"errors"
	"fmt"
)

// CanPlace reports whether footprint anchored at (row, col) fits on b: every
// occupied cell in bounds, empty, and with only water in its 8-neighbourhood.
// It never mutates the board.
func CanPlace(b *Board, row, col int, footprint Shape) bool {
	if footprint.Cells() == 0 {
		return false
	}
	for fr := range footprint {
		for fc := range footprint[fr] {
			if footprint[fr][fc] == 0 {
				continue
			}
			r, c := row+fr, col+fc
			if !b.InBounds(r, c) || b.Cells[r][c] != Empty {
				return false
			}
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					nr, nc := r+dr, c+dc
					if b.InBounds(nr, nc) && b.Cells[nr][nc] != Empty {
						return false
					}
				}
			}
		}
	}
	return true
}

// ErrLayoutMismatch means an occupancy grid cannot be read as a legal fleet.
var ErrLayoutMismatch = errors.New("field layout is not a legal fleet")

// LayoutComposition reads raw occupancy back as a fleet. Ships never touch and
// every footprint is connected, so each 8-connected group of occupied cells
// must be exactly one ship in one of its rotations.
func LayoutComposition(grid [][]uint8) (Composition, error) {
	n := len(grid)
	seen := make([][]bool, n)
	for r := range seen {
		seen[r] = make([]bool, len(grid[r]))
	}
	comp := Composition{}
	for r := range grid {
		for c := range grid[r] {
			if grid[r][c] == 0 || seen[r][c] {
				continue
			}
			group := floodGroup(grid, seen, r, c)
			kind, ok := matchFootprint(group)
			if !ok {
				return nil, fmt.Errorf("%w: cells at (%d,%d) form no ship of the library", ErrLayoutMismatch, r, c)
			}
			comp[kind]++
		}
	}
	return comp, nil
}

func floodGroup(grid [][]uint8, seen [][]bool, row, col int) []Coord {
	stack := []Coord{{row, col}}
	seen[row][col] = true
	var group []Coord
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		group = append(group, p)
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				r, c := p.Row+dr, p.Col+dc
				if r < 0 || r >= len(grid) || c < 0 || c >= len(grid[r]) {
					continue
				}
				if grid[r][c] != 0 && !seen[r][c] {
					seen[r][c] = true
					stack = append(stack, Coord{r, c})
				}
			}
		}
	}
	return group
}

// matchFootprint crops a group to its bounding box and looks it up among the
// rotated library footprints.
func matchFootprint(group []Coord) (ShipKind, bool) {
	minR, minC, maxR, maxC := group[0].Row, group[0].Col, group[0].Row, group[0].Col
	for _, p := range group[1:] {
		minR, maxR = min(minR, p.Row), max(maxR, p.Row)
		minC, maxC = min(minC, p.Col), max(maxC, p.Col)
	}
	shape := make(Shape, maxR-minR+1)
	for r := range shape {
		shape[r] = make([]uint8, maxC-minC+1)
	}
	for _, p := range group {
		shape[p.Row-minR][p.Col-minC] = 1
	}
	for _, t := range library {
		if t.Size != len(group) {
			continue
		}
		for _, rot := range Rotations {
			if Rotate(t.Footprint, rot).Equal(shape) {
				return t.Kind, true
			}
		}
	}
	return 0, false
}
