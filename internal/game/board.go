package game

import (
	"errors"
	"fmt"
)

// Cell values on a Board: 0 = water, >0 = id of the ship covering the cell.
const Empty = 0

// ImportedShipID marks cells restored from a fieldfile, where individual
// ship identity is lost.
const ImportedShipID = 1 << 30

// Cell values on a Revealed grid.
const (
	Unknown = 0
	Miss    = -1
)

type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// PlacedShip is a ship committed to a board. Its cells are derived from the
// rotated footprint and the anchor (top-left of the rotated matrix).
type PlacedShip struct {
	ID       int      `json:"id"`
	Kind     ShipKind `json:"kind"`
	Row      int      `json:"row"`
	Col      int      `json:"col"`
	Rotation Rotation `json:"rotation"`
}

func (p PlacedShip) Cells() []Coord {
	fp := Rotate(library[p.Kind].Footprint, p.Rotation)
	out := make([]Coord, 0, library[p.Kind].Size)
	for r := range fp {
		for c := range fp[r] {
			if fp[r][c] != 0 {
				out = append(out, Coord{Row: p.Row + r, Col: p.Col + c})
			}
		}
	}
	return out
}

// Board is the N x N occupancy grid.
type Board struct {
	Size  int     `json:"size"`
	Cells [][]int `json:"cells"`

	ships  []PlacedShip
	nextID int
}

func newGrid(n int) [][]int {
	g := make([][]int, n)
	for r := range g {
		g[r] = make([]int, n)
	}
	return g
}

func NewBoard(n int) *Board {
	return &Board{Size: n, Cells: newGrid(n), nextID: 1}
}

func (b *Board) InBounds(r, c int) bool {
	return r >= 0 && r < b.Size && c >= 0 && c < b.Size
}

func (b *Board) At(r, c int) int { return b.Cells[r][c] }

// Ships returns the placed ships in placement order.
func (b *Board) Ships() []PlacedShip { return append([]PlacedShip(nil), b.ships...) }

// ShipCells counts occupied cells.
func (b *Board) ShipCells() int {
	total := 0
	for r := 0; r < b.Size; r++ {
		for c := 0; c < b.Size; c++ {
			if b.Cells[r][c] != Empty {
				total++
			}
		}
	}
	return total
}

// Occupancy returns a 0/1 copy of the grid.
func (b *Board) Occupancy() [][]uint8 {
	out := make([][]uint8, b.Size)
	for r := range out {
		out[r] = make([]uint8, b.Size)
		for c := range out[r] {
			if b.Cells[r][c] != Empty {
				out[r][c] = 1
			}
		}
	}
	return out
}

// Flatten returns the occupancy bits row-major.
func (b *Board) Flatten() []uint8 {
	out := make([]uint8, 0, b.Size*b.Size)
	for _, row := range b.Occupancy() {
		out = append(out, row...)
	}
	return out
}

var ErrInvalidPlacement = errors.New("invalid ship placement")

// Place validates and commits a ship. The board is unchanged on error.
func (b *Board) Place(kind ShipKind, row, col int, rot Rotation) (PlacedShip, error) {
	if !kind.Valid() || !rot.Valid() {
		return PlacedShip{}, ErrInvalidPlacement
	}
	if !CanPlace(b, row, col, Rotate(library[kind].Footprint, rot)) {
		return PlacedShip{}, ErrInvalidPlacement
	}
	if b.nextID == 0 {
		b.nextID = 1
	}
	ps := PlacedShip{ID: b.nextID, Kind: kind, Row: row, Col: col, Rotation: rot}
	b.nextID++
	for _, cell := range ps.Cells() {
		b.Cells[cell.Row][cell.Col] = ps.ID
	}
	b.ships = append(b.ships, ps)
	return ps, nil
}

var ErrShipNotFound = errors.New("ship not found")

// Remove lifts a placed ship off the board.
func (b *Board) Remove(id int) (PlacedShip, error) {
	for i, ps := range b.ships {
		if ps.ID != id {
			continue
		}
		for _, cell := range ps.Cells() {
			b.Cells[cell.Row][cell.Col] = Empty
		}
		b.ships = append(b.ships[:i], b.ships[i+1:]...)
		return ps, nil
	}
	return PlacedShip{}, ErrShipNotFound
}

func (b *Board) Clear() {
	b.Cells = newGrid(b.Size)
	b.ships = nil
	b.nextID = 1
}

// LoadOccupancy replaces the grid with raw 0/1 occupancy. The result has no
// individually addressable ships.
func (b *Board) LoadOccupancy(grid [][]uint8) error {
	if len(grid) != b.Size {
		return fmt.Errorf("grid has %d rows, board is %d", len(grid), b.Size)
	}
	cells := newGrid(b.Size)
	for r, row := range grid {
		if len(row) != b.Size {
			return fmt.Errorf("grid row %d has %d cells, board is %d", r, len(row), b.Size)
		}
		for c, v := range row {
			if v != 0 {
				cells[r][c] = ImportedShipID
			}
		}
	}
	b.Cells = cells
	b.ships = nil
	b.nextID = 1
	return nil
}

// Revealed is the shot grid one side builds against the other's board.
type Revealed struct {
	Size  int     `json:"size"`
	Cells [][]int `json:"cells"`
	hits  int
}

func NewRevealed(n int) *Revealed {
	return &Revealed{Size: n, Cells: newGrid(n)}
}

func (v *Revealed) InBounds(r, c int) bool {
	return r >= 0 && r < v.Size && c >= 0 && c < v.Size
}

func (v *Revealed) Hits() int { return v.hits }

func (v *Revealed) Unknowns() []Coord {
	var out []Coord
	for r := 0; r < v.Size; r++ {
		for c := 0; c < v.Size; c++ {
			if v.Cells[r][c] == Unknown {
				out = append(out, Coord{Row: r, Col: c})
			}
		}
	}
	return out
}

// reveal records a shot at (r,c) against target. A cell is revealed at most
// once; ok is false when the shot is out of bounds or already taken.
func (v *Revealed) reveal(target *Board, r, c int) (value int, ok bool) {
	if !v.InBounds(r, c) || v.Cells[r][c] != Unknown {
		return 0, false
	}
	value = target.Cells[r][c]
	if value == Empty {
		value = Miss
	} else {
		v.hits++
	}
	v.Cells[r][c] = value
	return value, true
}
