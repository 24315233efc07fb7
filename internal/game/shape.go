package game

// Shape is a rectangular 0/1 footprint matrix. Rows need not equal columns.
type Shape [][]uint8

func (s Shape) Rows() int { return len(s) }

func (s Shape) Cols() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// Cells returns the number of occupied cells.
func (s Shape) Cells() int {
	n := 0
	for _, row := range s {
		for _, v := range row {
			if v != 0 {
				n++
			}
		}
	}
	return n
}

func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for r := range s {
		if len(s[r]) != len(o[r]) {
			return false
		}
		for c := range s[r] {
			if s[r][c] != o[r][c] {
				return false
			}
		}
	}
	return true
}

func (s Shape) clone() Shape {
	out := make(Shape, len(s))
	for r := range s {
		out[r] = append([]uint8(nil), s[r]...)
	}
	return out
}

// Rotation is a clockwise rotation in degrees.
type Rotation int

const (
	Rot0   Rotation = 0
	Rot90  Rotation = 90
	Rot180 Rotation = 180
	Rot270 Rotation = 270
)

var Rotations = []Rotation{Rot0, Rot90, Rot180, Rot270}

func (r Rotation) Valid() bool {
	switch r {
	case Rot0, Rot90, Rot180, Rot270:
		return true
	}
	return false
}

// Rotate returns a new matrix turned clockwise by deg. The input is never
// modified. Only the four quarter turns are defined; any other deg yields nil,
// which no placement accepts.
func Rotate(s Shape, deg Rotation) Shape {
	if !deg.Valid() {
		return nil
	}
	turns := int(deg) / 90
	out := s.clone()
	for i := 0; i < turns; i++ {
		out = rotate90(out)
	}
	return out
}

// (row, col) of an r x c matrix lands on (col, r-1-row) of the c x r result.
func rotate90(s Shape) Shape {
	rows, cols := s.Rows(), s.Cols()
	out := make(Shape, cols)
	for c := range out {
		out[c] = make([]uint8, rows)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out[c][rows-1-r] = s[r][c]
		}
	}
	return out
}
