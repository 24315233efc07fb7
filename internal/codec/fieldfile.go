package codec

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"seabattle/internal/game"
)

// Extension is the suggested file suffix for encoded layouts.
const Extension = ".fieldfile"

const (
	ShipMark  = '#'
	WaterMark = '.'
)

// Field is a decoded layout: raw occupancy plus the fleet composition. Ship
// identity, rotation and anchors are not part of the format.
type Field struct {
	Size  int
	Grid  [][]uint8
	Fleet game.Composition
}

// Board rebuilds an occupancy-only board from the field.
func (f *Field) Board() (*game.Board, error) {
	b := game.NewBoard(f.Size)
	if err := b.LoadOccupancy(f.Grid); err != nil {
		return nil, err
	}
	return b, nil
}

type ParseError struct {
	Line int // 1-based, 0 when the error is not tied to a line
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return "fieldfile: " + e.Msg
	}
	return fmt.Sprintf("fieldfile: line %d: %s", e.Line, e.Msg)
}

func parseErr(line int, format string, args ...any) error {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Encode writes "NxN;c1;...;ck" followed by N rows of N marks. Counts follow
// the ship library order.
func Encode(b *game.Board, comp game.Composition) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d", b.Size, b.Size)
	for _, n := range comp.Counts() {
		sb.WriteByte(';')
		sb.WriteString(strconv.Itoa(n))
	}
	sb.WriteByte('\n')
	for _, row := range b.Occupancy() {
		for _, v := range row {
			if v != 0 {
				sb.WriteByte(ShipMark)
			} else {
				sb.WriteByte(WaterMark)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Decode parses Encode's output. Any malformed input yields a *ParseError.
func Decode(text string) (*Field, error) {
	sc := bufio.NewScanner(strings.NewReader(text))
	if !sc.Scan() {
		return nil, parseErr(0, "empty input")
	}
	size, fleet, err := parseHeader(strings.TrimRight(sc.Text(), "\r"))
	if err != nil {
		return nil, err
	}

	grid := make([][]uint8, 0, size)
	line := 1
	for sc.Scan() {
		line++
		row := strings.TrimRight(sc.Text(), "\r")
		if len(grid) == size {
			if strings.TrimSpace(row) != "" {
				return nil, parseErr(line, "unexpected content after %d rows", size)
			}
			continue
		}
		if len(row) != size {
			return nil, parseErr(line, "row has %d cells, want %d", len(row), size)
		}
		cells := make([]uint8, size)
		for i := 0; i < size; i++ {
			switch row[i] {
			case ShipMark:
				cells[i] = 1
			case WaterMark:
			default:
				return nil, parseErr(line, "invalid mark %q at column %d", row[i], i+1)
			}
		}
		grid = append(grid, cells)
	}
	if err := sc.Err(); err != nil {
		return nil, parseErr(0, "%v", err)
	}
	if len(grid) != size {
		return nil, parseErr(0, "got %d rows, want %d", len(grid), size)
	}
	return &Field{Size: size, Grid: grid, Fleet: fleet}, nil
}

func parseHeader(h string) (int, game.Composition, error) {
	parts := strings.Split(h, ";")
	dims := strings.Split(parts[0], "x")
	if len(dims) != 2 {
		return 0, nil, parseErr(1, "bad dimensions %q", parts[0])
	}
	rows, err1 := strconv.Atoi(dims[0])
	cols, err2 := strconv.Atoi(dims[1])
	if err1 != nil || err2 != nil {
		return 0, nil, parseErr(1, "bad dimensions %q", parts[0])
	}
	if rows != cols {
		return 0, nil, parseErr(1, "board must be square, got %dx%d", rows, cols)
	}
	if rows < 1 || rows > game.MaxBoardSize {
		return 0, nil, parseErr(1, "board size %d out of range [1,%d]", rows, game.MaxBoardSize)
	}
	if len(parts)-1 != game.NumKinds() {
		return 0, nil, parseErr(1, "got %d ship counts, want %d", len(parts)-1, game.NumKinds())
	}
	counts := make([]int, 0, game.NumKinds())
	for i, p := range parts[1:] {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, nil, parseErr(1, "bad count %q for %s", p, game.ShipKind(i))
		}
		counts = append(counts, n)
	}
	comp, err := game.CompositionFromCounts(counts)
	if err != nil {
		return 0, nil, parseErr(1, "%v", err)
	}
	return rows, comp, nil
}
