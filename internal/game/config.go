package game

import (
	"errors"
	"fmt"
	"strings"
)

// MaxBoardSize is bounded by the 256-leaf fleet commitment tree.
const MaxBoardSize = 16

// Composition maps a ship kind to the number of units required.
type Composition map[ShipKind]int

// CompositionFromCounts builds a composition from counts in canonical order.
func CompositionFromCounts(counts []int) (Composition, error) {
	if len(counts) != NumKinds() {
		return nil, fmt.Errorf("expected %d ship counts, got %d", NumKinds(), len(counts))
	}
	comp := Composition{}
	for i, n := range counts {
		if n < 0 {
			return nil, fmt.Errorf("negative count %d for %s", n, ShipKind(i))
		}
		if n > 0 {
			comp[ShipKind(i)] = n
		}
	}
	return comp, nil
}

// Counts returns the per-kind counts in canonical order.
func (c Composition) Counts() []int {
	out := make([]int, NumKinds())
	for k, n := range c {
		if k.Valid() {
			out[k] = n
		}
	}
	return out
}

func (c Composition) Units() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Cells is the total number of ship cells the composition occupies.
func (c Composition) Cells() int {
	n := 0
	for k, v := range c {
		n += k.Size() * v
	}
	return n
}

func (c Composition) Equal(o Composition) bool {
	a, b := c.Counts(), o.Counts()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c Composition) Clone() Composition {
	out := make(Composition, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

type Config struct {
	Tier  string      `json:"tier"`
	Size  int         `json:"size"`
	Fleet Composition `json:"fleet"`
}

var ErrEmptyFleet = errors.New("fleet composition is empty")

func (c Config) Validate() error {
	if c.Size < 1 || c.Size > MaxBoardSize {
		return fmt.Errorf("board size %d out of range [1,%d]", c.Size, MaxBoardSize)
	}
	for k, n := range c.Fleet {
		if !k.Valid() {
			return fmt.Errorf("unknown ship kind %d", int(k))
		}
		if n < 0 {
			return fmt.Errorf("negative count %d for %s", n, k)
		}
	}
	if c.Fleet.Units() == 0 {
		return ErrEmptyFleet
	}
	if c.Fleet.Cells() > c.Size*c.Size {
		return fmt.Errorf("fleet needs %d cells, board has %d", c.Fleet.Cells(), c.Size*c.Size)
	}
	return nil
}

// Preset is one of the fixed difficulty tiers.
type Preset struct {
	Name     string
	Size     int
	Defaults []int
	Max      []int
}

var presets = []Preset{
	{Name: "easy", Size: 8, Defaults: []int{2, 2, 1, 0, 0, 0}, Max: []int{4, 3, 2, 1, 0, 0}},
	{Name: "medium", Size: 10, Defaults: []int{4, 3, 2, 1, 0, 0}, Max: []int{5, 4, 3, 2, 1, 0}},
	{Name: "hard", Size: 12, Defaults: []int{4, 3, 2, 1, 1, 0}, Max: []int{6, 5, 4, 2, 2, 1}},
	{Name: "expert", Size: 15, Defaults: []int{4, 3, 2, 2, 1, 1}, Max: []int{8, 6, 5, 3, 2, 2}},
}

func Presets() []Preset { return append([]Preset(nil), presets...) }

func LookupPreset(name string) (Preset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range presets {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown tier %q", name)
}

// Config returns the tier's default configuration.
func (p Preset) Config() Config {
	comp, _ := CompositionFromCounts(p.Defaults)
	return Config{Tier: p.Name, Size: p.Size, Fleet: comp}
}

// Custom returns a configuration on the tier's board with caller-chosen
// counts, each bounded by the tier's maximum for that kind.
func (p Preset) Custom(comp Composition) (Config, error) {
	for k, n := range comp {
		if !k.Valid() {
			return Config{}, fmt.Errorf("unknown ship kind %d", int(k))
		}
		if n < 0 || n > p.Max[k] {
			return Config{}, fmt.Errorf("%s count %d out of range [0,%d] for tier %s", k, n, p.Max[k], p.Name)
		}
	}
	cfg := Config{Tier: p.Name, Size: p.Size, Fleet: comp.Clone()}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
