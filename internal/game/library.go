package game

import (
	"fmt"
	"strings"
)

// ShipKind indexes the ship library. The numeric order is the canonical order
// used wherever per-type counts are serialized.
type ShipKind int

const (
	PatrolBoat ShipKind = iota
	Destroyer
	Cruiser
	Battleship
	Hovercraft
	Carrier
)

type ShipType struct {
	Kind      ShipKind `json:"kind"`
	Key       string   `json:"key"`
	Name      string   `json:"name"`
	Size      int      `json:"size"`
	Footprint Shape    `json:"footprint"`
}

var library = []ShipType{
	{Kind: PatrolBoat, Key: "patrol", Name: "Patrol boat", Footprint: Shape{{1}}},
	{Kind: Destroyer, Key: "destroyer", Name: "Destroyer", Footprint: Shape{{1, 1}}},
	{Kind: Cruiser, Key: "cruiser", Name: "Cruiser", Footprint: Shape{{1, 1, 1}}},
	{Kind: Battleship, Key: "battleship", Name: "Battleship", Footprint: Shape{{1, 1, 1, 1}}},
	{Kind: Hovercraft, Key: "hovercraft", Name: "Hovercraft", Footprint: Shape{
		{1, 1, 1},
		{0, 1, 0},
	}},
	{Kind: Carrier, Key: "carrier", Name: "Aircraft carrier", Footprint: Shape{
		{0, 0, 1, 0, 0},
		{1, 1, 1, 1, 1},
		{0, 1, 1, 1, 0},
	}},
}

func init() {
	for i := range library {
		library[i].Size = library[i].Footprint.Cells()
	}
}

// Library returns the ship types in canonical order. Footprints are copies.
func Library() []ShipType {
	out := make([]ShipType, len(library))
	for i, t := range library {
		t.Footprint = t.Footprint.clone()
		out[i] = t
	}
	return out
}

func NumKinds() int { return len(library) }

func (k ShipKind) Valid() bool { return k >= 0 && int(k) < len(library) }

func (k ShipKind) Type() ShipType {
	t := library[k]
	t.Footprint = t.Footprint.clone()
	return t
}

func (k ShipKind) Size() int { return library[k].Size }

func (k ShipKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("ShipKind(%d)", int(k))
	}
	return library[k].Key
}

// ParseShipKind accepts a library key ("cruiser") case-insensitively.
func ParseShipKind(s string) (ShipKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range library {
		if t.Key == s {
			return t.Kind, nil
		}
	}
	return 0, fmt.Errorf("unknown ship type %q", s)
}
