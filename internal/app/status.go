package app

import "seabattle/internal/game"

// Status is a point-in-time copy of a session, safe to serialize without the
// session lock.
type Status struct {
	ID     string     `json:"id"`
	Player string     `json:"player"`
	Mode   game.Mode  `json:"mode"`
	Tier   string     `json:"tier"`
	Size   int        `json:"size"`
	Phase  game.Phase `json:"phase"`
	Turn   game.Side  `json:"turn"`
	Winner game.Side  `json:"winner"`

	Fleet     []int `json:"fleet"`               // counts in ship library order
	Remaining []int `json:"remaining,omitempty"` // setup only

	Board [][]int           `json:"board,omitempty"` // player's own board
	Ships []game.PlacedShip `json:"ships,omitempty"`

	Shots         [][]int `json:"shots,omitempty"`         // player's view of the computer
	ComputerShots [][]int `json:"computerShots,omitempty"` // computer's view of the player

	Moves         int        `json:"moves"`
	ComputerMoves int        `json:"computerMoves"`
	ElapsedMs     int64      `json:"elapsedMs"`
	RootHex       string     `json:"rootHex,omitempty"` // computer fleet commitment
	Pending       bool       `json:"pending"`
	LastShot      *game.Shot `json:"lastShot,omitempty"`
	Closed        bool       `json:"closed,omitempty"`
}

func copyGrid(g [][]int) [][]int {
	if g == nil {
		return nil
	}
	out := make([][]int, len(g))
	for i := range g {
		out[i] = append([]int(nil), g[i]...)
	}
	return out
}

func (s *Session) statusLocked() Status {
	m := s.match
	cfg := m.Config()
	st := Status{
		ID:            s.ID.String(),
		Player:        s.Player,
		Mode:          m.Mode(),
		Tier:          cfg.Tier,
		Size:          cfg.Size,
		Phase:         m.Phase(),
		Turn:          m.Turn(),
		Winner:        m.Winner(),
		Fleet:         cfg.Fleet.Counts(),
		Moves:         m.Moves(game.Player),
		ComputerMoves: m.Moves(game.Computer),
		ElapsedMs:     m.Elapsed().Milliseconds(),
		Pending:       s.pending != nil,
		Closed:        s.closed,
	}
	if m.Phase() == game.Setup {
		st.Remaining = m.Remaining().Counts()
	}
	if b := m.PlayerBoard(); b != nil {
		st.Board = copyGrid(b.Cells)
		st.Ships = b.Ships()
	}
	if v := m.PlayerShots(); v != nil {
		st.Shots = copyGrid(v.Cells)
	}
	if v := m.ComputerShots(); v != nil {
		st.ComputerShots = copyGrid(v.Cells)
	}
	if s.commit != nil {
		st.RootHex = s.commit.RootHex
	}
	if s.last != nil {
		shot := *s.last
		st.LastShot = &shot
	}
	return st
}
