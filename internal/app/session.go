package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"seabattle/internal/codec"
	"seabattle/internal/game"
	"seabattle/internal/stats"
)

// DefaultComputerDelay paces the computer's reply in competitive play.
const DefaultComputerDelay = 700 * time.Millisecond

// Sink receives one record per finished match.
type Sink interface {
	Record(ctx context.Context, r stats.Record) error
}

type Options struct {
	Delay  time.Duration
	Sink   Sink
	Logger *zerolog.Logger
	// Rand drives one session's fleets and targeting. It is not safe for
	// concurrent use; Manager derives a fresh source per session from it.
	Rand   *rand.Rand
	Clock  func() time.Time
}

var (
	ErrSessionClosed = errors.New("session closed")
	ErrNotFinished   = errors.New("match is not finished")
)

// Session owns exactly one match. All access goes through its mutex; the
// deferred computer move is the only background actor.
type Session struct {
	ID     uuid.UUID
	Player string

	mu      sync.Mutex
	match   *game.Match
	commit  *CommitResult // computer fleet, set once active
	last    *game.Shot
	closed  bool
	pending context.CancelFunc
	subs    map[chan Status]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	delay  time.Duration
	sink   Sink
	log    zerolog.Logger
	now    func() time.Time
}

func NewSession(player string, cfg game.Config, mode game.Mode, opts Options) (*Session, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:     uuid.New(),
		Player: player,
		subs:   make(map[chan Status]struct{}),
		ctx:    ctx,
		cancel: cancel,
		delay:  opts.Delay,
		sink:   opts.Sink,
		now:    opts.Clock,
	}
	s.log = log.With().Str("session", s.ID.String()).Str("player", player).Logger()

	// The computer's fleet is committed before the match can turn active.
	gopts := []game.Option{game.WithClock(opts.Clock), game.OnActivate(func(b *game.Board) error {
		return s.commitFleet(b, cfg.Fleet)
	})}
	if opts.Rand != nil {
		gopts = append(gopts, game.WithRand(opts.Rand))
	}
	m, err := game.NewMatch(cfg, mode, gopts...)
	if err != nil {
		cancel()
		return nil, err
	}
	s.match = m
	s.log.Info().Str("mode", string(mode)).Str("tier", cfg.Tier).Int("size", cfg.Size).Msg("match created")
	return s, nil
}

// commitFleet runs inside match activation, under the session lock once the
// session is shared.
func (s *Session) commitFleet(computer *game.Board, fleet game.Composition) error {
	res, err := CommitBoard(computer, fleet)
	if err != nil {
		return fmt.Errorf("commit computer fleet: %w", err)
	}
	s.commit = res
	return nil
}

// Close discards the match and cancels any pending computer move.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.pending = nil
	for ch := range s.subs {
		close(ch)
	}
	s.subs = nil
	s.log.Info().Msg("session closed")
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Subscribe streams a status snapshot after every change. Slow readers only
// see the latest snapshot. The channel is closed with the session.
func (s *Session) Subscribe() (<-chan Status, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Status, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	ch <- s.statusLocked()
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

func (s *Session) broadcastLocked() {
	if len(s.subs) == 0 {
		return
	}
	st := s.statusLocked()
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

// mutate runs a setup action under the lock and notifies subscribers on success.
func (s *Session) mutate(fn func(m *game.Match) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err := fn(s.match); err != nil {
		return err
	}
	s.broadcastLocked()
	return nil
}

func (s *Session) PlaceShip(kind game.ShipKind, row, col int, rot game.Rotation) (game.PlacedShip, error) {
	var ps game.PlacedShip
	err := s.mutate(func(m *game.Match) (err error) {
		ps, err = m.PlaceShip(kind, row, col, rot)
		return err
	})
	return ps, err
}

func (s *Session) RemoveShip(id int) error {
	return s.mutate(func(m *game.Match) error { return m.RemoveShip(id) })
}

func (s *Session) AutoPlace() error {
	return s.mutate(func(m *game.Match) error { return m.AutoPlace() })
}

func (s *Session) ClearBoard() error {
	return s.mutate(func(m *game.Match) error { return m.ClearBoard() })
}

// ImportField loads fieldfile text as the player's fleet. A parse error
// leaves the current board untouched.
func (s *Session) ImportField(text string) error {
	f, err := codec.Decode(text)
	if err != nil {
		return err
	}
	return s.mutate(func(m *game.Match) error {
		if f.Size != m.Config().Size {
			return errors.New("field size does not match the match board")
		}
		return m.ImportField(f.Grid, f.Fleet)
	})
}

// ExportField encodes the player's board, or the computer's in classic mode
// once the match is over.
func (s *Session) ExportField() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.match
	b := m.PlayerBoard()
	if b == nil {
		if m.Phase() != game.Finished {
			return "", ErrNotFinished
		}
		b = m.ComputerBoard()
	}
	return codec.Encode(b, m.Config().Fleet), nil
}

func (s *Session) Start() error {
	return s.mutate(func(m *game.Match) error {
		if err := m.Start(); err != nil {
			return err
		}
		s.log.Info().Msg("match started")
		return nil
	})
}

// Fire applies the player's shot. Ignored shots return ok == false. In
// competitive play the computer's reply is scheduled after the session delay.
func (s *Session) Fire(row, col int) (game.Shot, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return game.Shot{}, false
	}
	shot, ok := s.match.Fire(row, col)
	var rec *stats.Record
	if ok {
		rec = s.afterShotLocked(shot)
		if s.match.Phase() == game.Active && s.match.Turn() == game.Computer {
			s.scheduleLocked()
		}
		s.broadcastLocked()
	}
	s.mu.Unlock()

	s.emit(rec)
	return shot, ok
}

func (s *Session) scheduleLocked() {
	ctx, cancel := context.WithCancel(s.ctx)
	s.pending = cancel
	After(ctx, s.delay, s.computerMove)
}

func (s *Session) computerMove(ctx context.Context) {
	s.mu.Lock()
	if ctx.Err() != nil || s.closed {
		s.mu.Unlock()
		return
	}
	if s.pending != nil {
		s.pending()
		s.pending = nil
	}
	shot, ok := s.match.ComputerFire()
	var rec *stats.Record
	if ok {
		rec = s.afterShotLocked(shot)
		s.broadcastLocked()
	}
	s.mu.Unlock()

	s.emit(rec)
}

func (s *Session) afterShotLocked(shot game.Shot) *stats.Record {
	s.last = &shot
	s.log.Debug().Str("shooter", string(shot.Shooter)).Int("row", shot.Row).Int("col", shot.Col).
		Bool("hit", shot.Hit).Msg("shot")
	if !shot.Finished {
		return nil
	}
	m := s.match
	rec := &stats.Record{
		Player:     s.Player,
		Mode:       string(m.Mode()),
		Difficulty: m.Config().Tier,
		Moves:      m.Moves(game.Player),
		ElapsedMs:  m.Elapsed().Milliseconds(),
		Result:     "loss",
		Timestamp:  s.now().UTC(),
	}
	if m.Winner() == game.Player {
		rec.Result = "win"
	}
	if m.Mode() == game.Competitive {
		n := m.Moves(game.Computer)
		rec.ComputerMoves = &n
	}
	s.log.Info().Str("winner", string(m.Winner())).Int("moves", rec.Moves).Int64("elapsed_ms", rec.ElapsedMs).
		Msg("match finished")
	return rec
}

func (s *Session) emit(rec *stats.Record) {
	if rec == nil || s.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sink.Record(ctx, *rec); err != nil {
		s.log.Error().Err(err).Msg("record stats")
	}
}

// Reveal discloses the computer's committed fleet once the match is over.
func (s *Session) Reveal() (*codec.Reveal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.match.Phase() != game.Finished {
		return nil, ErrNotFinished
	}
	if s.commit == nil {
		return nil, errors.New("computer fleet was never committed")
	}
	return &codec.Reveal{
		Field:   s.commit.Secret.Field,
		SaltHex: s.commit.Secret.SaltHex,
		RootHex: s.commit.RootHex,
	}, nil
}

// Pending reports whether a computer move is scheduled.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}
