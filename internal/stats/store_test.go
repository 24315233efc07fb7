package stats

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	cm := 17

	recs := []Record{
		{Player: "ana", Mode: "classic", Difficulty: "easy", Moves: 30, ElapsedMs: 61000, Result: "win", Timestamp: base},
		{Player: "ana", Mode: "competitive", Difficulty: "hard", Moves: 18, ComputerMoves: &cm, ElapsedMs: 90000, Result: "loss", Timestamp: base.Add(time.Hour)},
		{Player: "bo", Mode: "classic", Difficulty: "medium", Moves: 44, ElapsedMs: 1000, Result: "win", Timestamp: base},
	}
	for _, r := range recs {
		if err := s.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListByPlayer(ctx, "ana", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Mode != "competitive" || got[0].ComputerMoves == nil || *got[0].ComputerMoves != 17 {
		t.Errorf("newest record = %+v", got[0])
	}
	if got[1].ComputerMoves != nil {
		t.Errorf("classic record has computer moves %d", *got[1].ComputerMoves)
	}
	if !got[1].Timestamp.Equal(base) {
		t.Errorf("timestamp = %v, want %v", got[1].Timestamp, base)
	}

	limited, err := s.ListByPlayer(ctx, "ana", 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit 1: %d records, err %v", len(limited), err)
	}

	none, err := s.ListByPlayer(ctx, "cy", 0)
	if err != nil || len(none) != 0 {
		t.Fatalf("unknown player: %v, %v", none, err)
	}
}

func TestRecordRequiresPlayer(t *testing.T) {
	s := openTemp(t)
	if err := s.Record(context.Background(), Record{Mode: "classic"}); !errors.Is(err, ErrNoPlayer) {
		t.Fatalf("err = %v, want ErrNoPlayer", err)
	}
}
