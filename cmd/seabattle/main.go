package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"seabattle/internal/app"
	"seabattle/internal/codec"
	"seabattle/internal/game"
	"seabattle/internal/server"
	"seabattle/internal/stats"
	"seabattle/internal/zk"
)

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
	With().Timestamp().Logger()

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	switch os.Args[1] {
	case "generate":
		cmdGenerate()
	case "commit":
		cmdCommit()
	case "shoot":
		cmdShoot()
	case "verify":
		cmdVerify()
	case "serve":
		cmdServe()
	case "stats":
		cmdStats()
	default:
		usage()
	}
}

func usage() {
	fmt.Println(`Seabattle CLI

Commands:
  generate --tier easy [--counts 2,2,1,0,0,0] --out fleet.fieldfile
  commit   --field fleet.fieldfile --secret secret.json --keys ./keys
  shoot    --secret secret.json --keys ./keys --row R --col C --out proof.json
  verify   --keys ./keys --root ROOT_HEX --proof proof.json --size N --row R --col C
  serve    --addr :8080 --db seabattle.db --delay 700ms
  stats    --db seabattle.db --player NAME`)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseCounts(s string) (game.Composition, error) {
	var counts []int
	for _, p := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad count %q", p)
		}
		counts = append(counts, n)
	}
	return game.CompositionFromCounts(counts)
}

func cmdGenerate() {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	tier := fs.String("tier", "easy", "difficulty tier: easy, medium, hard, expert")
	counts := fs.String("counts", "", "custom ship counts in library order, comma separated")
	out := fs.String("out", "fleet"+codec.Extension, "output fieldfile")
	_ = fs.Parse(os.Args[2:])

	preset, err := game.LookupPreset(*tier)
	if err != nil {
		log.Fatal().Err(err).Msg("generate")
	}
	cfg := preset.Config()
	if *counts != "" {
		comp, err := parseCounts(*counts)
		if err != nil {
			log.Fatal().Err(err).Msg("generate")
		}
		if cfg, err = preset.Custom(comp); err != nil {
			log.Fatal().Err(err).Msg("generate")
		}
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	b, err := game.GenerateFleetRetry(cfg.Size, cfg.Fleet, rng, game.GenerationAttempts)
	if err != nil {
		log.Fatal().Err(err).Msg("generate")
	}
	if err := os.WriteFile(*out, []byte(codec.Encode(b, cfg.Fleet)), 0o644); err != nil {
		log.Fatal().Err(err).Msg("write field")
	}
	fmt.Println("✓ wrote", *out)
}

func cmdCommit() {
	fs := flag.NewFlagSet("commit", flag.ExitOnError)
	fieldPath := fs.String("field", "fleet"+codec.Extension, "fieldfile to commit")
	secretPath := fs.String("secret", "secret.json", "defender secret state")
	keysDir := fs.String("keys", "./keys", "keys directory")
	_ = fs.Parse(os.Args[2:])

	raw, err := os.ReadFile(*fieldPath)
	if err != nil {
		log.Fatal().Err(err).Msg("read field")
	}
	f, err := codec.Decode(string(raw))
	if err != nil {
		log.Fatal().Err(err).Str("file", *fieldPath).Msg("decode field")
	}
	b, err := f.Board()
	if err != nil {
		log.Fatal().Err(err).Msg("load field")
	}
	read, err := game.LayoutComposition(f.Grid)
	if err != nil {
		log.Fatal().Err(err).Str("file", *fieldPath).Msg("read fleet")
	}
	if !read.Equal(f.Fleet) {
		log.Fatal().Ints("ships", read.Counts()).Ints("header", f.Fleet.Counts()).Msg("field does not match its fleet header")
	}

	res, err := app.CommitBoard(b, f.Fleet)
	if err != nil {
		log.Fatal().Err(err).Msg("commit")
	}
	fmt.Println("ROOT:", res.RootHex)

	if err := zk.EnsureShotKeys(*keysDir); err != nil {
		log.Fatal().Err(err).Msg("shot keys")
	}
	if err := saveJSON(*secretPath, &res.Secret); err != nil {
		log.Fatal().Err(err).Msg("write secret")
	}
	fmt.Println("✓ wrote", *secretPath)
}

func cmdShoot() {
	fs := flag.NewFlagSet("shoot", flag.ExitOnError)
	secretPath := fs.String("secret", "secret.json", "defender secret state")
	keysDir := fs.String("keys", "./keys", "keys directory")
	row := fs.Int("row", 0, "row, 0-based")
	col := fs.Int("col", 0, "col, 0-based")
	out := fs.String("out", "proof.json", "proof output")
	_ = fs.Parse(os.Args[2:])

	var sec codec.Secret
	if err := loadJSON(*secretPath, &sec); err != nil {
		log.Fatal().Err(err).Msg("read secret")
	}
	res, err := app.Shoot(sec, *keysDir, *row, *col)
	if err != nil {
		log.Fatal().Err(err).Msg("shoot")
	}
	if err := saveJSON(*out, &res.Payload); err != nil {
		log.Fatal().Err(err).Msg("write proof")
	}
	fmt.Printf("✓ wrote %s (result: %s)\n", *out, map[uint8]string{0: "MISS", 1: "HIT"}[res.Bit])
}

func cmdVerify() {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	keysDir := fs.String("keys", "./keys", "keys directory")
	rootHex := fs.String("root", "", "salted root hex prefixed 0x")
	proofPath := fs.String("proof", "proof.json", "proof payload json")
	size := fs.Int("size", 0, "board size N")
	row := fs.Int("row", -1, "row, 0-based")
	col := fs.Int("col", -1, "col, 0-based")
	_ = fs.Parse(os.Args[2:])

	if *rootHex == "" {
		log.Fatal().Msg("--root required")
	}
	root, err := app.ParseHex(*rootHex)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid root")
	}
	if *size < 1 || *size > game.MaxBoardSize {
		log.Fatal().Int("size", *size).Msg("--size out of range")
	}
	if *row < 0 || *row >= *size || *col < 0 || *col >= *size {
		log.Fatal().Int("row", *row).Int("col", *col).Msg("row/col out of range")
	}

	var payload codec.ShotProofPayload
	if err := loadJSON(*proofPath, &payload); err != nil {
		log.Fatal().Err(err).Msg("read proof")
	}
	if want := *row*(*size) + *col; payload.Public.Index != want {
		log.Fatal().Msgf("proof is for cell %d but expected %d (%d, %d)", payload.Public.Index, want, *row, *col)
	}

	res, err := app.VerifyWithRoot(*keysDir, root, payload)
	if err != nil {
		log.Fatal().Err(err).Msg("verify")
	}
	if !res.Valid {
		log.Fatal().Err(errors.New("invalid proof")).Msg("verify")
	}
	fmt.Println(map[uint8]string{0: "MISS", 1: "HIT"}[res.Hit])
}

func cmdServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", envOr("SEABATTLE_ADDR", ":8080"), "listen address")
	dbPath := fs.String("db", envOr("SEABATTLE_DB_PATH", "seabattle.db"), "stats database, empty to disable")
	delay := fs.Duration("delay", app.DefaultComputerDelay, "computer reply delay in competitive matches")
	debug := fs.Bool("debug", false, "debug logging")
	_ = fs.Parse(os.Args[2:])

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := app.Options{Delay: *delay, Logger: &log}
	var lister server.StatsLister
	if *dbPath != "" {
		store, err := stats.Open(*dbPath)
		if err != nil {
			log.Fatal().Err(err).Str("db", *dbPath).Msg("open stats")
		}
		defer store.Close()
		opts.Sink = store
		lister = store
	}

	mgr := app.NewManager(opts)
	srv := server.New(mgr, lister, log)
	mux := http.NewServeMux()
	srv.Routes(mux)
	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           server.WithRequestLog(log, server.WithCORS(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", *addr).Msg("serving")
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mgr.CloseAll()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return
	}
	log.Info().Msg("shut down")
}

func cmdStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	dbPath := fs.String("db", envOr("SEABATTLE_DB_PATH", "seabattle.db"), "stats database")
	player := fs.String("player", "", "player name")
	limit := fs.Int("limit", 20, "max records")
	_ = fs.Parse(os.Args[2:])

	if *player == "" {
		log.Fatal().Msg("--player required")
	}
	store, err := stats.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open stats")
	}
	defer store.Close()

	recs, err := store.ListByPlayer(context.Background(), *player, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("list stats")
	}
	wins := 0
	for _, r := range recs {
		if r.Result == "win" {
			wins++
		}
		cm := "-"
		if r.ComputerMoves != nil {
			cm = strconv.Itoa(*r.ComputerMoves)
		}
		fmt.Printf("%s  %-11s %-7s %-4s moves=%-4d computer=%-4s %s\n",
			r.Timestamp.Local().Format(time.DateTime), r.Mode, r.Difficulty, r.Result, r.Moves, cm,
			time.Duration(r.ElapsedMs)*time.Millisecond)
	}
	fmt.Printf("%d matches, %d wins\n", len(recs), wins)
}

func saveJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}
