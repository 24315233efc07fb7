package app

import (
	"fmt"
	"math/big"
	"path/filepath"
	"strings"

	"seabattle/internal/codec"
	"seabattle/internal/game"
	"seabattle/internal/merkle"
	"seabattle/internal/zk"
)

type CommitResult struct {
	RootHex string
	Secret  codec.Secret
}

// CommitBoard builds the salted MiMC commitment of a board's occupancy.
func CommitBoard(b *game.Board, comp game.Composition) (*CommitResult, error) {
	if b.Size > game.MaxBoardSize {
		return nil, fmt.Errorf("board %dx%d too large to commit", b.Size, b.Size)
	}
	t, err := merkle.Commit(b.Flatten())
	if err != nil {
		return nil, err
	}

	// this is to make root unique for same boards
	salt, err := merkle.NewSalt()
	if err != nil {
		return nil, err
	}
	saltedRoot := merkle.Salt(salt, t.Root())

	return &CommitResult{
		RootHex: hexInt(saltedRoot),
		Secret: codec.Secret{
			Field:   codec.Encode(b, comp),
			Tree:    t,
			SaltHex: hexInt(salt),
		},
	}, nil
}

func hexInt(x *big.Int) string { return fmt.Sprintf("0x%x", x) }

// ParseHex reads a 0x-prefixed big integer.
func ParseHex(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 || (s[:2] != "0x" && s[:2] != "0X") {
		return nil, fmt.Errorf("missing 0x prefix in %q", s)
	}
	n, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		return nil, fmt.Errorf("cannot parse hex %q", s)
	}
	return n, nil
}

// VerifyReveal recomputes the salted root of a revealed fleet.
func VerifyReveal(r codec.Reveal) (bool, error) {
	f, err := codec.Decode(r.Field)
	if err != nil {
		return false, err
	}
	salt, err := ParseHex(r.SaltHex)
	if err != nil {
		return false, err
	}
	root, err := ParseHex(r.RootHex)
	if err != nil {
		return false, err
	}
	b, err := f.Board()
	if err != nil {
		return false, err
	}
	t, err := merkle.Commit(b.Flatten())
	if err != nil {
		return false, err
	}
	return merkle.Salt(salt, t.Root()).Cmp(root) == 0, nil
}

type ShootResult struct {
	Payload codec.ShotProofPayload
	Bit     uint8
}

// Shoot proves the result of a shot at (row, col) against the committed fleet.
func Shoot(sec codec.Secret, keysDir string, row, col int) (*ShootResult, error) {
	f, err := codec.Decode(sec.Field)
	if err != nil {
		return nil, err
	}
	if row < 0 || row >= f.Size || col < 0 || col >= f.Size {
		return nil, fmt.Errorf("row/col out of range [0,%d)", f.Size)
	}
	if sec.Tree == nil {
		return nil, fmt.Errorf("secret has no commitment tree")
	}
	salt, err := ParseHex(sec.SaltHex)
	if err != nil {
		return nil, fmt.Errorf("invalid salt in secret: %w", err)
	}

	idx := row*f.Size + col
	bit := f.Grid[row][col]
	path, dir, err := sec.Tree.Path(idx)
	if err != nil {
		return nil, err
	}
	if len(path) != zk.MerkleDepth || len(dir) != zk.MerkleDepth {
		return nil, fmt.Errorf("bad path length")
	}

	proof, pub, err := zk.ProveShot(keysDir, bit, idx, path, dir, sec.Tree.Root(), salt)
	if err != nil {
		return nil, err
	}

	return &ShootResult{
		Payload: codec.ShotProofPayload{Proof: proof, Public: pub},
		Bit:     bit,
	}, nil
}

type VerifyResult struct {
	Valid bool
	Hit   uint8
}

func VerifyWithRoot(keysDir string, root *big.Int, payload codec.ShotProofPayload) (*VerifyResult, error) {
	if payload.Public.Root == nil || payload.Public.Root.Sign() == 0 {
		payload.Public.Root = new(big.Int).Set(root)
	}
	if payload.Public.Hit != 0 && payload.Public.Hit != 1 {
		return nil, fmt.Errorf("invalid hit public output")
	}

	res, err := zk.VerifyShot(filepath.Join(keysDir, zk.VKFile), payload.Proof, payload.Public, root)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Valid: res, Hit: payload.Public.Hit}, nil
}
