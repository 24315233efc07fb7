package merkle

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	bnmimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// Depth and Leaves size the board commitment tree: 256 leaves cover any
// board up to 16x16.
const (
	Depth  = 8
	Leaves = 1 << Depth
)

// --- encode BN254 field elements as 32-byte big-endian ---
func feBytes(x *big.Int) []byte {
	b := x.Bytes()
	if len(b) == 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func bytesToFE(b []byte) *big.Int { return new(big.Int).SetBytes(b) }

// MiMC helpers (off-chain), consistent with in-circuit MiMC
func HashLeafMiMC(bit uint8) *big.Int {
	h := bnmimc.NewMiMC()
	h.Write(feBytes(new(big.Int).SetUint64(uint64(bit))))
	return bytesToFE(h.Sum(nil))
}

func HashNodeMiMC(left, right *big.Int) *big.Int {
	h := bnmimc.NewMiMC()
	h.Write(feBytes(left))
	h.Write(feBytes(right))
	return bytesToFE(h.Sum(nil))
}

// NewSalt draws a uniformly random field element.
func NewSalt() (*big.Int, error) {
	return rand.Int(rand.Reader, fr.Modulus())
}

// Salt hides the tree root so equal fleets commit to different values.
func Salt(salt, root *big.Int) *big.Int { return HashNodeMiMC(salt, root) }

// Fixed-size binary Merkle tree stored level-by-level.
type Tree struct {
	Depth  int          `json:"depth"`
	Levels [][]*big.Int `json:"levels"` // Levels[0]=leaves, Levels[Depth]=root
}

// Commit builds the board tree over occupancy bits, padding with zero leaves.
func Commit(bits []uint8) (*Tree, error) {
	for _, b := range bits {
		if b > 1 {
			return nil, errors.New("occupancy bits must be 0 or 1")
		}
	}
	return BuildFixedTree(bits, Leaves, HashLeafMiMC(0), HashNodeMiMC)
}

func BuildFixedTree(leavesBits []uint8, size int, padLeaf *big.Int,
	hashMerge func(*big.Int, *big.Int) *big.Int) (*Tree, error) {

	if size <= 0 || size&(size-1) != 0 {
		return nil, errors.New("size must be power of two")
	}
	if len(leavesBits) > size {
		return nil, errors.New("too many leaves")
	}

	leaf0, leaf1 := HashLeafMiMC(0), HashLeafMiMC(1)
	L0 := make([]*big.Int, size)
	for i := range L0 {
		switch {
		case i >= len(leavesBits):
			L0[i] = new(big.Int).Set(padLeaf)
		case leavesBits[i] == 0:
			L0[i] = new(big.Int).Set(leaf0)
		default:
			L0[i] = new(big.Int).Set(leaf1)
		}
	}
	levels := [][]*big.Int{L0}

	for n := size; n > 1; n /= 2 {
		prev := levels[len(levels)-1]
		up := make([]*big.Int, n/2)
		for i := range up {
			up[i] = hashMerge(prev[2*i], prev[2*i+1])
		}
		levels = append(levels, up)
	}

	return &Tree{Depth: len(levels) - 1, Levels: levels}, nil
}

func (t *Tree) Root() *big.Int { return new(big.Int).Set(t.Levels[len(t.Levels)-1][0]) }

// Path returns sibling hashes + direction bits for index idx.
// dir[i]=0 ⇒ current is left child; dir[i]=1 ⇒ current is right child.
func (t *Tree) Path(idx int) (path []*big.Int, dir []uint8, err error) {
	if idx < 0 || idx >= len(t.Levels[0]) {
		return nil, nil, errors.New("idx OOB")
	}
	path = make([]*big.Int, 0, t.Depth)
	dir = make([]uint8, 0, t.Depth)
	cur := idx
	for level := 0; level < t.Depth; level++ {
		sib := cur ^ 1
		path = append(path, new(big.Int).Set(t.Levels[level][sib]))
		dir = append(dir, uint8(cur&1))
		cur /= 2
	}
	return path, dir, nil
}

// VerifyPath recomputes the root from a leaf bit and its authentication path.
func VerifyPath(root *big.Int, bit uint8, path []*big.Int, dir []uint8) bool {
	if len(path) != len(dir) {
		return false
	}
	cur := HashLeafMiMC(bit)
	for i := range path {
		if dir[i] == 1 {
			cur = HashNodeMiMC(path[i], cur)
		} else {
			cur = HashNodeMiMC(cur, path[i])
		}
	}
	return cur.Cmp(root) == 0
}
