package zk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"seabattle/internal/merkle"
)

const (
	VKFile = "shot.vk"
	PKFile = "shot.pk"
)

// ShotPublic is what a verifier learns about one shot.
type ShotPublic struct {
	Root  *big.Int `json:"root"` // salted fleet root
	Index int      `json:"index"`
	Hit   uint8    `json:"hit"`
}

func compile() (constraint.ConstraintSystem, error) {
	var circuit ShotCircuit
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
}

// EnsureShotKeys reuses parseable keys in dir or runs a fresh setup.
func EnsureShotKeys(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	vkPath := filepath.Join(dir, VKFile)
	pkPath := filepath.Join(dir, PKFile)

	if vk, pk, err := readKeys(vkPath, pkPath); err == nil && vk != nil && pk != nil {
		return nil
	}

	cs, err := compile()
	if err != nil {
		return fmt.Errorf("compile shot circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return fmt.Errorf("groth16 setup: %w", err)
	}
	if err := writeKey(vkPath, vk); err != nil {
		return err
	}
	return writeKey(pkPath, pk)
}

// ProveShot proves the occupancy bit at idx under MiMC(salt, treeRoot).
func ProveShot(keysDir string, bit uint8, idx int, path []*big.Int, dir []uint8, treeRoot, salt *big.Int) ([]byte, ShotPublic, error) {
	if len(path) != MerkleDepth || len(dir) != MerkleDepth {
		return nil, ShotPublic{}, errors.New("bad path length")
	}
	if idx < 0 || idx >= merkle.Leaves {
		return nil, ShotPublic{}, fmt.Errorf("cell index %d out of range", idx)
	}
	root := merkle.Salt(salt, treeRoot)

	var assign ShotCircuit
	assign.Bit = bit
	assign.Salt = salt
	for i := 0; i < MerkleDepth; i++ {
		assign.Path[i] = path[i]
		assign.Dir[i] = dir[i]
	}
	assign.Root = root
	assign.Index = idx
	assign.Hit = bit

	cs, err := compile()
	if err != nil {
		return nil, ShotPublic{}, err
	}
	pk, err := readPK(filepath.Join(keysDir, PKFile))
	if err != nil {
		return nil, ShotPublic{}, err
	}

	fullWit, err := frontend.NewWitness(&assign, ecc.BN254.ScalarField())
	if err != nil {
		return nil, ShotPublic{}, err
	}
	proof, err := groth16.Prove(cs, pk, fullWit)
	if err != nil {
		return nil, ShotPublic{}, err
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, ShotPublic{}, err
	}
	return buf.Bytes(), ShotPublic{Root: root, Index: idx, Hit: bit}, nil
}

// VerifyShot checks a proof against the expected salted root. A nil error
// with true means the proof is valid.
func VerifyShot(vkPath string, proofBin []byte, pub ShotPublic, root *big.Int) (bool, error) {
	if pub.Root == nil {
		return false, errors.New("proof payload missing public root")
	}
	if pub.Root.Cmp(root) != 0 {
		return false, errors.New("root mismatch: proof root != expected root")
	}

	var pubAssign ShotCircuit
	pubAssign.Root = root
	pubAssign.Index = pub.Index
	pubAssign.Hit = pub.Hit

	pubWit, err := frontend.NewWitness(&pubAssign, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, err
	}

	vk, err := readVK(vkPath)
	if err != nil {
		return false, err
	}
	pr := groth16.NewProof(ecc.BN254)
	if _, err := pr.ReadFrom(bytes.NewReader(proofBin)); err != nil {
		return false, err
	}

	if err := groth16.Verify(pr, vk, pubWit); err != nil {
		return false, err
	}
	return true, nil
}

// --- key IO helpers using io.WriterTo / io.ReaderFrom ---

func writeKey(path string, k io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = k.WriteTo(f)
	return err
}

func readVK(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	_, err = vk.ReadFrom(f)
	return vk, err
}

func readPK(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	_, err = pk.ReadFrom(f)
	return pk, err
}

func readKeys(vkPath, pkPath string) (groth16.VerifyingKey, groth16.ProvingKey, error) {
	vk, err := readVK(vkPath)
	if err != nil {
		return nil, nil, err
	}
	pk, err := readPK(pkPath)
	if err != nil {
		return nil, nil, err
	}
	return vk, pk, nil
}
