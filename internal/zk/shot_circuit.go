package zk

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"seabattle/internal/merkle"
)

const MerkleDepth = merkle.Depth

// ShotCircuit proves the hit/miss bit at Index matches the salted fleet root.
type ShotCircuit struct {
	Bit  frontend.Variable              `gnark:",secret"`
	Salt frontend.Variable              `gnark:",secret"`
	Path [MerkleDepth]frontend.Variable `gnark:",secret"`
	Dir  [MerkleDepth]frontend.Variable `gnark:",secret"`

	Root  frontend.Variable `gnark:",public"`
	Index frontend.Variable `gnark:",public"`
	Hit   frontend.Variable `gnark:",public"`
}

func (c *ShotCircuit) Define(api frontend.API) error {
	api.AssertIsBoolean(c.Bit)
	api.AssertIsEqual(c.Hit, c.Bit)

	// the path directions spell the leaf index, least significant level first
	for i := 0; i < MerkleDepth; i++ {
		api.AssertIsBoolean(c.Dir[i])
	}
	api.AssertIsEqual(api.FromBinary(c.Dir[:]...), c.Index)

	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Reset()
	h.Write(c.Bit)
	curr := h.Sum()

	for i := 0; i < MerkleDepth; i++ {
		h.Reset()
		left := api.Select(c.Dir[i], c.Path[i], curr)
		right := api.Select(c.Dir[i], curr, c.Path[i])
		h.Write(left, right)
		curr = h.Sum()
	}

	h.Reset()
	h.Write(c.Salt, curr)
	api.AssertIsEqual(h.Sum(), c.Root)
	return nil
}
