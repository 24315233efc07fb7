package codec

import (
	"seabattle/internal/merkle"
	"seabattle/internal/zk"
)

// Secret is the defender's private state behind a fleet commitment.
type Secret struct {
	Field   string       `json:"field"` // fieldfile text of the committed board
	Tree    *merkle.Tree `json:"tree"`
	SaltHex string       `json:"salt_hex"`
}

type ShotProofPayload struct {
	Proof  []byte        `json:"proof"`
	Public zk.ShotPublic `json:"public"` // salted root, cell index and hit bit
}

// Reveal discloses a committed fleet once a match is over so the commitment
// can be checked by recomputing the salted root.
type Reveal struct {
	Field   string `json:"field"`
	SaltHex string `json:"saltHex"`
	RootHex string `json:"rootHex"`
}
