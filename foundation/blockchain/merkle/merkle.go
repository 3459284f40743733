// Based on github.com/cbergoon/merkletree, licensed under the MIT License.

// Package merkle builds the merkle tree of the transactions in a block. The
// root goes in the block header and a proof shows a transaction is part of
// the block without the other transactions.
package merkle

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Set of errors returned by the tree.
var (
	ErrEmpty        = errors.New("cannot construct tree with no content")
	ErrProofInvalid = errors.New("proof does not lead to the merkle root")
)

// Order of a proof hash. Left means the proof hash is concatenated first.
const (
	Left  int64 = 0
	Right int64 = 1
)

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable interface {
	LeafHash() ([]byte, error)
}

// =============================================================================

// Tree represents a merkle tree over values of type T. Nodes are hashed with
// keccak256.
type Tree[T Hashable] struct {
	Root       *Node
	Leafs      []*Node
	MerkleRoot []byte
	values     []T
}

// NewTree constructs the tree for the values. The last leaf is duplicated
// when the number of values is odd.
func NewTree[T Hashable](values []T) (*Tree[T], error) {
	if len(values) == 0 {
		return nil, ErrEmpty
	}

	leafs := make([]*Node, 0, len(values)+1)
	for i, value := range values {
		hash, err := value.LeafHash()
		if err != nil {
			return nil, fmt.Errorf("leaf %d: %w", i, err)
		}

		leafs = append(leafs, &Node{Hash: hash, leaf: true})
	}

	if len(leafs)%2 == 1 {
		last := leafs[len(leafs)-1]
		leafs = append(leafs, &Node{Hash: last.Hash, leaf: true, dup: true})
	}

	root := buildIntermediate(leafs)

	t := Tree[T]{
		Root:       root,
		Leafs:      leafs,
		MerkleRoot: root.Hash,
		values:     values,
	}

	return &t, nil
}

// Values returns the values the tree was built from.
func (t *Tree[T]) Values() []T {
	return t.values
}

// RootHex converts the merkle root byte hash to a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return hexutil.Encode(t.MerkleRoot)
}

// Proof returns the hashes needed to get from the value at the index to the
// root, with the order each one is concatenated in.
func (t *Tree[T]) Proof(index int) ([][]byte, []int64, error) {
	if index < 0 || index >= len(t.values) {
		return nil, nil, fmt.Errorf("index %d out of range, tree has %d values", index, len(t.values))
	}

	var proof [][]byte
	var order []int64

	node := t.Leafs[index]
	for parent := node.Parent; parent != nil; node, parent = parent, parent.Parent {
		if parent.Left == node {
			proof = append(proof, parent.Right.Hash)
			order = append(order, Right)
			continue
		}

		proof = append(proof, parent.Left.Hash)
		order = append(order, Left)
	}

	return proof, order, nil
}

// Verify rebuilds the tree from its values and checks the root.
func (t *Tree[T]) Verify() error {
	rebuilt, err := NewTree(t.values)
	if err != nil {
		return err
	}

	if !bytes.Equal(rebuilt.MerkleRoot, t.MerkleRoot) {
		return fmt.Errorf("root hash invalid, got %s, exp %s", rebuilt.RootHex(), t.RootHex())
	}

	return nil
}

// VerifyProof checks the leaf hash leads to the root by way of the proof.
func VerifyProof(root []byte, leaf []byte, proof [][]byte, order []int64) error {
	if len(proof) != len(order) {
		return fmt.Errorf("proof has %d hashes and %d orders", len(proof), len(order))
	}

	hash := leaf
	for i, p := range proof {
		switch order[i] {
		case Left:
			hash = hashPair(p, hash)
		case Right:
			hash = hashPair(hash, p)
		default:
			return fmt.Errorf("invalid order %d at %d", order[i], i)
		}
	}

	if !bytes.Equal(hash, root) {
		return ErrProofInvalid
	}

	return nil
}

// =============================================================================

// Node represents a node, root, or leaf in the tree.
type Node struct {
	Parent *Node
	Left   *Node
	Right  *Node
	Hash   []byte
	leaf   bool
	dup    bool
}

// String returns a string representation of the node.
func (n *Node) String() string {
	return fmt.Sprintf("%t %t %s", n.leaf, n.dup, hexutil.Encode(n.Hash))
}

// buildIntermediate constructs the levels above the nodes and returns the
// root. A level with an odd number of nodes pairs the last node with itself.
func buildIntermediate(nodes []*Node) *Node {
	if len(nodes) == 1 {
		return nodes[0]
	}

	parents := make([]*Node, 0, (len(nodes)+1)/2)
	for i := 0; i < len(nodes); i += 2 {
		left, right := nodes[i], nodes[i]
		if i+1 < len(nodes) {
			right = nodes[i+1]
		}

		n := Node{
			Left:  left,
			Right: right,
			Hash:  hashPair(left.Hash, right.Hash),
		}

		left.Parent = &n
		right.Parent = &n
		parents = append(parents, &n)
	}

	return buildIntermediate(parents)
}

func hashPair(left []byte, right []byte) []byte {
	return crypto.Keccak256(left, right)
}
