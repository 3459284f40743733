package database

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/fundme/foundation/blockchain/merkle"
	"github.com/ardanlabs/fundme/foundation/blockchain/signature"
)

// ErrChainBroken is returned when a block doesn't follow the block before it.
var ErrChainBroken = errors.New("block does not extend the chain")

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64 `json:"number"`          // Ethereum: Block number in the chain.
	PrevBlockHash string `json:"prev_block_hash"` // Bitcoin: Hash of the previous block in the chain.
	TimeStamp     uint64 `json:"timestamp"`       // Bitcoin: Time the block was sealed.
	GasUsed       uint64 `json:"gas_used"`        // Ethereum: Total gas used by the transactions in the block.
	TransRoot     string `json:"trans_root"`      // Bitcoin/Ethereum: Merkle root of the transactions in this block.
}

// Block represents a group of transactions batched together. The node seals
// a block for every transaction it accepts, so most blocks hold one.
type Block struct {
	Header BlockHeader
	Trans  []BlockTx
}

// NewBlock constructs the block that follows the previous block.
func NewBlock(prevBlock Block, timeStamp uint64, gasUsed uint64, trans []BlockTx) (Block, error) {
	if trans == nil {
		trans = []BlockTx{}
	}

	root, err := TransRoot(trans)
	if err != nil {
		return Block{}, err
	}

	block := Block{
		Header: BlockHeader{
			Number:        prevBlock.Header.Number + 1,
			PrevBlockHash: prevBlock.Hash(),
			TimeStamp:     timeStamp,
			GasUsed:       gasUsed,
			TransRoot:     root,
		},
		Trans: trans,
	}

	return block, nil
}

// TransRoot returns the merkle root of the transactions. A block without
// transactions has the zero hash as its root.
func TransRoot(trans []BlockTx) (string, error) {
	if len(trans) == 0 {
		return signature.ZeroHash, nil
	}

	tree, err := merkle.NewTree(trans)
	if err != nil {
		return "", fmt.Errorf("merkle tree: %w", err)
	}

	return tree.RootHex(), nil
}

// TransProof returns the merkle proof of the transaction with the hash.
func (b Block) TransProof(txHash string) ([][]byte, []int64, error) {
	for i, tx := range b.Trans {
		if tx.Hash() != txHash {
			continue
		}

		tree, err := merkle.NewTree(b.Trans)
		if err != nil {
			return nil, nil, err
		}

		return tree.Proof(i)
	}

	return nil, nil, fmt.Errorf("transaction %s not in block %d", txHash, b.Header.Number)
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() string {
	if b.Header.Number == 0 {
		return signature.ZeroHash
	}

	return signature.Hash(b.Header)
}

// ValidateBlock checks the block can follow the previous block.
func (b Block) ValidateBlock(previousBlock Block, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Header.Number)

	nextNumber := previousBlock.Header.Number + 1
	if b.Header.Number != nextNumber {
		return fmt.Errorf("%w: got number %d, exp %d", ErrChainBroken, b.Header.Number, nextNumber)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Header.Number)

	if b.Header.PrevBlockHash != previousBlock.Hash() {
		return fmt.Errorf("%w: parent hash got %s, exp %s", ErrChainBroken, b.Header.PrevBlockHash, previousBlock.Hash())
	}

	if b.Header.TimeStamp < previousBlock.Header.TimeStamp {
		return fmt.Errorf("block timestamp is before parent block, parent %d, block %d", previousBlock.Header.TimeStamp, b.Header.TimeStamp)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: merkle root does match transactions", b.Header.Number)

	root, err := TransRoot(b.Trans)
	if err != nil {
		return err
	}
	if root != b.Header.TransRoot {
		return fmt.Errorf("merkle root does not match transactions, got %s, exp %s", root, b.Header.TransRoot)
	}

	return nil
}

// =============================================================================

// BlockData represents what can be serialized to disk and over the network.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []BlockTx   `json:"trans"`
}

// NewBlockData constructs block data from a block.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Trans,
	}
}

// ToBlock converts a storage block into a database block.
func ToBlock(blockData BlockData) (Block, error) {
	block := Block{
		Header: blockData.Header,
		Trans:  blockData.Trans,
	}

	if hash := block.Hash(); hash != blockData.Hash {
		return Block{}, fmt.Errorf("block %d hash mismatch, got %s, exp %s", blockData.Header.Number, hash, blockData.Hash)
	}

	return block, nil
}
