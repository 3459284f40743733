package state

import (
	"context"
	"fmt"

	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/fundme"
	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/gas"
	"github.com/holiman/uint256"
)

// outcome holds the result of applying a transaction until it's committed.
type outcome struct {
	working  *database.Working
	receipt  database.Receipt
	created  *contract
	contract string
	method   string
}

// =============================================================================

// SubmitTransaction executes the signed transaction and seals it into a new
// block. A transaction that fails is not mined: the sender is not charged
// and its nonce doesn't change.
func (s *State) SubmitTransaction(ctx context.Context, signedTx database.SignedTx) (database.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timeStamp := s.timestamp()
	tx := database.NewBlockTx(signedTx, timeStamp, s.genesis.GasPrice)

	out, err := s.apply(ctx, tx)
	if err != nil {
		s.evHandler("state: SubmitTransaction: REJECTED: tx[%s]: %s", signedTx, err)
		return database.Receipt{}, err
	}

	block, err := database.NewBlock(s.db.LatestBlock(), timeStamp, out.receipt.GasUsed, []database.BlockTx{tx})
	if err != nil {
		return database.Receipt{}, err
	}

	receipt := s.commit(block, out)
	s.db.UpdateLatestBlock(block)

	if err := s.db.Write(block); err != nil {
		return receipt, fmt.Errorf("block %d sealed but not written: %w", block.Header.Number, err)
	}

	s.evHandler("viewer: block: number[%d]: hash[%s]: tx[%s]: method[%s]: gas[%d]", block.Header.Number, block.Hash(), receipt.TxHash, receipt.Method, receipt.GasUsed)

	return receipt, nil
}

// SealBlock seals an empty block. Networks that need confirmations use this
// to keep the chain moving when there are no transactions.
func (s *State) SealBlock(ctx context.Context) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return database.Block{}, err
	}

	block, err := database.NewBlock(s.db.LatestBlock(), s.timestamp(), 0, nil)
	if err != nil {
		return database.Block{}, err
	}

	if err := s.db.Write(block); err != nil {
		return database.Block{}, err
	}
	s.db.UpdateLatestBlock(block)

	s.evHandler("viewer: block: number[%d]: hash[%s]: empty", block.Header.Number, block.Hash())

	return block, nil
}

// =============================================================================

// apply executes the transaction against a working copy of the accounts.
// Nothing is changed when an error is returned.
func (s *State) apply(ctx context.Context, tx database.BlockTx) (outcome, error) {
	if err := tx.Validate(s.genesis.ChainID); err != nil {
		return outcome{}, err
	}

	from, err := tx.FromAccount()
	if err != nil {
		return outcome{}, err
	}

	if tx.GasLimit < gas.TxBase || tx.GasLimit > s.genesis.GasLimit {
		return outcome{}, fmt.Errorf("%w: got %d, range %d-%d", ErrGasLimit, tx.GasLimit, gas.TxBase, s.genesis.GasLimit)
	}

	value, err := tx.Amount()
	if err != nil {
		return outcome{}, err
	}

	working := s.db.Begin()

	if nonce := working.Nonce(from); tx.Nonce != nonce {
		return outcome{}, fmt.Errorf("%w: got %d, exp %d", ErrNonce, tx.Nonce, nonce)
	}

	// The sender must be able to cover the value and the full gas limit.
	maxFee := new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), uint256.NewInt(tx.GasPrice))
	cost, overflow := new(uint256.Int).AddOverflow(value, maxFee)
	if overflow || working.Balance(from).Lt(cost) {
		return outcome{}, fmt.Errorf("%w: account %s, bal %s, needed %s", database.ErrInsufficientFunds, from, working.Balance(from).Dec(), cost.Dec())
	}

	meter := gas.NewMeter(tx.GasLimit)
	if err := meter.Use(gas.TxBase); err != nil {
		return outcome{}, err
	}

	// The signed hash stays over the recipient as it was submitted.
	to, err := tx.ToAccount()
	if err != nil {
		return outcome{}, fmt.Errorf("to account: %w", err)
	}

	out := outcome{
		working: working,
		receipt: database.Receipt{
			TxHash:            tx.Hash(),
			From:              from,
			To:                to,
			Method:            tx.Method,
			EffectiveGasPrice: tx.GasPrice,
			Status:            database.ReceiptSuccess,
		},
	}

	switch {
	case tx.IsCreate():
		address := database.ContractAccountID(from, tx.Nonce)
		e := env{working: working, sender: from, address: address, value: value, meter: meter, timestamp: tx.TimeStamp}

		if err := working.Transfer(from, address, value); err != nil {
			return outcome{}, err
		}

		c, err := s.create(ctx, &e, tx.Data)
		if err != nil {
			return outcome{}, fmt.Errorf("%w: %w", ErrReverted, err)
		}

		out.created = &c
		out.contract = c.name
		out.receipt.ContractAddress = address

	default:
		if err := working.Transfer(from, to, value); err != nil {
			return outcome{}, err
		}

		c, isContract := s.contracts[to]
		if !isContract {
			if tx.Method != "" {
				return outcome{}, fmt.Errorf("%w: %s", ErrNotContract, to)
			}
			break
		}

		e := env{working: working, sender: from, address: to, value: value, meter: meter, timestamp: tx.TimeStamp}
		if err := s.call(ctx, c, &e, tx.Method, tx.Data); err != nil {
			return outcome{}, fmt.Errorf("%w: %w", ErrReverted, err)
		}

		out.contract = c.name
		out.method = tx.Method
		if out.method == "" {
			out.method = fundme.MethodFund
		}
	}

	// Charge the sender for the gas used.
	fee := new(uint256.Int).Mul(uint256.NewInt(meter.Used()), uint256.NewInt(tx.GasPrice))
	if err := working.Debit(from, fee); err != nil {
		return outcome{}, err
	}
	working.IncrementNonce(from)

	out.receipt.GasUsed = meter.Used()

	return out, nil
}

// commit applies the outcome of a transaction that was sealed in the block.
func (s *State) commit(block database.Block, out outcome) database.Receipt {
	out.working.Commit()

	if out.created != nil {
		s.contracts[out.created.address] = *out.created
	}

	receipt := out.receipt
	receipt.BlockNumber = block.Header.Number
	receipt.BlockHash = block.Hash()
	s.receipts[receipt.TxHash] = receipt

	if s.gasRecorder != nil && out.contract != "" {
		s.gasRecorder.Record(out.contract, out.method, receipt.GasUsed)
	}

	return receipt
}
