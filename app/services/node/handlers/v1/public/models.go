package public

import (
	"math/big"

	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/nameservice"
	"github.com/holiman/uint256"
)

type info struct {
	Account database.AccountID `json:"account"`
	Name    string             `json:"name"`
	Balance string             `json:"balance"`
	Nonce   uint64             `json:"nonce"`
}

type actInfo struct {
	LatestBlock string `json:"latest_block"`
	Accounts    []info `json:"accounts"`
}

type tx struct {
	FromAccount database.AccountID `json:"from"`
	FromName    string             `json:"from_name"`
	To          database.AccountID `json:"to"`
	ToName      string             `json:"to_name"`
	ChainID     uint16             `json:"chain_id"`
	Nonce       uint64             `json:"nonce"`
	Value       string             `json:"value"`
	GasLimit    uint64             `json:"gas_limit"`
	GasPrice    uint64             `json:"gas_price"`
	Method      string             `json:"method"`
	Data        string             `json:"data"`
	TimeStamp   uint64             `json:"timestamp"`
	Sig         string             `json:"sig"`
	Hash        string             `json:"hash"`
}

type block struct {
	Number        uint64 `json:"number"`
	PrevBlockHash string `json:"prev_block_hash"`
	TimeStamp     uint64 `json:"timestamp"`
	GasUsed       uint64 `json:"gas_used"`
	TransRoot     string `json:"trans_root"`
	BlockHash     string `json:"block_hash"`
	Transactions  []tx   `json:"txs"`
}

type fundMeInfo struct {
	Address     database.AccountID `json:"address"`
	Owner       database.AccountID `json:"owner"`
	OwnerName   string             `json:"owner_name"`
	PriceFeed   database.AccountID `json:"price_feed"`
	MinimumUSD  string             `json:"minimum_usd"`
	Balance     string             `json:"balance"`
	TotalFunded string             `json:"total_funded"`
	FunderCount int                `json:"funder_count"`
}

type funder struct {
	Index   int                `json:"index"`
	Account database.AccountID `json:"account"`
	Name    string             `json:"name"`
	Amount  string             `json:"amount"`
}

type funded struct {
	Account database.AccountID `json:"account"`
	Name    string             `json:"name"`
	Amount  string             `json:"amount"`
}

type roundData struct {
	PriceFeed       database.AccountID `json:"price_feed"`
	Decimals        uint8              `json:"decimals"`
	RoundID         uint64             `json:"round_id"`
	Answer          string             `json:"answer"`
	StartedAt       uint64             `json:"started_at"`
	UpdatedAt       uint64             `json:"updated_at"`
	AnsweredInRound uint64             `json:"answered_in_round"`
}

// =============================================================================

func toBlock(ns *nameservice.NameService, blk database.Block) block {
	trans := make([]tx, len(blk.Trans))
	for i, tran := range blk.Trans {
		trans[i] = toTx(ns, tran)
	}

	return block{
		Number:        blk.Header.Number,
		PrevBlockHash: blk.Header.PrevBlockHash,
		TimeStamp:     blk.Header.TimeStamp,
		GasUsed:       blk.Header.GasUsed,
		TransRoot:     blk.Header.TransRoot,
		BlockHash:     blk.Hash(),
		Transactions:  trans,
	}
}

func toTx(ns *nameservice.NameService, tran database.BlockTx) tx {
	account, _ := tran.FromAccount()
	to, _ := tran.ToAccount()

	return tx{
		FromAccount: account,
		FromName:    ns.Lookup(account),
		To:          to,
		ToName:      ns.Lookup(to),
		ChainID:     tran.ChainID,
		Nonce:       tran.Nonce,
		Value:       bigString(tran.Value),
		GasLimit:    tran.GasLimit,
		GasPrice:    tran.GasPrice,
		Method:      tran.Method,
		Data:        string(tran.Data),
		TimeStamp:   tran.TimeStamp,
		Sig:         tran.SignatureString(),
		Hash:        tran.Hash(),
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func weiString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
