package state_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/fundme"
	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/pricefeed"
	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/fundme/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/fundme/foundation/blockchain/genesis"
	"github.com/ardanlabs/fundme/foundation/blockchain/state"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Hardhat development keys. The first key is the deployer.
var hardhatKeys = []string{
	"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a",
	"7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6",
	"47e179ec197488593b187f80a00eb0da91f1b9d0b13f8733639f19c30a34926a",
	"8b3a350cf5c34c9194ca85829a2df0ec3153be0318b5e2d3348e872092edffba",
}

const (
	chainID  = 31337
	gasPrice = 1_000_000_000
	gasLimit = 1_000_000
)

var oneEther = big.NewInt(1_000_000_000_000_000_000)

// =============================================================================

func Test_Deploy(t *testing.T) {
	t.Log("Given the need to deploy the contracts.")
	{
		t.Logf("\tTest 0:\tWhen deploying the mock and FundMe.")
		{
			h := newHarness(t, memory.New())
			mock, fm := h.deploy()

			if exp := database.ContractAccountID(h.ids[0], 0); mock != exp {
				t.Fatalf("\t%s\tTest 0:\tShould derive the mock address from the deployer nonce: got %s, exp %s", failed, mock, exp)
			}
			t.Logf("\t%s\tTest 0:\tShould derive the mock address from the deployer nonce.", success)

			info, err := h.st.QueryFundMe(fm)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to query FundMe: %v", failed, err)
			}

			if info.PriceFeed != mock {
				t.Fatalf("\t%s\tTest 0:\tShould set the aggregator address correctly: got %s, exp %s", failed, info.PriceFeed, mock)
			}
			t.Logf("\t%s\tTest 0:\tShould set the aggregator address correctly.", success)

			if info.Owner != h.ids[0] {
				t.Fatalf("\t%s\tTest 0:\tShould set the deployer as owner: got %s", failed, info.Owner)
			}
			t.Logf("\t%s\tTest 0:\tShould set the deployer as owner.", success)

			round, decimals, err := h.st.QueryRoundData(context.Background(), fm)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to read the price feed: %v", failed, err)
			}
			if decimals != pricefeed.MockDecimals || round.Answer.Int64() != pricefeed.MockInitialAnswer {
				t.Fatalf("\t%s\tTest 0:\tShould see the initial answer: %d %s", failed, decimals, round.Answer)
			}
			t.Logf("\t%s\tTest 0:\tShould see the initial answer.", success)

			if h.st.LatestBlock().Header.Number != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould mine a block per deployment: %d", failed, h.st.LatestBlock().Header.Number)
			}
			t.Logf("\t%s\tTest 0:\tShould mine a block per deployment.", success)
		}

		t.Logf("\tTest 1:\tWhen deploying FundMe against an unknown feed.")
		{
			h := newHarness(t, memory.New())

			data, err := state.EncodeCreate(fundme.Name, state.FundMeArgs{PriceFeed: h.ids[5]})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to encode the constructor: %v", failed, err)
			}

			_, err = h.send(0, "", nil, "", data)
			if !errors.Is(err, state.ErrReverted) || !errors.Is(err, state.ErrNotFound) {
				t.Fatalf("\t%s\tTest 1:\tShould revert without a feed: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould revert without a feed.", success)
		}
	}
}

func Test_Fund(t *testing.T) {
	t.Log("Given the need to fund the contract.")
	{
		t.Logf("\tTest 0:\tWhen not sending enough ETH.")
		{
			h := newHarness(t, memory.New())
			_, fm := h.deploy()

			before := h.st.QueryAccount(h.ids[0])
			number := h.st.LatestBlock().Header.Number

			_, err := h.send(0, fm, nil, fundme.MethodFund, nil)
			if !errors.Is(err, state.ErrReverted) || !errors.Is(err, fundme.ErrInsufficientPayment) {
				t.Fatalf("\t%s\tTest 0:\tShould fail with %q: %v", failed, fundme.ErrInsufficientPayment, err)
			}
			t.Logf("\t%s\tTest 0:\tShould fail with %q.", success, fundme.ErrInsufficientPayment)

			after := h.st.QueryAccount(h.ids[0])
			if after.Nonce != before.Nonce || !after.Balance.Eq(&before.Balance) {
				t.Fatalf("\t%s\tTest 0:\tShould not charge the sender: nonce %d/%d", failed, after.Nonce, before.Nonce)
			}
			t.Logf("\t%s\tTest 0:\tShould not charge the sender.", success)

			if h.st.LatestBlock().Header.Number != number {
				t.Fatalf("\t%s\tTest 0:\tShould not mine a block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not mine a block.", success)

			if _, err := h.st.QueryFunder(fm, 0); !errors.Is(err, fundme.ErrIndexOutOfRange) {
				t.Fatalf("\t%s\tTest 0:\tShould not record a funder: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould not record a funder.", success)
		}

		t.Logf("\tTest 1:\tWhen sending one ether.")
		{
			h := newHarness(t, memory.New())
			_, fm := h.deploy()

			if _, err := h.send(0, fm, oneEther, fundme.MethodFund, nil); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to fund: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to fund.", success)

			amount, err := h.st.QueryAmountFunded(fm, h.ids[0])
			if err != nil || amount.ToBig().Cmp(oneEther) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould update the amount funded data structure: %v %v", failed, amount, err)
			}
			t.Logf("\t%s\tTest 1:\tShould update the amount funded data structure.", success)

			funder, err := h.st.QueryFunder(fm, 0)
			if err != nil || funder != h.ids[0] {
				t.Fatalf("\t%s\tTest 1:\tShould add the funder to the funders array: %s %v", failed, funder, err)
			}
			t.Logf("\t%s\tTest 1:\tShould add the funder to the funders array.", success)

			funder, amount, err = h.st.QueryFunderRecord(fm, 0)
			if err != nil || funder != h.ids[0] || amount.ToBig().Cmp(oneEther) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould read the funder with its amount: %s %v %v", failed, funder, amount, err)
			}
			t.Logf("\t%s\tTest 1:\tShould read the funder with its amount.", success)

			contract := h.st.QueryAccount(fm)
			if contract.Balance.ToBig().Cmp(oneEther) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould hold the value in the contract: %s", failed, contract.Balance.Dec())
			}
			t.Logf("\t%s\tTest 1:\tShould hold the value in the contract.", success)
		}

		t.Logf("\tTest 2:\tWhen sending value without a method.")
		{
			h := newHarness(t, memory.New())
			_, fm := h.deploy()

			if _, err := h.send(1, fm, oneEther, "", nil); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to fund: %v", failed, err)
			}

			funder, err := h.st.QueryFunder(fm, 0)
			if err != nil || funder != h.ids[1] {
				t.Fatalf("\t%s\tTest 2:\tShould treat the value as funding: %s %v", failed, funder, err)
			}
			t.Logf("\t%s\tTest 2:\tShould treat the value as funding.", success)
		}

		t.Logf("\tTest 3:\tWhen the price drops.")
		{
			h := newHarness(t, memory.New())
			mock, fm := h.deploy()

			// 0.025 ETH is exactly 50 USD at 2000 USD per ETH.
			minimum := big.NewInt(25_000_000_000_000_000)
			if _, err := h.send(1, fm, minimum, fundme.MethodFund, nil); err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould accept the minimum: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould accept the minimum.", success)

			data := fmt.Appendf(nil, `{"answer":%d}`, 100_000_000_000)
			if _, err := h.send(0, mock, nil, state.MethodUpdateAnswer, data); err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to update the answer: %v", failed, err)
			}

			if _, err := h.send(1, fm, minimum, fundme.MethodFund, nil); !errors.Is(err, fundme.ErrInsufficientPayment) {
				t.Fatalf("\t%s\tTest 3:\tShould refuse the same amount at the lower price: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould refuse the same amount at the lower price.", success)
		}
	}
}

func Test_Withdraw(t *testing.T) {
	type table struct {
		name   string
		method string
	}

	tt := []table{
		{name: "withdraw", method: fundme.MethodWithdraw},
		{name: "cheaper", method: fundme.MethodCheaperWithdraw},
	}

	t.Log("Given the need to withdraw the funds.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen calling %s.", testID, tst.method)
			{
				f := func(t *testing.T) {
					h := newHarness(t, memory.New())
					_, fm := h.deploy()

					if _, err := h.send(0, fm, oneEther, fundme.MethodFund, nil); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to fund: %v", failed, testID, err)
					}

					// Single funder.
					startContract := h.st.QueryAccount(fm).Balance
					startOwner := h.st.QueryAccount(h.ids[0]).Balance

					receipt, err := h.send(0, fm, nil, tst.method, nil)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to withdraw: %v", failed, testID, err)
					}

					h.checkWithdrawn(testID, fm, &startContract, &startOwner, receipt)
					t.Logf("\t%s\tTest %d:\tShould withdraw ETH from a single funder.", success, testID)

					// Multiple funders.
					for i := 1; i < 6; i++ {
						if _, err := h.send(i, fm, oneEther, fundme.MethodFund, nil); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to fund from account %d: %v", failed, testID, i, err)
						}
					}

					startContract = h.st.QueryAccount(fm).Balance
					startOwner = h.st.QueryAccount(h.ids[0]).Balance

					receipt, err = h.send(0, fm, nil, tst.method, nil)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to withdraw: %v", failed, testID, err)
					}

					h.checkWithdrawn(testID, fm, &startContract, &startOwner, receipt)
					for i := 1; i < 6; i++ {
						amount, err := h.st.QueryAmountFunded(fm, h.ids[i])
						if err != nil || !amount.IsZero() {
							t.Fatalf("\t%s\tTest %d:\tShould reset the amount for account %d: %v", failed, testID, i, amount)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould allow us to withdraw with multiple funders.", success, testID)

					// Attacker.
					if _, err := h.send(1, fm, oneEther, fundme.MethodFund, nil); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to fund: %v", failed, testID, err)
					}

					_, err = h.send(1, fm, nil, tst.method, nil)
					if !errors.Is(err, fundme.ErrNotOwner) {
						t.Fatalf("\t%s\tTest %d:\tShould only allow the owner to withdraw: %v", failed, testID, err)
					}

					info, err := h.st.QueryFundMe(fm)
					if err != nil || info.FunderCount != 1 || info.Balance.ToBig().Cmp(oneEther) != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould leave the funds alone: %+v %v", failed, testID, info, err)
					}
					t.Logf("\t%s\tTest %d:\tShould only allow the owner to withdraw.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_WithdrawGas(t *testing.T) {
	t.Log("Given the need to compare the cost of both withdraw methods.")
	{
		gasUsed := make(map[string]uint64)
		funders := make(map[string][]database.AccountID)

		for _, method := range []string{fundme.MethodWithdraw, fundme.MethodCheaperWithdraw} {
			h := newHarness(t, memory.New())
			_, fm := h.deploy()

			for i := 1; i < 6; i++ {
				if _, err := h.send(i, fm, oneEther, fundme.MethodFund, nil); err != nil {
					t.Fatalf("\t%s\tShould be able to fund: %v", failed, err)
				}
			}

			receipt, err := h.send(0, fm, nil, method, nil)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to call %s: %v", failed, method, err)
			}

			gasUsed[method] = receipt.GasUsed
			funders[method] = nil
			for i := 1; i < 6; i++ {
				if amount, _ := h.st.QueryAmountFunded(fm, h.ids[i]); !amount.IsZero() {
					funders[method] = append(funders[method], h.ids[i])
				}
			}
		}

		if gasUsed[fundme.MethodCheaperWithdraw] >= gasUsed[fundme.MethodWithdraw] {
			t.Fatalf("\t%s\tShould use less gas with cheaperWithdraw: %d >= %d", failed, gasUsed[fundme.MethodCheaperWithdraw], gasUsed[fundme.MethodWithdraw])
		}
		t.Logf("\t%s\tShould use less gas with cheaperWithdraw: %d < %d", success, gasUsed[fundme.MethodCheaperWithdraw], gasUsed[fundme.MethodWithdraw])

		if len(funders[fundme.MethodWithdraw]) != 0 || len(funders[fundme.MethodCheaperWithdraw]) != 0 {
			t.Fatalf("\t%s\tShould reach the same state.", failed)
		}
		t.Logf("\t%s\tShould reach the same state.", success)
	}
}

func Test_Transactions(t *testing.T) {
	t.Log("Given the need to reject bad transactions.")
	{
		h := newHarness(t, memory.New())
		mock, fm := h.deploy()

		t.Logf("\tTest 0:\tWhen reusing a nonce.")
		{
			tx, err := database.NewTx(chainID, 0, fm, oneEther, gasLimit, fundme.MethodFund, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct a transaction: %v", failed, err)
			}

			signedTx, err := tx.Sign(h.keys[0])
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to sign: %v", failed, err)
			}

			if _, err := h.st.SubmitTransaction(context.Background(), signedTx); !errors.Is(err, state.ErrNonce) {
				t.Fatalf("\t%s\tTest 0:\tShould reject the nonce: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject the nonce.", success)
		}

		t.Logf("\tTest 1:\tWhen the sender can't pay for the gas.")
		{
			_, err := h.sendGas(1, fm, new(big.Int).Mul(oneEther, big.NewInt(10_000)), fundme.MethodFund, nil, gasLimit)
			if !errors.Is(err, database.ErrInsufficientFunds) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the transaction.", success)
		}

		t.Logf("\tTest 2:\tWhen the gas limit is too low for the call.")
		{
			for i := 1; i < 6; i++ {
				if _, err := h.send(i, fm, oneEther, fundme.MethodFund, nil); err != nil {
					t.Fatalf("\t%s\tTest 2:\tShould be able to fund: %v", failed, err)
				}
			}

			_, err := h.sendGas(0, fm, nil, fundme.MethodWithdraw, nil, 30_000)
			if !errors.Is(err, state.ErrReverted) {
				t.Fatalf("\t%s\tTest 2:\tShould run out of gas: %v", failed, err)
			}

			info, err := h.st.QueryFundMe(fm)
			if err != nil || info.FunderCount != 5 {
				t.Fatalf("\t%s\tTest 2:\tShould keep the funders: %+v %v", failed, info, err)
			}
			t.Logf("\t%s\tTest 2:\tShould run out of gas and keep the funders.", success)
		}

		t.Logf("\tTest 3:\tWhen calling a method that doesn't exist.")
		{
			if _, err := h.send(0, fm, nil, "selfdestruct", nil); !errors.Is(err, state.ErrUnknownMethod) {
				t.Fatalf("\t%s\tTest 3:\tShould reject the method: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould reject the method.", success)
		}

		t.Logf("\tTest 4:\tWhen sending value to withdraw.")
		{
			if _, err := h.send(0, fm, oneEther, fundme.MethodWithdraw, nil); !errors.Is(err, state.ErrNonPayable) {
				t.Fatalf("\t%s\tTest 4:\tShould reject the value: %v", failed, err)
			}
			t.Logf("\t%s\tTest 4:\tShould reject the value.", success)
		}

		t.Logf("\tTest 5:\tWhen deploying FundMe with value attached.")
		{
			data, err := state.EncodeCreate(fundme.Name, state.FundMeArgs{PriceFeed: mock})
			if err != nil {
				t.Fatalf("\t%s\tTest 5:\tShould be able to encode the constructor: %v", failed, err)
			}

			nonce := h.st.QueryAccount(h.ids[0]).Nonce

			if _, err := h.send(0, "", oneEther, "", data); !errors.Is(err, state.ErrNonPayable) {
				t.Fatalf("\t%s\tTest 5:\tShould reject the value: %v", failed, err)
			}
			t.Logf("\t%s\tTest 5:\tShould reject the value.", success)

			created := database.ContractAccountID(h.ids[0], nonce)
			if _, err := h.st.QueryContract(created); !errors.Is(err, state.ErrNotContract) {
				t.Fatalf("\t%s\tTest 5:\tShould not create the contract: %v", failed, err)
			}
			if bal := h.st.QueryAccount(created).Balance; !bal.IsZero() {
				t.Fatalf("\t%s\tTest 5:\tShould not move the value: %s", failed, bal.Dec())
			}
			t.Logf("\t%s\tTest 5:\tShould not create the contract or move the value.", success)
		}

		t.Logf("\tTest 6:\tWhen sending value to the lowercase contract address.")
		{
			before, err := h.st.QueryAmountFunded(fm, h.ids[1])
			if err != nil {
				t.Fatalf("\t%s\tTest 6:\tShould be able to query the amount funded: %v", failed, err)
			}

			lower := database.AccountID(strings.ToLower(string(fm)))

			receipt, err := h.send(1, lower, oneEther, "", nil)
			if err != nil {
				t.Fatalf("\t%s\tTest 6:\tShould be able to fund: %v", failed, err)
			}
			if receipt.To != fm {
				t.Fatalf("\t%s\tTest 6:\tShould record the checksum address: got %s, exp %s", failed, receipt.To, fm)
			}
			t.Logf("\t%s\tTest 6:\tShould record the checksum address.", success)

			after, err := h.st.QueryAmountFunded(fm, h.ids[1])
			if err != nil {
				t.Fatalf("\t%s\tTest 6:\tShould be able to query the amount funded: %v", failed, err)
			}
			exp := new(big.Int).Add(before.ToBig(), oneEther)
			if after.ToBig().Cmp(exp) != 0 {
				t.Fatalf("\t%s\tTest 6:\tShould treat the value as funding: got %s, exp %s", failed, after.Dec(), exp)
			}
			t.Logf("\t%s\tTest 6:\tShould treat the value as funding.", success)

			info, err := h.st.QueryFundMe(fm)
			if err != nil || info.Balance.Cmp(info.TotalFunded) != 0 {
				t.Fatalf("\t%s\tTest 6:\tShould keep the balance equal to the funded total: %+v %v", failed, info, err)
			}
			if bal := h.st.QueryAccount(lower).Balance; lower != fm && !bal.IsZero() {
				t.Fatalf("\t%s\tTest 6:\tShould not credit a lowercase account: %s", failed, bal.Dec())
			}
			t.Logf("\t%s\tTest 6:\tShould keep the balance equal to the funded total.", success)
		}
	}
}

func Test_Replay(t *testing.T) {
	t.Log("Given the need to restart a node from storage.")
	{
		dir := t.TempDir()

		strg, err := disk.New(dir)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to open storage: %v", failed, err)
		}

		h := newHarness(t, strg)
		_, fm := h.deploy()

		for i := 1; i < 4; i++ {
			if _, err := h.send(i, fm, oneEther, fundme.MethodFund, nil); err != nil {
				t.Fatalf("\t%s\tShould be able to fund: %v", failed, err)
			}
		}
		receipt, err := h.send(0, fm, nil, fundme.MethodCheaperWithdraw, nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to withdraw: %v", failed, err)
		}
		if _, err := h.send(2, fm, oneEther, fundme.MethodFund, nil); err != nil {
			t.Fatalf("\t%s\tShould be able to fund: %v", failed, err)
		}
		h.st.Shutdown()

		strg, err = disk.New(dir)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to reopen storage: %v", failed, err)
		}

		st, err := state.New(state.Config{Genesis: h.gen, Storage: strg})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to replay the chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to replay the chain.", success)

		if st.LatestBlock().Hash() != h.st.LatestBlock().Hash() {
			t.Fatalf("\t%s\tShould end on the same block.", failed)
		}
		t.Logf("\t%s\tShould end on the same block.", success)

		for _, id := range append(h.ids, fm) {
			got, exp := st.QueryAccount(id), h.st.QueryAccount(id)
			if got.Nonce != exp.Nonce || !got.Balance.Eq(&exp.Balance) {
				t.Fatalf("\t%s\tShould rebuild account %s: got %s, exp %s", failed, id, got.Balance.Dec(), exp.Balance.Dec())
			}
		}
		t.Logf("\t%s\tShould rebuild the accounts.", success)

		funder, err := st.QueryFunder(fm, 0)
		if err != nil || funder != h.ids[2] {
			t.Fatalf("\t%s\tShould rebuild the funders: %s %v", failed, funder, err)
		}
		t.Logf("\t%s\tShould rebuild the funders.", success)

		got, err := st.QueryReceipt(receipt.TxHash)
		if err != nil || got.GasUsed != receipt.GasUsed || got.BlockNumber != receipt.BlockNumber {
			t.Fatalf("\t%s\tShould rebuild the receipts: %+v %v", failed, got, err)
		}
		t.Logf("\t%s\tShould rebuild the receipts.", success)
	}
}

// =============================================================================

type harness struct {
	t    *testing.T
	st   *state.State
	gen  genesis.Genesis
	keys []*ecdsa.PrivateKey
	ids  []database.AccountID
}

func newHarness(t *testing.T, strg database.Storage) *harness {
	balance := new(big.Int).Mul(oneEther, big.NewInt(10_000))

	h := harness{
		t: t,
		gen: genesis.Genesis{
			ChainID:  chainID,
			GasPrice: gasPrice,
			GasLimit: genesis.DefaultGasLimit,
			Balances: make(map[string]*big.Int),
		},
	}

	for _, hexKey := range hardhatKeys {
		pk, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the private key: %v", failed, err)
		}

		id := database.PublicKeyToAccountID(pk.PublicKey)
		h.keys = append(h.keys, pk)
		h.ids = append(h.ids, id)
		h.gen.Balances[string(id)] = balance
	}

	st, err := state.New(state.Config{Genesis: h.gen, Storage: strg})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}
	h.st = st

	return &h
}

// deploy deploys the price feed mock and FundMe from the deployer.
func (h *harness) deploy() (mock database.AccountID, fm database.AccountID) {
	data, err := state.EncodeCreate(state.MockV3Aggregator, state.MockArgs{
		Decimals:      pricefeed.MockDecimals,
		InitialAnswer: big.NewInt(pricefeed.MockInitialAnswer),
	})
	if err != nil {
		h.t.Fatalf("\t%s\tShould be able to encode the mock constructor: %v", failed, err)
	}

	receipt, err := h.send(0, "", nil, "", data)
	if err != nil {
		h.t.Fatalf("\t%s\tShould be able to deploy the mock: %v", failed, err)
	}
	mock = receipt.ContractAddress

	data, err = state.EncodeCreate(fundme.Name, state.FundMeArgs{PriceFeed: mock})
	if err != nil {
		h.t.Fatalf("\t%s\tShould be able to encode the FundMe constructor: %v", failed, err)
	}

	receipt, err = h.send(0, "", nil, "", data)
	if err != nil {
		h.t.Fatalf("\t%s\tShould be able to deploy FundMe: %v", failed, err)
	}

	return mock, receipt.ContractAddress
}

func (h *harness) send(from int, to database.AccountID, value *big.Int, method string, data []byte) (database.Receipt, error) {
	return h.sendGas(from, to, value, method, data, gasLimit)
}

func (h *harness) sendGas(from int, to database.AccountID, value *big.Int, method string, data []byte, limit uint64) (database.Receipt, error) {
	nonce := h.st.QueryAccount(h.ids[from]).Nonce

	tx, err := database.NewTx(chainID, nonce, to, value, limit, method, data)
	if err != nil {
		return database.Receipt{}, err
	}

	signedTx, err := tx.Sign(h.keys[from])
	if err != nil {
		return database.Receipt{}, err
	}

	return h.st.SubmitTransaction(context.Background(), signedTx)
}

// checkWithdrawn validates the state after a withdrawal by the deployer.
func (h *harness) checkWithdrawn(testID int, fm database.AccountID, startContract *uint256.Int, startOwner *uint256.Int, receipt database.Receipt) {
	t := h.t

	endContract := h.st.QueryAccount(fm).Balance
	if !endContract.IsZero() {
		t.Fatalf("\t%s\tTest %d:\tShould empty the contract: %s", failed, testID, endContract.Dec())
	}

	endOwner := h.st.QueryAccount(h.ids[0]).Balance

	start := new(uint256.Int).Add(startContract, startOwner)
	end := new(uint256.Int).Add(&endOwner, receipt.GasCost())
	if !start.Eq(end) {
		t.Fatalf("\t%s\tTest %d:\tShould move the balance to the owner: start %s, end %s", failed, testID, start.Dec(), end.Dec())
	}

	if _, err := h.st.QueryFunder(fm, 0); !errors.Is(err, fundme.ErrIndexOutOfRange) {
		t.Fatalf("\t%s\tTest %d:\tShould reset the funders array: %v", failed, testID, err)
	}
}
