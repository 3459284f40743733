package fundme_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/fundme"
	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/pricefeed"
	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/gas"
	"github.com/holiman/uint256"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	contractID database.AccountID = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	feedID     database.AccountID = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
	ownerID    database.AccountID = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	funderA    database.AccountID = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	funderB    database.AccountID = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
)

// sendValue is one ether, worth 2000 USD at the mock answer.
var sendValue = uint256.NewInt(1_000_000_000_000_000_000)

// =============================================================================

func Test_Fund(t *testing.T) {
	type table struct {
		name    string
		sender  database.AccountID
		value   *uint256.Int
		wantErr error
	}

	tt := []table{
		{name: "zero", sender: funderA, value: uint256.NewInt(0), wantErr: fundme.ErrInsufficientPayment},
		{name: "below", sender: funderA, value: uint256.NewInt(10_000_000_000_000_000), wantErr: fundme.ErrInsufficientPayment},
		{name: "minimum", sender: funderA, value: uint256.NewInt(25_000_000_000_000_000)},
		{name: "one-ether", sender: funderA, value: sendValue},
	}

	t.Log("Given the need to enforce the minimum contribution.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen funding %s wei.", testID, tst.value.Dec())
			{
				f := func(t *testing.T) {
					fm := newFundMe()
					env := newEnv(tst.sender, tst.value)

					err := fund(fm, env)
					if !errors.Is(err, tst.wantErr) {
						t.Fatalf("\t%s\tTest %d:\tShould get the expected result: got %v, exp %v", failed, testID, err, tst.wantErr)
					}
					t.Logf("\t%s\tTest %d:\tShould get the expected result.", success, testID)

					if tst.wantErr != nil {
						if fm.FunderCount() != 0 || !fm.AmountFunded(tst.sender).IsZero() || !env.balance(contractID).IsZero() {
							t.Fatalf("\t%s\tTest %d:\tShould leave the ledger and balance unchanged.", failed, testID)
						}
						t.Logf("\t%s\tTest %d:\tShould leave the ledger and balance unchanged.", success, testID)
						return
					}

					if got := fm.AmountFunded(tst.sender); !got.Eq(tst.value) {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, got.Dec())
						t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.value.Dec())
						t.Fatalf("\t%s\tTest %d:\tShould update the amount funded.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould update the amount funded.", success, testID)

					funder, err := fm.Funder(0)
					if err != nil || funder != tst.sender {
						t.Fatalf("\t%s\tTest %d:\tShould add the funder to the funders list: %s, %v", failed, testID, funder, err)
					}
					t.Logf("\t%s\tTest %d:\tShould add the funder to the funders list.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_FundRepeated(t *testing.T) {
	t.Log("Given the need to track repeated contributions.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen two funders contribute several times.", testID)
		{
			fm := newFundMe()
			env := newEnv(funderA, sendValue)

			contributions := []database.AccountID{funderA, funderB, funderA, funderA, funderB}
			for _, sender := range contributions {
				env.sender = sender
				if err := fund(fm, env); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to fund: %v", failed, testID, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to fund.", success, testID)

			if fm.FunderCount() != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould have one list entry per funder: got %d", failed, testID, fm.FunderCount())
			}
			t.Logf("\t%s\tTest %d:\tShould have one list entry per funder.", success, testID)

			expA := new(uint256.Int).Mul(sendValue, uint256.NewInt(3))
			expB := new(uint256.Int).Mul(sendValue, uint256.NewInt(2))
			if !fm.AmountFunded(funderA).Eq(expA) || !fm.AmountFunded(funderB).Eq(expB) {
				t.Fatalf("\t%s\tTest %d:\tShould sum the contributions per funder.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould sum the contributions per funder.", success, testID)

			first, _ := fm.Funder(0)
			second, _ := fm.Funder(1)
			if first != funderA || second != funderB {
				t.Fatalf("\t%s\tTest %d:\tShould keep the order of first contribution: %s %s", failed, testID, first, second)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the order of first contribution.", success, testID)

			if !fm.TotalFunded().Eq(env.balance(contractID)) {
				t.Fatalf("\t%s\tTest %d:\tShould have the ledger sum match the contract balance.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have the ledger sum match the contract balance.", success, testID)
		}
	}
}

func Test_Withdraw(t *testing.T) {
	type table struct {
		name     string
		withdraw func(fm *fundme.FundMe, env *fakeEnv) error
	}

	tt := []table{
		{
			name: "withdraw",
			withdraw: func(fm *fundme.FundMe, env *fakeEnv) error {
				return fm.Withdraw(context.Background(), env)
			},
		},
		{
			name: "cheaperWithdraw",
			withdraw: func(fm *fundme.FundMe, env *fakeEnv) error {
				return fm.CheaperWithdraw(context.Background(), env)
			},
		},
	}

	t.Log("Given the need to withdraw the funds.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen using %s.", testID, tst.name)
			{
				f := func(t *testing.T) {
					fm, env := fundedFundMe(t, funderA, funderB)

					env.sender = funderA
					if err := tst.withdraw(fm, env); !errors.Is(err, fundme.ErrNotOwner) {
						t.Fatalf("\t%s\tTest %d:\tShould only allow the owner to withdraw: %v", failed, testID, err)
					}
					if fm.FunderCount() != 2 || env.balance(contractID).IsZero() {
						t.Fatalf("\t%s\tTest %d:\tShould leave the state unchanged for a non owner.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould only allow the owner to withdraw.", success, testID)

					startContract := env.balance(contractID)
					startOwner := env.balance(ownerID)

					env.sender = ownerID
					env.meter = gas.NewMeter(1_000_000)
					if err := tst.withdraw(fm, env); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to withdraw: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to withdraw.", success, testID)

					if !env.balance(contractID).IsZero() {
						t.Fatalf("\t%s\tTest %d:\tShould empty the contract balance.", failed, testID)
					}
					exp := new(uint256.Int).Add(startContract, startOwner)
					if !env.balance(ownerID).Eq(exp) {
						t.Fatalf("\t%s\tTest %d:\tShould move the balance to the owner.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould move the balance to the owner.", success, testID)

					if !fm.AmountFunded(funderA).IsZero() || !fm.AmountFunded(funderB).IsZero() {
						t.Fatalf("\t%s\tTest %d:\tShould reset the funder records.", failed, testID)
					}
					if _, err := fm.Funder(0); !errors.Is(err, fundme.ErrIndexOutOfRange) {
						t.Fatalf("\t%s\tTest %d:\tShould fail reading the funders list: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould reset the funders list and records.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_WithdrawGas(t *testing.T) {
	t.Log("Given the need to compare the two withdraw strategies.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen five funders contributed.", testID)
		{
			funders := []database.AccountID{funderA, funderB, "0x90F79bf6EB2c4f870365E785982E1f101E93b906", "0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65", "0x9965507D1a55bcC2695C58ba16FB37d819B0A4dc"}

			fm1, env1 := fundedFundMe(t, funders...)
			env1.sender = ownerID
			env1.meter = gas.NewMeter(1_000_000)
			if err := fm1.Withdraw(context.Background(), env1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to withdraw: %v", failed, testID, err)
			}

			fm2, env2 := fundedFundMe(t, funders...)
			env2.sender = ownerID
			env2.meter = gas.NewMeter(1_000_000)
			if err := fm2.CheaperWithdraw(context.Background(), env2); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to cheaper withdraw: %v", failed, testID, err)
			}

			if !env1.balance(ownerID).Eq(env2.balance(ownerID)) || fm1.FunderCount() != fm2.FunderCount() {
				t.Fatalf("\t%s\tTest %d:\tShould end in the same state.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould end in the same state.", success, testID)

			if env2.meter.Used() >= env1.meter.Used() {
				t.Logf("\t%s\tTest %d:\twithdraw: %d", failed, testID, env1.meter.Used())
				t.Logf("\t%s\tTest %d:\tcheaper : %d", failed, testID, env2.meter.Used())
				t.Fatalf("\t%s\tTest %d:\tShould use less gas with cheaperWithdraw.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould use less gas with cheaperWithdraw.", success, testID)
		}
	}
}

func Test_WithdrawRollback(t *testing.T) {
	t.Log("Given the need to keep withdraw atomic.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the transfer to the owner fails.", testID)
		{
			fm, env := fundedFundMe(t, funderA, funderB)
			env.sender = ownerID
			env.failTransfer = true

			err := fm.CheaperWithdraw(context.Background(), env)
			if !errors.Is(err, fundme.ErrTransferFailed) {
				t.Fatalf("\t%s\tTest %d:\tShould report the transfer failure: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report the transfer failure.", success, testID)

			if fm.FunderCount() != 2 || !fm.AmountFunded(funderA).Eq(sendValue) || !fm.TotalFunded().Eq(env.balance(contractID)) {
				t.Fatalf("\t%s\tTest %d:\tShould leave the ledger as before the call.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the ledger as before the call.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the transaction runs out of gas.", testID)
		{
			fm, env := fundedFundMe(t, funderA, funderB)
			env.sender = ownerID
			env.meter = gas.NewMeter(gas.StorageRead * 2)

			if err := fm.Withdraw(context.Background(), env); !errors.Is(err, gas.ErrOutOfGas) {
				t.Fatalf("\t%s\tTest %d:\tShould run out of gas: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould run out of gas.", success, testID)

			if fm.FunderCount() != 2 || env.balance(contractID).IsZero() {
				t.Fatalf("\t%s\tTest %d:\tShould leave the ledger as before the call.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the ledger as before the call.", success, testID)
		}
	}
}

// =============================================================================

type fakeEnv struct {
	sender       database.AccountID
	value        *uint256.Int
	balances     map[database.AccountID]*uint256.Int
	meter        *gas.Meter
	failTransfer bool
}

func newEnv(sender database.AccountID, value *uint256.Int) *fakeEnv {
	return &fakeEnv{
		sender:   sender,
		value:    value,
		balances: make(map[database.AccountID]*uint256.Int),
		meter:    gas.NewMeter(1_000_000),
	}
}

func (e *fakeEnv) Sender() database.AccountID { return e.sender }
func (e *fakeEnv) Value() *uint256.Int        { return new(uint256.Int).Set(e.value) }
func (e *fakeEnv) Gas() *gas.Meter            { return e.meter }

func (e *fakeEnv) Balance(account database.AccountID) *uint256.Int {
	return e.balance(account)
}

func (e *fakeEnv) Transfer(to database.AccountID, amount *uint256.Int) error {
	if e.failTransfer {
		return errors.New("recipient rejected the transfer")
	}

	from := e.balance(contractID)
	e.balances[contractID] = new(uint256.Int).Sub(from, amount)
	e.balances[to] = new(uint256.Int).Add(e.balance(to), amount)
	return nil
}

func (e *fakeEnv) balance(account database.AccountID) *uint256.Int {
	if bal, exists := e.balances[account]; exists {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// fund moves the value into the contract the way the executor does and
// discards the move when the contract fails.
func fund(fm *fundme.FundMe, env *fakeEnv) error {
	before := env.balance(contractID)
	env.balances[contractID] = new(uint256.Int).Add(before, env.value)

	if err := fm.Fund(context.Background(), env); err != nil {
		env.balances[contractID] = before
		return err
	}

	return nil
}

func newFundMe() *fundme.FundMe {
	feed := pricefeed.NewMock(pricefeed.MockDecimals, big.NewInt(pricefeed.MockInitialAnswer), 1)
	return fundme.New(contractID, ownerID, feedID, feed)
}

func fundedFundMe(t *testing.T, funders ...database.AccountID) (*fundme.FundMe, *fakeEnv) {
	fm := newFundMe()
	env := newEnv(funders[0], sendValue)

	for _, funder := range funders {
		env.sender = funder
		if err := fund(fm, env); err != nil {
			t.Fatalf("Should be able to fund from %s: %v", funder, err)
		}
	}

	return fm, env
}
