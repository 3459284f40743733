package cmd

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"io"
	"math/big"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardanlabs/fundme/app/services/node/handlers"
	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/fundme/foundation/blockchain/genesis"
	"github.com/ardanlabs/fundme/foundation/blockchain/state"
	"github.com/ardanlabs/fundme/foundation/deploy"
	"github.com/ardanlabs/fundme/foundation/events"
	"github.com/ardanlabs/fundme/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

var keys = map[string]string{
	"deployer": "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	"alice":    "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
}

func Test_Wallet(t *testing.T) {
	t.Log("Given the need to fund and withdraw through the wallet.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a node with a deployed FundMe contract.", testID)
		{
			accounts := newNode(t)
			alice := accounts["alice"]

			out, err := run(t, "account", "--account", "alice")
			if err != nil || strings.TrimSpace(out) != string(alice) {
				t.Fatalf("\t%s\tTest %d:\tShould print the account of the key: got %q, %v", failed, testID, out, err)
			}
			t.Logf("\t%s\tTest %d:\tShould print the account of the key.", success, testID)

			if _, err := run(t, "fund", "--account", "alice", "--value", "0.1eth"); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to fund: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to fund.", success, testID)

			out, err = run(t, "funded", "--account", "alice")
			if err != nil || !strings.Contains(out, "100000000000000000") {
				t.Fatalf("\t%s\tTest %d:\tShould report the amount funded: got %q, %v", failed, testID, out, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report the amount funded.", success, testID)

			out, err = run(t, "funder", "0")
			if err != nil || !strings.Contains(out, string(alice)) {
				t.Fatalf("\t%s\tTest %d:\tShould list alice as the first funder: got %q, %v", failed, testID, out, err)
			}
			t.Logf("\t%s\tTest %d:\tShould list alice as the first funder.", success, testID)

			if _, err := run(t, "funder", "1"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould fail for a funder index out of range.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould fail for a funder index out of range.", success, testID)

			if _, err := run(t, "fund", "--account", "alice", "--value", "1000"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould refuse a payment below the minimum.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse a payment below the minimum.", success, testID)

			if _, err := run(t, "withdraw", "--account", "alice", "--cheaper=false"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould only let the owner withdraw.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould only let the owner withdraw.", success, testID)

			if _, err := run(t, "withdraw", "--account", "deployer", "--cheaper"); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould let the owner withdraw: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould let the owner withdraw.", success, testID)

			out, err = run(t, "funded", string(alice))
			if err != nil || strings.TrimSpace(out) != string(alice)+" 0" {
				t.Fatalf("\t%s\tTest %d:\tShould reset the amount funded: got %q, %v", failed, testID, out, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reset the amount funded.", success, testID)

			out, err = run(t, "info")
			if err != nil || !strings.Contains(out, "Balance: 0\n") || !strings.Contains(out, "Funders: 0\n") {
				t.Fatalf("\t%s\tTest %d:\tShould leave the contract empty: got %q, %v", failed, testID, out, err)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the contract empty.", success, testID)

			out, err = run(t, "pricefeed")
			if err != nil || !strings.Contains(out, "200000000000") {
				t.Fatalf("\t%s\tTest %d:\tShould print the latest price: got %q, %v", failed, testID, out, err)
			}
			t.Logf("\t%s\tTest %d:\tShould print the latest price.", success, testID)

			out, err = run(t, "generate", "--account", "frank")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to generate a key: %v", failed, testID, err)
			}
			if _, err := os.Stat(filepath.Join(accountPath, "frank.ecdsa")); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould write the generated key: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to generate a key.", success, testID)
		}
	}
}

func Test_ParseValue(t *testing.T) {
	tt := []struct {
		name  string
		value string
		wei   string
		fails bool
	}{
		{name: "wei", value: "1000", wei: "1000"},
		{name: "ether", value: "0.1eth", wei: "100000000000000000"},
		{name: "ether-upper", value: "2 ETH", wei: "2000000000000000000"},
		{name: "empty", value: "", wei: "0"},
		{name: "fraction", value: "0.5", fails: true},
		{name: "negative", value: "-1", fails: true},
		{name: "garbage", value: "abc", fails: true},
	}

	t.Log("Given the need to parse values given to the wallet.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %q.", testID, tst.value)
				{
					wei, err := parseValue(tst.value)
					if tst.fails {
						if err == nil {
							t.Fatalf("\t%s\tTest %d:\tShould refuse the value: got %s", failed, testID, wei)
						}
						t.Logf("\t%s\tTest %d:\tShould refuse the value.", success, testID)
						return
					}

					if err != nil || wei.String() != tst.wei {
						t.Fatalf("\t%s\tTest %d:\tShould get %s wei: got %v, %v", failed, testID, tst.wei, wei, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get %s wei.", success, testID, tst.wei)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

// =============================================================================

// newNode starts the public API over a fresh chain with FundMe deployed and
// points the wallet at it with the test keys.
func newNode(t *testing.T) map[string]database.AccountID {
	dir := t.TempDir()

	balance, _ := new(big.Int).SetString("10000000000000000000000", 10)
	balances := make(map[string]*big.Int)
	accounts := make(map[string]database.AccountID)
	pks := make(map[string]*ecdsa.PrivateKey)

	for name, hex := range keys {
		pk, err := crypto.HexToECDSA(hex)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the %s key: %v", failed, name, err)
		}

		if err := crypto.SaveECDSA(filepath.Join(dir, name+keyExtension), pk); err != nil {
			t.Fatalf("\t%s\tShould be able to save the %s key: %v", failed, name, err)
		}

		accountID := database.PublicKeyToAccountID(pk.PublicKey)
		accounts[name] = accountID
		balances[string(accountID)] = balance
		pks[name] = pk
	}

	st, err := state.New(state.Config{
		Genesis: genesis.Genesis{
			ChainID:  31337,
			GasPrice: 1_000_000_000,
			GasLimit: genesis.DefaultGasLimit,
			Balances: balances,
		},
		Storage: memory.New(),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	store, err := deploy.Fixture(context.Background(), st, pks["deployer"])
	if err != nil {
		t.Fatalf("\t%s\tShould be able to deploy the contracts: %v", failed, err)
	}

	ns, err := nameservice.New(dir)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the name service: %v", failed, err)
	}

	mux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:    make(chan os.Signal, 1),
		Log:         zap.NewNop().Sugar(),
		State:       st,
		NS:          ns,
		Evts:        events.New(),
		Deployments: store,
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	accountPath = dir
	nodeURL = server.URL

	return accounts
}

// run executes the wallet with the arguments and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer

	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)

	err := rootCmd.ExecuteContext(context.Background())

	return out.String(), err
}
