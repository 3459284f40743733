package cmd

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ardanlabs/fundme/business/web/errs"
	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/genesis"
)

// defaultGasLimit covers every FundMe call including a withdraw with
// a long list of funders.
const defaultGasLimit = 3_000_000

// account is what the node returns for an account.
type account struct {
	Account database.AccountID `json:"account"`
	Name    string             `json:"name"`
	Balance string             `json:"balance"`
	Nonce   uint64             `json:"nonce"`
}

// fundMeInfo is what the node returns for the deployed FundMe contract.
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

// client talks to the public API of a node.
type client struct {
	url  string
	http *http.Client
}

func newClient(url string) *client {
	return &client{
		url:  strings.TrimSuffix(url, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Account returns the balance and nonce of the account.
func (c *client) Account(ctx context.Context, accountID database.AccountID) (account, error) {
	var resp struct {
		Accounts []account `json:"accounts"`
	}
	if err := c.get(ctx, "/v1/accounts/list/"+string(accountID), &resp); err != nil {
		return account{}, err
	}

	if len(resp.Accounts) == 0 {
		return account{}, fmt.Errorf("account %s not found", accountID)
	}

	return resp.Accounts[0], nil
}

// FundMe returns the deployed FundMe contract.
func (c *client) FundMe(ctx context.Context) (fundMeInfo, error) {
	var fm fundMeInfo
	if err := c.get(ctx, "/v1/fundme/info", &fm); err != nil {
		return fundMeInfo{}, err
	}

	return fm, nil
}

// Send signs a transaction from the key's account with its next nonce and
// submits it. The receipt comes back once the transaction is mined.
func (c *client) Send(ctx context.Context, privateKey *ecdsa.PrivateKey, to database.AccountID, value *big.Int, method string, data []byte) (database.Receipt, error) {
	var gen genesis.Genesis
	if err := c.get(ctx, "/v1/genesis/list", &gen); err != nil {
		return database.Receipt{}, err
	}

	act, err := c.Account(ctx, database.PublicKeyToAccountID(privateKey.PublicKey))
	if err != nil {
		return database.Receipt{}, err
	}

	tx, err := database.NewTx(gen.ChainID, act.Nonce, to, value, defaultGasLimit, method, data)
	if err != nil {
		return database.Receipt{}, err
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		return database.Receipt{}, err
	}

	var receipt database.Receipt
	if err := c.post(ctx, "/v1/tx/submit", signedTx, &receipt); err != nil {
		return database.Receipt{}, err
	}

	return receipt, nil
}

// =============================================================================

func (c *client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+path, nil)
	if err != nil {
		return err
	}

	return c.do(req, v)
}

func (c *client) post(ctx context.Context, path string, body any, v any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, v)
}

func (c *client) do(req *http.Request, v any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var er errs.Response
		if err := json.Unmarshal(body, &er); err != nil || er.Error == "" {
			return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
		}
		return errors.New(er.Error)
	}

	return json.Unmarshal(body, v)
}

// =============================================================================

var weiPerEther = big.NewRat(1_000_000_000_000_000_000, 1)

// parseValue converts a value in wei or, with an eth suffix, in ether into
// wei. Fractions of a wei are refused.
func parseValue(s string) (*big.Int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return big.NewInt(0), nil
	}

	ether := strings.HasSuffix(s, "eth")
	s = strings.TrimSpace(strings.TrimSuffix(s, "eth"))

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid value %q", s)
	}

	if ether {
		r.Mul(r, weiPerEther)
	}

	if r.Sign() < 0 || !r.IsInt() {
		return nil, fmt.Errorf("value %q is not a whole number of wei", s)
	}

	return new(big.Int).Set(r.Num()), nil
}
