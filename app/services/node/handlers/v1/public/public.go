// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/fundme/business/web/errs"
	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/fundme"
	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/state"
	"github.com/ardanlabs/fundme/foundation/deploy"
	"github.com/ardanlabs/fundme/foundation/events"
	"github.com/ardanlabs/fundme/foundation/gasreport"
	"github.com/ardanlabs/fundme/foundation/nameservice"
	"github.com/ardanlabs/fundme/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public endpoints.
type Handlers struct {
	Log         *zap.SugaredLogger
	State       *state.State
	NS          *nameservice.NameService
	WS          websocket.Upgrader
	Evts        *events.Events
	DeployStore *deploy.Store
	Reporter    *gasreport.Reporter
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the blockchain.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting for events from the blockchain or ticker.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.Genesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Accounts returns the current balances for all users.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountStr := web.Param(r, "account")

	var accounts []database.Account
	switch accountStr {
	case "":
		accounts = h.State.QueryAccounts()

	default:
		accountID, err := h.NS.AccountID(accountStr)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		accounts = []database.Account{h.State.QueryAccount(accountID)}
	}

	resp := make([]info, len(accounts))
	for i, account := range accounts {
		resp[i] = info{
			Account: account.AccountID,
			Name:    h.NS.Lookup(account.AccountID),
			Balance: account.Balance.Dec(),
			Nonce:   account.Nonce,
		}
	}

	ai := actInfo{
		LatestBlock: h.State.LatestBlock().Hash(),
		Accounts:    resp,
	}

	return web.Respond(ctx, w, ai, http.StatusOK)
}

// SubmitTransaction executes a signed transaction and returns its receipt.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var signedTx database.SignedTx
	if err := web.Decode(r, &signedTx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "sig:nonce", signedTx, "to", signedTx.ToID, "method", signedTx.Method, "value", signedTx.Value)

	receipt, err := h.State.SubmitTransaction(ctx, signedTx)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	return web.Respond(ctx, w, receipt, http.StatusOK)
}

// Receipt returns the receipt of a mined transaction.
func (h Handlers) Receipt(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	receipt, err := h.State.QueryReceipt(web.Param(r, "hash"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, receipt, http.StatusOK)
}

// BlocksByNumber returns the blocks within the range. The word latest can
// be used for either end of the range.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := blockNumber(web.Param(r, "from"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to, err := blockNumber(web.Param(r, "to"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	dbBlocks, err := h.State.QueryBlocksByNumber(from, to)
	if err != nil {
		return err
	}

	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blocks := make([]block, len(dbBlocks))
	for i, blk := range dbBlocks {
		blocks[i] = toBlock(h.NS, blk)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// BlocksByAccount returns the blocks holding transactions of the account.
func (h Handlers) BlocksByAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := h.NS.AccountID(web.Param(r, "account"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	dbBlocks, err := h.State.QueryBlocksByAccount(accountID)
	if err != nil {
		return err
	}

	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blocks := make([]block, len(dbBlocks))
	for i, blk := range dbBlocks {
		blocks[i] = toBlock(h.NS, blk)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Deployments returns the contracts deployed on the network.
func (h Handlers) Deployments(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.DeployStore.All(), http.StatusOK)
}

// FundMe returns the state of the deployed FundMe contract.
func (h Handlers) FundMe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address, err := h.fundMeAddress()
	if err != nil {
		return err
	}

	fm, err := h.State.QueryFundMe(address)
	if err != nil {
		return err
	}

	resp := fundMeInfo{
		Address:     fm.Address,
		Owner:       fm.Owner,
		OwnerName:   h.NS.Lookup(fm.Owner),
		PriceFeed:   fm.PriceFeed,
		MinimumUSD:  weiString(fm.MinimumUSD),
		Balance:     weiString(fm.Balance),
		TotalFunded: weiString(fm.TotalFunded),
		FunderCount: fm.FunderCount,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Funder returns the funder at the index of the funder list.
func (h Handlers) Funder(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := strconv.Atoi(web.Param(r, "index"))
	if err != nil || index < 0 {
		return errs.NewTrusted(fmt.Errorf("invalid index %q", web.Param(r, "index")), http.StatusBadRequest)
	}

	address, err := h.fundMeAddress()
	if err != nil {
		return err
	}

	accountID, amount, err := h.State.QueryFunderRecord(address, index)
	if err != nil {
		return err
	}

	resp := funder{
		Index:   index,
		Account: accountID,
		Name:    h.NS.Lookup(accountID),
		Amount:  weiString(amount),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// AmountFunded returns the amount funded by the account.
func (h Handlers) AmountFunded(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := h.NS.AccountID(web.Param(r, "account"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	address, err := h.fundMeAddress()
	if err != nil {
		return err
	}

	amount, err := h.State.QueryAmountFunded(address, accountID)
	if err != nil {
		return err
	}

	resp := funded{
		Account: accountID,
		Name:    h.NS.Lookup(accountID),
		Amount:  weiString(amount),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// RoundData returns the latest round of the price feed used by FundMe.
func (h Handlers) RoundData(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address, err := h.fundMeAddress()
	if err != nil {
		return err
	}

	fm, err := h.State.QueryFundMe(address)
	if err != nil {
		return err
	}

	round, decimals, err := h.State.QueryRoundData(ctx, address)
	if err != nil {
		return err
	}

	resp := roundData{
		PriceFeed:       fm.PriceFeed,
		Decimals:        decimals,
		RoundID:         round.RoundID,
		Answer:          bigString(round.Answer),
		StartedAt:       round.StartedAt,
		UpdatedAt:       round.UpdatedAt,
		AnsweredInRound: round.AnsweredInRound,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// GasReport returns the gas used by the contract methods so far.
func (h Handlers) GasReport(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var feedAddress database.AccountID
	if address, err := h.fundMeAddress(); err == nil {
		feedAddress = address
	}

	// Without a deployed FundMe the report has no prices.
	feed, _ := h.State.QueryFeed(feedAddress)

	rep, err := h.Reporter.Report(ctx, h.State.Genesis().GasPrice, feed)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, rep, http.StatusOK)
}

// =============================================================================

func (h Handlers) fundMeAddress() (database.AccountID, error) {
	d, err := h.DeployStore.Get(fundme.Name)
	if err != nil {
		return "", err
	}

	return d.Address, nil
}

func blockNumber(v string) (uint64, error) {
	if v == "latest" || v == "" {
		return state.QueryLatest, nil
	}

	num, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q", v)
	}

	return num, nil
}
