// Package private maintains the group of handlers for node administration.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/state"
	"github.com/ardanlabs/fundme/foundation/deploy"
	"github.com/ardanlabs/fundme/foundation/nameservice"
	"github.com/ardanlabs/fundme/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log         *zap.SugaredLogger
	State       *state.State
	NS          *nameservice.NameService
	Deployments *deploy.Store
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest := h.State.LatestBlock()

	status := struct {
		ChainID         uint16 `json:"chain_id"`
		LatestBlockHash string `json:"latest_block_hash"`
		LatestBlockNum  uint64 `json:"latest_block_number"`
		Contracts       int    `json:"contracts"`
		Deployments     int    `json:"deployments"`
	}{
		ChainID:         h.State.Genesis().ChainID,
		LatestBlockHash: latest.Hash(),
		LatestBlockNum:  latest.Header.Number,
		Contracts:       len(h.State.QueryContracts()),
		Deployments:     len(h.Deployments.All()),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// Contracts returns every contract deployed on the chain.
func (h Handlers) Contracts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	type contract struct {
		Name    string             `json:"name"`
		Address database.AccountID `json:"address"`
	}

	infos := h.State.QueryContracts()

	resp := make([]contract, len(infos))
	for i, ci := range infos {
		resp[i] = contract{Name: ci.Name, Address: ci.Address}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SealBlock seals an empty block so confirmations can advance on demand.
func (h Handlers) SealBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	block, err := h.State.SealBlock(ctx)
	if err != nil {
		return err
	}

	h.Log.Infow("seal block", "traceid", v.TraceID, "number", block.Header.Number)

	resp := struct {
		Number uint64 `json:"number"`
		Hash   string `json:"hash"`
	}{
		Number: block.Header.Number,
		Hash:   block.Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
