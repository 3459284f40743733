// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/fundme/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/fundme/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/fundme/foundation/blockchain/state"
	"github.com/ardanlabs/fundme/foundation/deploy"
	"github.com/ardanlabs/fundme/foundation/events"
	"github.com/ardanlabs/fundme/foundation/gasreport"
	"github.com/ardanlabs/fundme/foundation/nameservice"
	"github.com/ardanlabs/fundme/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log         *zap.SugaredLogger
	State       *state.State
	NS          *nameservice.NameService
	Evts        *events.Events
	Deployments *deploy.Store
	GasReport   *gasreport.Reporter
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:         cfg.Log,
		State:       cfg.State,
		NS:          cfg.NS,
		WS:          websocket.Upgrader{},
		Evts:        cfg.Evts,
		DeployStore: cfg.Deployments,
		Reporter:    cfg.GasReport,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis/list", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/accounts/list", pbl.Accounts)
	app.Handle(http.MethodGet, version, "/accounts/list/:account", pbl.Accounts)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
	app.Handle(http.MethodGet, version, "/tx/receipt/:hash", pbl.Receipt)
	app.Handle(http.MethodGet, version, "/blocks/list/:from/:to", pbl.BlocksByNumber)
	app.Handle(http.MethodGet, version, "/blocks/account/:account", pbl.BlocksByAccount)
	app.Handle(http.MethodGet, version, "/deployments/list", pbl.Deployments)
	app.Handle(http.MethodGet, version, "/fundme/info", pbl.FundMe)
	app.Handle(http.MethodGet, version, "/fundme/funder/:index", pbl.Funder)
	app.Handle(http.MethodGet, version, "/fundme/funded/:account", pbl.AmountFunded)
	app.Handle(http.MethodGet, version, "/pricefeed/round", pbl.RoundData)
	app.Handle(http.MethodGet, version, "/gas/report", pbl.GasReport)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:         cfg.Log,
		State:       cfg.State,
		NS:          cfg.NS,
		Deployments: cfg.Deployments,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodGet, version, "/node/contracts/list", prv.Contracts)
	app.Handle(http.MethodPost, version, "/node/block/seal", prv.SealBlock)
}
