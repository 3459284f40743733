// Package deploy runs the deployment scripts against a chain. Scripts are
// selected by tag, deployments are recorded per network and records whose
// contract still exists are reused.
package deploy

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/genesis"
	"github.com/ardanlabs/fundme/foundation/blockchain/state"
)

// DefaultGasLimit is the gas limit used by deployment transactions.
const DefaultGasLimit = 3_000_000

// pollInterval is how often the chain is checked for confirmations.
const pollInterval = 100 * time.Millisecond

// EventHandler defines a function that is called when events
// occur while deploying.
type EventHandler func(v string, args ...any)

// Chain represents the behavior the deployment scripts need from a chain.
type Chain interface {
	Genesis() genesis.Genesis
	LatestBlock() database.Block
	QueryAccount(accountID database.AccountID) database.Account
	QueryContract(address database.AccountID) (string, error)
	SubmitTransaction(ctx context.Context, signedTx database.SignedTx) (database.Receipt, error)
}

// =============================================================================

// Config represents everything needed to run the scripts.
type Config struct {
	Network     Network
	Chain       Chain
	DeployerKey *ecdsa.PrivateKey
	Store       *Store
	Verifier    *Verifier
	SourceDir   string
	GasLimit    uint64
	Tags        []string
	EvHandler   EventHandler
}

// Env is what a script works with. It plays the role of the deployer
// account on the selected network.
type Env struct {
	Network  Network
	Deployer database.AccountID

	key       *ecdsa.PrivateKey
	chain     Chain
	store     *Store
	verifier  *Verifier
	sourceDir string
	gasLimit  uint64
	log       EventHandler
}

// Run executes the scripts matching the configured tags in order. No tags
// runs every script.
func Run(ctx context.Context, cfg Config) error {
	if cfg.DeployerKey == nil {
		return errors.New("missing deployer key")
	}

	if cfg.Network.ChainID != 0 && cfg.Network.ChainID != cfg.Chain.Genesis().ChainID {
		return fmt.Errorf("network %s expects chain id %d, chain has %d", cfg.Network.Name, cfg.Network.ChainID, cfg.Chain.Genesis().ChainID)
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}

	store := cfg.Store
	if store == nil {
		var err error
		if store, err = NewStore(""); err != nil {
			return err
		}
	}

	env := Env{
		Network:   cfg.Network,
		Deployer:  database.PublicKeyToAccountID(cfg.DeployerKey.PublicKey),
		key:       cfg.DeployerKey,
		chain:     cfg.Chain,
		store:     store,
		verifier:  cfg.Verifier,
		sourceDir: cfg.SourceDir,
		gasLimit:  gasLimit,
		log:       ev,
	}

	for _, script := range Scripts() {
		if !script.Matches(cfg.Tags) {
			continue
		}

		ev("deploy: Run: script[%s]: network[%s]: started", script.Name, cfg.Network.Name)

		if err := script.Run(ctx, &env); err != nil {
			return fmt.Errorf("script %s: %w", script.Name, err)
		}

		ev("deploy: Run: script[%s]: completed", script.Name)
	}

	return nil
}

// Fixture deploys the tagged scripts on a fresh development chain and keeps
// the records in memory. It's what the tests use to get deployed contracts.
func Fixture(ctx context.Context, chain Chain, deployerKey *ecdsa.PrivateKey, tags ...string) (*Store, error) {
	store, err := NewStore("")
	if err != nil {
		return nil, err
	}

	cfg := Config{
		Network:     Network{Name: DevelopmentChains[0], ChainID: chain.Genesis().ChainID},
		Chain:       chain,
		DeployerKey: deployerKey,
		Store:       store,
		Tags:        tags,
	}

	if err := Run(ctx, cfg); err != nil {
		return nil, err
	}

	return store, nil
}

// =============================================================================

// Get returns the deployment of the named contract.
func (e *Env) Get(name string) (Deployment, error) {
	return e.store.Get(name)
}

// Log writes a message through the event handler.
func (e *Env) Log(v string, args ...any) {
	e.log(v, args...)
}

// Deploy deploys the named contract from the deployer account and waits
// for the confirmations. An existing record is reused when its address
// still hosts the contract.
func (e *Env) Deploy(ctx context.Context, name string, args any, confirmations uint64) (Deployment, error) {
	if d, err := e.store.Get(name); err == nil {
		if got, err := e.chain.QueryContract(d.Address); err == nil && got == name {
			e.log("deploy: Deploy: reusing %q at %s", name, d.Address)
			return d, nil
		}
	}

	data, err := state.EncodeCreate(name, args)
	if err != nil {
		return Deployment{}, err
	}

	nonce := e.chain.QueryAccount(e.Deployer).Nonce

	tx, err := database.NewTx(e.chain.Genesis().ChainID, nonce, "", nil, e.gasLimit, "", data)
	if err != nil {
		return Deployment{}, err
	}

	signedTx, err := tx.Sign(e.key)
	if err != nil {
		return Deployment{}, err
	}

	receipt, err := e.chain.SubmitTransaction(ctx, signedTx)
	if err != nil {
		return Deployment{}, fmt.Errorf("deploying %s: %w", name, err)
	}

	e.log("deploy: Deploy: deploying %q (tx: %s)...: deployed at %s with %d gas", name, receipt.TxHash, receipt.ContractAddress, receipt.GasUsed)

	if err := WaitConfirmations(ctx, e.chain, receipt, confirmations); err != nil {
		return Deployment{}, err
	}

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return Deployment{}, err
	}

	d := Deployment{
		Name:    name,
		Network: e.Network.Name,
		ChainID: e.chain.Genesis().ChainID,
		Address: receipt.ContractAddress,
		Args:    argsJSON,
		Receipt: receipt,
	}

	if err := e.store.Save(d); err != nil {
		return Deployment{}, fmt.Errorf("saving %s: %w", name, err)
	}

	return d, nil
}

// =============================================================================

// WaitConfirmations blocks until the block holding the receipt has the
// number of confirmations. The block itself counts as the first.
func WaitConfirmations(ctx context.Context, chain Chain, receipt database.Receipt, confirmations uint64) error {
	if confirmations == 0 {
		confirmations = 1
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		latest := chain.LatestBlock().Header.Number
		if latest >= receipt.BlockNumber && latest-receipt.BlockNumber+1 >= confirmations {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %d confirmations of %s: %w", confirmations, receipt.TxHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// =============================================================================

// Script is a deployment script.
type Script struct {
	Name string
	Tags []string
	Run  func(ctx context.Context, env *Env) error
}

// Matches reports whether the script has one of the tags. No tags matches
// every script.
func (s Script) Matches(tags []string) bool {
	if len(tags) == 0 {
		return true
	}

	for _, tag := range tags {
		if slices.Contains(s.Tags, tag) {
			return true
		}
	}

	return false
}
