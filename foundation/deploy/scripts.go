package deploy

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/fundme"
	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/pricefeed"
	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/state"
)

// Constructor arguments of the price feed mock deployed on development chains.
const (
	Decimals      = pricefeed.MockDecimals
	InitialAnswer = pricefeed.MockInitialAnswer
)

// Scripts returns the deployment scripts in the order they run.
func Scripts() []Script {
	return []Script{
		{
			Name: "00-deploy-mocks",
			Tags: []string{"all", "mocks"},
			Run:  deployMocks,
		},
		{
			Name: "01-deploy-fund-me",
			Tags: []string{"all", "fundme"},
			Run:  deployFundMe,
		},
	}
}

// deployMocks deploys the price feed mock. Other networks have a real feed.
func deployMocks(ctx context.Context, env *Env) error {
	if !IsDevelopment(env.Network.Name) {
		return nil
	}

	env.Log("deploy: mocks: local network detected, deploying mocks")

	args := state.MockArgs{
		Decimals:      Decimals,
		InitialAnswer: big.NewInt(InitialAnswer),
	}

	if _, err := env.Deploy(ctx, state.MockV3Aggregator, args, 1); err != nil {
		return err
	}

	env.Log("deploy: mocks: deployed")

	return nil
}

// deployFundMe deploys the FundMe contract against the network price feed.
func deployFundMe(ctx context.Context, env *Env) error {
	var priceFeed database.AccountID

	switch {
	case IsDevelopment(env.Network.Name):
		mock, err := env.Get(state.MockV3Aggregator)
		if err != nil {
			return fmt.Errorf("price feed mock: %w", err)
		}
		priceFeed = mock.Address

	default:
		var err error
		priceFeed, err = database.ToAccountID(env.Network.EthUsdPriceFeed)
		if err != nil {
			return fmt.Errorf("network %s price feed: %w", env.Network.Name, err)
		}
	}

	d, err := env.Deploy(ctx, fundme.Name, state.FundMeArgs{PriceFeed: priceFeed}, env.Network.Confirmations())
	if err != nil {
		return err
	}

	if !IsDevelopment(env.Network.Name) && env.verifier != nil {
		if err := verifyFundMe(ctx, env, d, priceFeed); err != nil {
			env.Log("deploy: fundme: verify: ERROR: %s", err)
		}
	}

	return nil
}

// verifyFundMe submits the FundMe source to the block explorer.
func verifyFundMe(ctx context.Context, env *Env, d Deployment, priceFeed database.AccountID) error {
	source, err := os.ReadFile(filepath.Join(env.sourceDir, d.Name+".sol"))
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	args, err := FundMeConstructorArgs(priceFeed)
	if err != nil {
		return err
	}

	req := VerifyRequest{
		Address:         d.Address,
		Name:            d.Name,
		Source:          string(source),
		ConstructorArgs: args,
	}

	env.Log("deploy: fundme: verify: address[%s]", d.Address)

	return env.verifier.Verify(ctx, req)
}
