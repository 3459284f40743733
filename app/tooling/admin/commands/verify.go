package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/fundme"
	"github.com/ardanlabs/fundme/foundation/blockchain/state"
	"github.com/ardanlabs/fundme/foundation/deploy"
	"go.uber.org/zap"
)

// VerifyConfig represents the explorer settings for Verify.
type VerifyConfig struct {
	APIURL          string
	APIKey          string
	CompilerVersion string
}

// Verify submits the source of a recorded FundMe deployment to the block
// explorer. It's how a deployment whose verification failed is retried.
func Verify(ctx context.Context, log *zap.SugaredLogger, cfg VerifyConfig, args []string) error {
	dir := "zblock/deployments/goerli"
	if len(args) > 2 {
		dir = args[2]
	}

	sourceDir := "zblock/contracts"
	if len(args) > 3 {
		sourceDir = args[3]
	}

	name := fundme.Name
	if len(args) > 4 {
		name = args[4]
	}

	store, err := deploy.NewStore(dir)
	if err != nil {
		return err
	}

	d, err := store.Get(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	var fmArgs state.FundMeArgs
	if err := json.Unmarshal(d.Args, &fmArgs); err != nil {
		return fmt.Errorf("decoding constructor args: %w", err)
	}

	ctorArgs, err := deploy.FundMeConstructorArgs(fmArgs.PriceFeed)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(filepath.Join(sourceDir, name+".sol"))
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	verifier, err := deploy.NewVerifier(deploy.VerifierConfig{
		APIURL:          cfg.APIURL,
		APIKey:          cfg.APIKey,
		CompilerVersion: cfg.CompilerVersion,
	})
	if err != nil {
		return err
	}

	log.Infow("verify", "status", "submitting", "name", name, "network", d.Network, "address", d.Address)

	req := deploy.VerifyRequest{
		Address:         d.Address,
		Name:            name,
		Source:          string(source),
		ConstructorArgs: ctorArgs,
	}

	if err := verifier.Verify(ctx, req); err != nil {
		return err
	}

	log.Infow("verify", "status", "verified", "address", d.Address)

	return nil
}
