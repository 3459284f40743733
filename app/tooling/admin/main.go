// This program performs administrative tasks for the FundMe node.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/fundme/app/tooling/admin/commands"
	"github.com/ardanlabs/fundme/foundation/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

const usage = `usage: admin <command> [args]

  blocks    [db-path] [account]                     print the blocks written to disk
  gasreport [node-url]                              print the gas report of a node
  verify    [deployments-dir] [source-dir] [name]   verify a deployed contract on etherscan`

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	log.Infow("startup", "version", build, "args", os.Args[1:])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	return processCommands(ctx, log, os.Args)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(ctx context.Context, log *zap.SugaredLogger, args []string) error {
	if len(args) < 2 {
		fmt.Println(usage)
		return nil
	}

	switch args[1] {
	case "blocks":
		if err := commands.Blocks(os.Stdout, args); err != nil {
			return fmt.Errorf("printing blocks: %w", err)
		}

	case "gasreport":
		if err := commands.GasReport(ctx, os.Stdout, args); err != nil {
			return fmt.Errorf("printing gas report: %w", err)
		}

	case "verify":
		cfg := commands.VerifyConfig{
			APIURL:          os.Getenv("ETHERSCAN_API_URL"),
			APIKey:          os.Getenv("ETHERSCAN_API_KEY"),
			CompilerVersion: os.Getenv("ETHERSCAN_COMPILER_VERSION"),
		}
		if cfg.APIURL == "" {
			cfg.APIURL = "https://api-goerli.etherscan.io/api"
		}
		if cfg.CompilerVersion == "" {
			cfg.CompilerVersion = "v0.8.8+commit.dddeac2f"
		}
		if err := commands.Verify(ctx, log, cfg, args); err != nil {
			return fmt.Errorf("verifying: %w", err)
		}

	default:
		fmt.Println(usage)
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}
