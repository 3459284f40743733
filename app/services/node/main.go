package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/fundme/app/services/node/handlers"
	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/fundme"
	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/pricefeed"
	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/database/storage/badger"
	"github.com/ardanlabs/fundme/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/fundme/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/fundme/foundation/blockchain/genesis"
	"github.com/ardanlabs/fundme/foundation/blockchain/state"
	"github.com/ardanlabs/fundme/foundation/blockchain/worker"
	"github.com/ardanlabs/fundme/foundation/deploy"
	"github.com/ardanlabs/fundme/foundation/events"
	"github.com/ardanlabs/fundme/foundation/gasreport"
	"github.com/ardanlabs/fundme/foundation/logger"
	"github.com/ardanlabs/fundme/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

type config struct {
	conf.Version
	Web struct {
		ReadTimeout     time.Duration `conf:"default:5s"`
		WriteTimeout    time.Duration `conf:"default:10s"`
		IdleTimeout     time.Duration `conf:"default:120s"`
		ShutdownTimeout time.Duration `conf:"default:20s"`
		DebugHost       string        `conf:"default:0.0.0.0:7080"`
		PublicHost      string        `conf:"default:0.0.0.0:8080"`
		PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		CORSOrigins     []string      `conf:"default:*"`
	}
	State struct {
		Network           string        `conf:"default:hardhat"`
		NetworksFile      string        `conf:"default:zblock/networks.yaml"`
		GenesisFile       string        `conf:"default:zblock/genesis.json"`
		DBKind            string        `conf:"default:disk"`
		DBPath            string        `conf:"default:zblock/blocks/"`
		DeploymentsFolder string        `conf:"default:zblock/deployments/"`
		Deployer          string        `conf:"default:deployer"`
		PrivateKey        string        `conf:"mask"`
		Tags              []string      `conf:"default:all"`
		SealInterval      time.Duration `conf:"default:12s"`
	}
	NameService struct {
		Folder string `conf:"default:zblock/accounts/"`
	}
	Etherscan struct {
		APIKey          string `conf:"mask"`
		APIURL          string `conf:"default:https://api-goerli.etherscan.io/api"`
		CompilerVersion string `conf:"default:v0.8.8+commit.dddeac2f"`
		SourceFolder    string `conf:"default:contracts/"`
	}
	GasReport struct {
		Enabled    bool
		Currency   string `conf:"default:USD"`
		OutputFile string `conf:"default:gas-report.txt"`
		NoColors   bool   `conf:"default:true"`
	}
	Log struct {
		File       string
		MaxSizeMB  int `conf:"default:100"`
		MaxBackups int `conf:"default:3"`
		MaxAgeDays int `conf:"default:28"`
	}
}

func main() {

	// Secrets such as the RPC url and the private key live in a .env file
	// during development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Println("loading .env:", err)
		os.Exit(1)
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	cfg := config{
		Version: conf.Version{
			Build: build,
			Desc:  "FundMe development chain",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return
		}
		fmt.Println("parsing config:", err)
		os.Exit(1)
	}

	// The .env file names these settings without the service prefix.
	if cfg.State.PrivateKey == "" {
		cfg.State.PrivateKey = os.Getenv("PRIVATE_KEY")
	}
	if cfg.Etherscan.APIKey == "" {
		cfg.Etherscan.APIKey = os.Getenv("ETHERSCAN_API_KEY")
	}
	if os.Getenv("REPORT_GAS") != "" {
		cfg.GasReport.Enabled = true
	}

	// Construct the application logger.
	log, err := logger.NewWithFile(prefix, logger.File{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log, cfg); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger, cfg config) error {

	// =========================================================================
	// App Starting

	fmt.Println(`  _____ _    _ _   _ _____    __  __ ______ `)
	fmt.Println(` |  ___| |  | | \ | |  __ \  |  \/  |  ____|`)
	fmt.Println(` | |_  | |  | |  \| | |  | | | \  / | |__   `)
	fmt.Println(` |  _| | |  | | . ' | |  | | | |\/| |  __|  `)
	fmt.Println(` | |   | |__| | |\  | |__| | | |  | | |____ `)
	fmt.Println(` |_|    \____/|_| \_|_____/  |_|  |_|______|`)
	fmt.Print("\n")

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for account addresses.
	// The names come from the file names in the zblock/accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account)
	}

	// =========================================================================
	// Network Support

	nets, err := deploy.LoadNetworks(cfg.State.NetworksFile)
	if err != nil {
		return err
	}

	network, err := nets.Network(cfg.State.Network)
	if err != nil {
		return err
	}

	log.Infow("startup", "status", "network", "name", network.Name, "chainid", network.ChainID,
		"confirmations", network.Confirmations(), "development", deploy.IsDevelopment(network.Name))

	gen, err := genesis.Load(cfg.State.GenesisFile)
	if err != nil {
		return err
	}

	// The network defines the identity of the chain.
	if network.ChainID != 0 {
		gen.ChainID = network.ChainID
	}

	privateKey, err := deployerKey(cfg, ns)
	if err != nil {
		return fmt.Errorf("unable to load private key for deployer: %w", err)
	}

	// =========================================================================
	// Blockchain Support

	// The blockchain packages accept a function of this signature to allow the
	// application to log. For now, these raw messages are sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		if strings.HasPrefix(s, "viewer:") {
			evts.Send(s)
		}
	}

	storage, err := openStorage(cfg, log)
	if err != nil {
		return err
	}

	reporter := gasreport.New(gasreport.Config{
		Enabled:    cfg.GasReport.Enabled,
		Currency:   cfg.GasReport.Currency,
		OutputFile: cfg.GasReport.OutputFile,
		NoColors:   cfg.GasReport.NoColors,
	})

	var resolver state.FeedResolver
	if !deploy.IsDevelopment(network.Name) {
		resolver, err = chainlinkResolver(network.URL)
		if err != nil {
			return err
		}
	}

	// The state value represents the blockchain node and manages the blockchain
	// database and provides an API for application support.
	st, err := state.New(state.Config{
		Genesis:      gen,
		Storage:      storage,
		FeedResolver: resolver,
		GasRecorder:  reporter,
		EvHandler:    ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// The worker seals empty blocks on an interval so confirmations advance
	// on live style networks. Development chains only automine.
	interval := cfg.State.SealInterval
	if deploy.IsDevelopment(network.Name) {
		interval = 0
	}
	worker.Run(st, interval, ev)

	// =========================================================================
	// Deployment Support

	deployments, err := deploy.NewStore(filepath.Join(cfg.State.DeploymentsFolder, network.Name))
	if err != nil {
		return fmt.Errorf("opening deployments: %w", err)
	}

	var verifier *deploy.Verifier
	if cfg.Etherscan.APIKey != "" {
		verifier, err = deploy.NewVerifier(deploy.VerifierConfig{
			APIURL:          cfg.Etherscan.APIURL,
			APIKey:          cfg.Etherscan.APIKey,
			CompilerVersion: cfg.Etherscan.CompilerVersion,
		})
		if err != nil {
			return err
		}
	}

	deployCfg := deploy.Config{
		Network:     network,
		Chain:       st,
		DeployerKey: privateKey,
		Store:       deployments,
		Verifier:    verifier,
		SourceDir:   cfg.Etherscan.SourceFolder,
		Tags:        cfg.State.Tags,
		EvHandler:   deploy.EventHandler(ev),
	}

	if err := deploy.Run(context.Background(), deployCfg); err != nil {
		return fmt.Errorf("deploying contracts: %w", err)
	}

	for _, d := range deployments.All() {
		log.Infow("startup", "status", "deployment", "name", d.Name, "address", d.Address)
	}

	if err := handlers.RegisterChainMetrics(prometheus.DefaultRegisterer, st, deployments); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	// The gas report is written once the node stops.
	defer func() {
		var feed pricefeed.Provider
		if d, err := deployments.Get(fundme.Name); err == nil {
			feed, _ = st.QueryFeed(d.Address)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := reporter.WriteFile(ctx, gen.GasPrice, feed); err != nil {
			log.Errorw("shutdown", "status", "gas report", "ERROR", err)
		}
	}()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	muxCfg := handlers.MuxConfig{
		Build:       build,
		CORSOrigins: cfg.Web.CORSOrigins,
		Shutdown:    shutdown,
		Log:         log,
		State:       st,
		NS:          ns,
		Evts:        evts,
		Deployments: deployments,
		GasReport:   reporter,
	}

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      handlers.PublicMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct a server to service the requests against the mux.
	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      handlers.PrivateMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// =============================================================================

// deployerKey returns the key of the deployer. A key in the environment
// wins over the named account.
func deployerKey(cfg config, ns *nameservice.NameService) (*ecdsa.PrivateKey, error) {
	if cfg.State.PrivateKey != "" {
		return crypto.HexToECDSA(strings.TrimPrefix(cfg.State.PrivateKey, "0x"))
	}

	return ns.PrivateKey(cfg.State.Deployer)
}

// openStorage constructs the configured block storage.
func openStorage(cfg config, log *zap.SugaredLogger) (database.Storage, error) {
	switch cfg.State.DBKind {
	case "disk":
		return disk.New(cfg.State.DBPath)
	case "badger":
		return badger.New(cfg.State.DBPath, log)
	case "memory":
		return memory.New(), nil
	}

	return nil, fmt.Errorf("unknown storage kind %q", cfg.State.DBKind)
}

// chainlinkResolver reads price feeds from the live network behind the url.
// Feeds are constructed once per address.
func chainlinkResolver(url string) (state.FeedResolver, error) {
	if url == "" {
		return nil, errors.New("live network has no rpc url")
	}

	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	var mu sync.Mutex
	feeds := make(map[database.AccountID]pricefeed.Provider)

	f := func(address database.AccountID) (pricefeed.Provider, error) {
		mu.Lock()
		defer mu.Unlock()

		if feed, exists := feeds[address]; exists {
			return feed, nil
		}

		feed, err := pricefeed.NewChainlink(client, address.Address())
		if err != nil {
			return nil, err
		}
		feeds[address] = feed

		return feed, nil
	}

	return f, nil
}
