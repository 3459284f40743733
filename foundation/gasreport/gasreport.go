// Package gasreport collects the gas used by contract methods and renders a
// report priced in USD through the chain price feed.
package gasreport

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/fundme"
	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/pricefeed"
	"github.com/holiman/uint256"
	"github.com/pterm/pterm"
)

// Config represents the settings for the reporter.
type Config struct {
	Enabled    bool
	Currency   string
	OutputFile string
	NoColors   bool
}

// Row is the gas usage of a single contract method. Deployments use an
// empty method.
type Row struct {
	Contract string `json:"contract"`
	Method   string `json:"method,omitempty"`
	Calls    int    `json:"calls"`
	Min      uint64 `json:"min"`
	Max      uint64 `json:"max"`
	Avg      uint64 `json:"avg"`
	AvgCost  string `json:"avg_cost,omitempty"`
}

// Report is the priced gas usage of every recorded method.
type Report struct {
	Currency    string `json:"currency"`
	GasPrice    uint64 `json:"gas_price"`
	EthPrice    string `json:"eth_price,omitempty"`
	Methods     []Row  `json:"methods"`
	Deployments []Row  `json:"deployments"`
}

// =============================================================================

type key struct {
	contract string
	method   string
}

type usage struct {
	calls uint64
	min   uint64
	max   uint64
	total uint64
}

// Reporter records gas usage as transactions are executed.
type Reporter struct {
	mu    sync.Mutex
	cfg   Config
	usage map[key]*usage
}

// New constructs a reporter for use.
func New(cfg Config) *Reporter {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}

	return &Reporter{
		cfg:   cfg,
		usage: make(map[key]*usage),
	}
}

// Record adds the gas used by a call to the method of the contract.
func (r *Reporter) Record(contract string, method string, gasUsed uint64) {
	if !r.cfg.Enabled {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{contract: contract, method: method}
	u, exists := r.usage[k]
	if !exists {
		u = &usage{min: gasUsed}
		r.usage[k] = u
	}

	u.calls++
	u.total += gasUsed
	u.min = min(u.min, gasUsed)
	u.max = max(u.max, gasUsed)
}

// Report builds the report. The average cost is priced with the gas price
// and the feed. A nil feed leaves the cost empty.
func (r *Reporter) Report(ctx context.Context, gasPrice uint64, feed pricefeed.Provider) (Report, error) {
	r.mu.Lock()
	rows := make([]Row, 0, len(r.usage))
	for k, u := range r.usage {
		rows = append(rows, Row{
			Contract: k.contract,
			Method:   k.method,
			Calls:    int(u.calls),
			Min:      u.min,
			Max:      u.max,
			Avg:      u.total / u.calls,
		})
	}
	r.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Contract != rows[j].Contract {
			return rows[i].Contract < rows[j].Contract
		}
		return rows[i].Method < rows[j].Method
	})

	rep := Report{
		Currency:    r.cfg.Currency,
		GasPrice:    gasPrice,
		Methods:     []Row{},
		Deployments: []Row{},
	}

	if feed != nil {
		price, err := fundme.EthPrice(ctx, feed)
		if err != nil {
			return Report{}, fmt.Errorf("eth price: %w", err)
		}
		rep.EthPrice = formatUSD(price)

		for i := range rows {
			cost := new(uint256.Int).Mul(uint256.NewInt(rows[i].Avg), uint256.NewInt(gasPrice))
			usd, err := fundme.ConversionRate(ctx, cost, feed)
			if err != nil {
				return Report{}, fmt.Errorf("conversion rate: %w", err)
			}
			rows[i].AvgCost = formatUSD(usd)
		}
	}

	for _, row := range rows {
		if row.Method == "" {
			rep.Deployments = append(rep.Deployments, row)
			continue
		}
		rep.Methods = append(rep.Methods, row)
	}

	return rep, nil
}

// WriteFile renders the report into the configured output file. Nothing is
// written when the reporter is disabled or has no output file.
func (r *Reporter) WriteFile(ctx context.Context, gasPrice uint64, feed pricefeed.Provider) error {
	if !r.cfg.Enabled || r.cfg.OutputFile == "" {
		return nil
	}

	rep, err := r.Report(ctx, gasPrice, feed)
	if err != nil {
		return err
	}

	out, err := Render(rep, r.cfg.NoColors)
	if err != nil {
		return err
	}

	if err := os.WriteFile(r.cfg.OutputFile, []byte(out), 0644); err != nil {
		return fmt.Errorf("writing gas report: %w", err)
	}

	return nil
}

// =============================================================================

// Render formats the report as tables.
func Render(rep Report, noColors bool) (string, error) {
	costHeader := fmt.Sprintf("%s (avg)", rep.Currency)

	header := fmt.Sprintf("Gas price: %d wei", rep.GasPrice)
	if rep.EthPrice != "" {
		header += fmt.Sprintf("  ETH: %s %s", rep.EthPrice, rep.Currency)
	}

	methods := [][]string{{"Contract", "Method", "Calls", "Min", "Max", "Avg", costHeader}}
	for _, row := range rep.Methods {
		methods = append(methods, []string{row.Contract, row.Method, strconv.Itoa(row.Calls), u64(row.Min), u64(row.Max), u64(row.Avg), row.AvgCost})
	}

	deployments := [][]string{{"Deployment", "Calls", "Min", "Max", "Avg", costHeader}}
	for _, row := range rep.Deployments {
		deployments = append(deployments, []string{row.Contract, strconv.Itoa(row.Calls), u64(row.Min), u64(row.Max), u64(row.Avg), row.AvgCost})
	}

	mt, err := pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithData(methods).Srender()
	if err != nil {
		return "", err
	}

	dt, err := pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithData(deployments).Srender()
	if err != nil {
		return "", err
	}

	out := header + "\n\n" + mt + "\n\n" + dt + "\n"
	if noColors {
		out = pterm.RemoveColorFromString(out)
	}

	return out, nil
}

// formatUSD formats a USD value with 18 decimals using two decimals.
func formatUSD(v *uint256.Int) string {
	cents := new(uint256.Int).Div(v, uint256.NewInt(10_000_000_000_000_000))
	whole, frac := new(uint256.Int).DivMod(cents, uint256.NewInt(100), new(uint256.Int))
	return fmt.Sprintf("%s.%02d", whole.Dec(), frac.Uint64())
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
