package handlers

import (
	"math/big"

	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/fundme"
	"github.com/ardanlabs/fundme/foundation/blockchain/state"
	"github.com/ardanlabs/fundme/foundation/deploy"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterChainMetrics exposes the chain height and the state of the
// deployed FundMe contract through the metrics endpoint.
func RegisterChainMetrics(reg prometheus.Registerer, st *state.State, deployments *deploy.Store) error {
	fundMe := func() (state.FundMeInfo, bool) {
		d, err := deployments.Get(fundme.Name)
		if err != nil {
			return state.FundMeInfo{}, false
		}

		info, err := st.QueryFundMe(d.Address)
		if err != nil {
			return state.FundMeInfo{}, false
		}

		return info, true
	}

	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "fundme",
				Subsystem: "chain",
				Name:      "latest_block",
				Help:      "Number of the latest block.",
			},
			func() float64 {
				return float64(st.LatestBlock().Header.Number)
			},
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "fundme",
				Subsystem: "contract",
				Name:      "funders",
				Help:      "Number of distinct funders since the last withdrawal.",
			},
			func() float64 {
				info, ok := fundMe()
				if !ok {
					return 0
				}
				return float64(info.FunderCount)
			},
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "fundme",
				Subsystem: "contract",
				Name:      "balance_eth",
				Help:      "Balance of the contract in ETH.",
			},
			func() float64 {
				info, ok := fundMe()
				if !ok {
					return 0
				}
				eth, _ := new(big.Float).Quo(new(big.Float).SetInt(info.Balance.ToBig()), big.NewFloat(1e18)).Float64()
				return eth
			},
		),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}
