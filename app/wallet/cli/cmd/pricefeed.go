package cmd

import (
	"fmt"

	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var priceFeedCmd = &cobra.Command{
	Use:   "pricefeed",
	Short: "Print the latest round of the FundMe price feed",
	RunE:  priceFeedRun,
}

func init() {
	rootCmd.AddCommand(priceFeedCmd)
}

func priceFeedRun(cmd *cobra.Command, args []string) error {
	var rd struct {
		PriceFeed database.AccountID `json:"price_feed"`
		Decimals  uint8              `json:"decimals"`
		RoundID   uint64             `json:"round_id"`
		Answer    string             `json:"answer"`
		UpdatedAt uint64             `json:"updated_at"`
	}
	if err := newClient(nodeURL).get(cmd.Context(), "/v1/pricefeed/round", &rd); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Price Feed:", rd.PriceFeed)
	fmt.Fprintln(out, "Round:", rd.RoundID)
	fmt.Fprintf(out, "Answer: %s (%d decimals)\n", rd.Answer, rd.Decimals)
	fmt.Fprintln(out, "Updated At:", rd.UpdatedAt)

	return nil
}
