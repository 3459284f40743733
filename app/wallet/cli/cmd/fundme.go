package cmd

import (
	"fmt"
	"strconv"

	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/fundme"
	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var (
	fundValue       string
	withdrawCheaper bool
)

var fundCmd = &cobra.Command{
	Use:   "fund",
	Short: "Fund the FundMe contract",
	RunE:  fundRun,
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw everything funded as the owner",
	RunE:  withdrawRun,
}

var funderCmd = &cobra.Command{
	Use:   "funder <index>",
	Short: "Print the funder at the index",
	Args:  cobra.ExactArgs(1),
	RunE:  funderRun,
}

var fundedCmd = &cobra.Command{
	Use:   "funded [account]",
	Short: "Print the amount an account funded, the wallet account by default",
	Args:  cobra.MaximumNArgs(1),
	RunE:  fundedRun,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the state of the FundMe contract",
	RunE:  infoRun,
}

func init() {
	rootCmd.AddCommand(fundCmd, withdrawCmd, funderCmd, fundedCmd, infoCmd)
	fundCmd.Flags().StringVarP(&fundValue, "value", "v", "0.1eth", "Value in wei, or in ether with an eth suffix.")
	withdrawCmd.Flags().BoolVar(&withdrawCheaper, "cheaper", false, "Use the withdraw that reads the funders once.")
}

func fundRun(cmd *cobra.Command, args []string) error {
	return callFundMe(cmd, fundValue, fundme.MethodFund)
}

func withdrawRun(cmd *cobra.Command, args []string) error {
	method := fundme.MethodWithdraw
	if withdrawCheaper {
		method = fundme.MethodCheaperWithdraw
	}

	return callFundMe(cmd, "0", method)
}

func callFundMe(cmd *cobra.Command, valueStr string, method string) error {
	privateKey, err := loadPrivateKey()
	if err != nil {
		return err
	}

	value, err := parseValue(valueStr)
	if err != nil {
		return err
	}

	client := newClient(nodeURL)

	fm, err := client.FundMe(cmd.Context())
	if err != nil {
		return err
	}

	receipt, err := client.Send(cmd.Context(), privateKey, fm.Address, value, method, nil)
	if err != nil {
		return err
	}

	return printReceipt(cmd, receipt)
}

func funderRun(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q", args[0])
	}

	var resp struct {
		Account database.AccountID `json:"account"`
		Name    string             `json:"name"`
		Amount  string             `json:"amount"`
	}
	if err := newClient(nodeURL).get(cmd.Context(), fmt.Sprintf("/v1/fundme/funder/%d", index), &resp); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Funder:", resp.Account, resp.Name)
	fmt.Fprintln(out, "Amount:", resp.Amount)

	return nil
}

func fundedRun(cmd *cobra.Command, args []string) error {
	var accountStr string
	switch len(args) {
	case 1:
		accountStr = args[0]

	default:
		privateKey, err := loadPrivateKey()
		if err != nil {
			return err
		}
		accountStr = string(database.PublicKeyToAccountID(privateKey.PublicKey))
	}

	var resp struct {
		Account database.AccountID `json:"account"`
		Amount  string             `json:"amount"`
	}
	if err := newClient(nodeURL).get(cmd.Context(), "/v1/fundme/funded/"+accountStr, &resp); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.Account, resp.Amount)

	return nil
}

func infoRun(cmd *cobra.Command, args []string) error {
	fm, err := newClient(nodeURL).FundMe(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Address:", fm.Address)
	fmt.Fprintln(out, "Owner:", fm.Owner, fm.OwnerName)
	fmt.Fprintln(out, "Price Feed:", fm.PriceFeed)
	fmt.Fprintln(out, "Minimum USD:", fm.MinimumUSD)
	fmt.Fprintln(out, "Balance:", fm.Balance)
	fmt.Fprintln(out, "Funders:", fm.FunderCount)

	return nil
}
