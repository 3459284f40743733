package cmd

import (
	"fmt"

	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var (
	sendTo     string
	sendValue  string
	sendMethod string
	sendData   string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a transaction",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendTo, "to", "t", "", "Account or contract receiving the transaction.")
	sendCmd.Flags().StringVarP(&sendValue, "value", "v", "0", "Value in wei, or in ether with an eth suffix.")
	sendCmd.Flags().StringVarP(&sendMethod, "method", "m", "", "Contract method to call.")
	sendCmd.Flags().StringVarP(&sendData, "data", "d", "", "JSON encoded method arguments.")
	sendCmd.MarkFlagRequired("to")
}

func sendRun(cmd *cobra.Command, args []string) error {
	privateKey, err := loadPrivateKey()
	if err != nil {
		return err
	}

	to, err := database.ToAccountID(sendTo)
	if err != nil {
		return err
	}

	value, err := parseValue(sendValue)
	if err != nil {
		return err
	}

	var data []byte
	if sendData != "" {
		data = []byte(sendData)
	}

	receipt, err := newClient(nodeURL).Send(cmd.Context(), privateKey, to, value, sendMethod, data)
	if err != nil {
		return err
	}

	return printReceipt(cmd, receipt)
}

func printReceipt(cmd *cobra.Command, receipt database.Receipt) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Tx:", receipt.TxHash)
	fmt.Fprintln(out, "Block:", receipt.BlockNumber)
	fmt.Fprintln(out, "Gas Used:", receipt.GasUsed)
	fmt.Fprintln(out, "Gas Cost:", receipt.GasCost().Dec())

	return nil
}
