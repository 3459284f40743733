// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/database/storage/disk"
)

// Blocks prints the blocks written to disk. With an account only the
// transactions it sent or received are printed.
func Blocks(w io.Writer, args []string) error {
	dbPath := "zblock/blocks/"
	if len(args) > 2 {
		dbPath = args[2]
	}

	var onlyAct database.AccountID
	if len(args) > 3 {
		var err error
		if onlyAct, err = database.ToAccountID(args[3]); err != nil {
			return err
		}
	}

	storage, err := disk.New(dbPath)
	if err != nil {
		return err
	}
	defer storage.Close()

	iter := storage.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return err
		}

		var lines []string
		for _, tx := range blockData.Trans {
			from, err := tx.FromAccount()
			if err != nil {
				return fmt.Errorf("block %d: %w", blockData.Header.Number, err)
			}

			toID, _ := tx.ToAccount()
			if onlyAct != "" && from != onlyAct && toID != onlyAct {
				continue
			}

			to := string(toID)
			if tx.IsCreate() {
				to = "(create)"
			}

			lines = append(lines, fmt.Sprintf("  Tx: %s  From: %s  To: %s  Nonce: %d  Value: %s  Method: %s", tx.Hash(), from, to, tx.Nonce, valueString(tx.Value), tx.Method))
		}

		if onlyAct != "" && len(lines) == 0 {
			continue
		}

		fmt.Fprintf(w, "Block: %d  Hash: %s  Gas Used: %d\n", blockData.Header.Number, blockData.Hash, blockData.Header.GasUsed)
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
	}

	return nil
}

func valueString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
