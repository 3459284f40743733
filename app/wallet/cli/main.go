// This program is the wallet for the FundMe chain.
package main

import "github.com/ardanlabs/fundme/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
