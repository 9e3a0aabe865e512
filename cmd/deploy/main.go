// Command deploy publishes the FoodSupplyChain contract and prints where it landed.
// It takes no arguments; the node, key and artifact come from foodchain.yaml or
// FOODCHAIN_* env vars. Any failure exits with status 1.
package main

import (
	"fmt"
	"os"

	"github.com/Makepad-fr/foodchain/internal/cli"
)

func main() {
	if len(os.Args) > 1 {
		fmt.Fprintln(os.Stderr, "usage: deploy (configure with foodchain.yaml or FOODCHAIN_* env vars)")
		os.Exit(1)
	}
	if code := cli.Run([]string{"deploy"}, cli.Options{}); code != 0 {
		os.Exit(1)
	}
}
