// Command settleup runs the SettleUp server and its maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/mmynk/settleup/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
