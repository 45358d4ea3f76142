package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "roomswap",
	Short: "Dormitory room swap service",
	Long: `Residents post the room they hold and the room they want, propose swaps and
commit them. Usage:

	roomswap serve
	roomswap migrate up
	roomswap gc
`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
