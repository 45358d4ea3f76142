package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/roomswap-service/internal/service"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete stale synthetic preferences once",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		preferences := service.NewPreferenceService(service.SwapDependencies{
			Store:  rt.store,
			Logger: rt.logger,
			Config: rt.cfg.Swap,
		})
		removed, err := preferences.CollectSynthetic(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d synthetic preferences\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gcCmd)
}
