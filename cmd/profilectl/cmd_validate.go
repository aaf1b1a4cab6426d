package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"netstate-agent/internal/domain/entities"
	"netstate-agent/internal/domain/services"
)

func newValidateCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a desired state",
		Long: `Parse the desired state with the closed schema. With -c the state is
also reconciled against the snapshot, which catches unknown controllers,
conflicting port lists and out of range values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := global.requireDesired(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			desired, err := global.stateSource().Load(ctx)
			if err != nil {
				return err
			}
			counts := countByState(desired.Interfaces)

			out := cmd.OutOrStdout()
			if global.currentPath == "" {
				fmt.Fprintf(out, "%s: %d interfaces (%d absent)\n",
					global.desiredPath, len(desired.Interfaces), counts[entities.InterfaceStateAbsent])
				return nil
			}

			current, err := global.stateProvider(global.currentPath).CurrentState(ctx)
			if err != nil {
				return err
			}
			result, err := services.NewStateReconciler(global.logger).Reconcile(desired.Interfaces, current)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %d interfaces, %d changed, %d absent, %d ignored\n",
				global.desiredPath, len(desired.Interfaces), len(result.Changed), len(result.Absent), len(result.Ignored))
			return nil
		},
	}
}
