package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"netstate-agent/internal/domain/services"
)

func newVerifyCmd(global *globalOptions) *cobra.Command {
	var preApplyPath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a current state snapshot against the desired state",
		Long: `Check that every attribute the desired state sets holds in the snapshot
given with -c. Interfaces the desired state names without a type are
resolved using the pre-apply snapshot, which defaults to -c.

  profilectl verify -d desired.yaml -c after.json --pre before.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := global.requireDesired(); err != nil {
				return err
			}
			if global.currentPath == "" {
				return fmt.Errorf("current state snapshot required: use -c <file>")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			desired, err := global.stateSource().Load(ctx)
			if err != nil {
				return err
			}
			current, err := global.stateProvider(global.currentPath).CurrentState(ctx)
			if err != nil {
				return err
			}
			preApply := current
			if preApplyPath != "" {
				if preApply, err = global.stateProvider(preApplyPath).CurrentState(ctx); err != nil {
					return err
				}
			}

			if err := services.NewStateVerifier(global.logger).Verify(desired.Interfaces, preApply, current); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: verified %d interfaces\n", global.currentPath, len(desired.Interfaces))
			return nil
		},
	}

	cmd.Flags().StringVar(&preApplyPath, "pre", "", "snapshot taken before the change")
	return cmd
}
