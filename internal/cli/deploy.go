package cli

import (
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/foodchain/internal/deploy"
	"github.com/Makepad-fr/foodchain/internal/ui"
	"github.com/Makepad-fr/foodchain/internal/wallet"
)

func (e *env) deployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the FoodSupplyChain contract from its build artifact and record the address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			art, err := deploy.LoadArtifact(e.cfg.Contract.Artifact)
			if err != nil {
				return failure(err)
			}
			w, err := e.wallet()
			if err != nil {
				return err
			}
			if w == nil {
				return failuref("no wallet: set %s or run `foodchain wallet import`", wallet.EnvPrivateKey)
			}
			b, closeFn, err := e.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			st, err := e.store()
			if err != nil {
				return err
			}

			d := &deploy.Deployer{
				Backend: b,
				Wallet:  w,
				Store:   st,
				Out:     ui.Stdout(),
				Log:     e.log,
			}
			if _, err := d.Run(cmd.Context(), art); err != nil {
				return failure(err)
			}
			return nil
		},
	}
}
