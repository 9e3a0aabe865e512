package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/foodchain/internal/ui"
	"github.com/Makepad-fr/foodchain/internal/wallet"
)

func (e *env) walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet <import|generate|forget|status>",
		Short: "Manage the signing key",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return usagef("wallet: missing subcommand")
		},
	}
	cmd.AddCommand(
		e.walletImportCmd(),
		e.walletGenerateCmd(),
		e.walletForgetCmd(),
		e.walletStatusCmd(),
	)
	return cmd
}

func (e *env) walletImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [private-key]",
		Short: "Store a hex private key (prompted for when not given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var hexKey string
			if len(args) == 1 {
				hexKey = args[0]
			} else {
				fmt.Fprint(ui.Stdout(), "Paste your private key: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && strings.TrimSpace(line) == "" {
					return failuref("read key: %w", err)
				}
				hexKey = line
			}
			path, err := e.keyFile()
			if err != nil {
				return err
			}
			w, err := wallet.Import(path, hexKey)
			if err != nil {
				return failuref("import: %w", err)
			}
			ui.OK("imported " + w.Address().Hex())
			return nil
		},
	}
}

func (e *env) walletGenerateCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a new random key",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			path, err := e.keyFile()
			if err != nil {
				return err
			}
			if !force {
				if existing, err := wallet.Load(path); err == nil && existing.Source == wallet.SourceFile {
					return failuref("a key already exists for %s (use --force to replace it)", existing.Address().Hex())
				}
			}
			w, err := wallet.Generate(path)
			if err != nil {
				return failuref("generate: %w", err)
			}
			ui.OK("generated " + w.Address().Hex())
			fmt.Fprintln(ui.Stdout(), ui.C(ui.Current().Muted, "fund this account before adding items"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing key file")
	return cmd
}

func (e *env) walletForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget",
		Short: "Delete the stored key file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			w, err := e.wallet()
			if err != nil {
				return err
			}
			if w != nil && w.Source == wallet.SourceEnv {
				ui.OK("key is provided by the " + wallet.EnvPrivateKey + " env var (nothing to delete)")
				return nil
			}
			path, err := e.keyFile()
			if err != nil {
				return err
			}
			if err := wallet.Forget(path); err != nil {
				return failuref("forget: %w", err)
			}
			ui.OK("key removed")
			return nil
		},
	}
}

func (e *env) walletStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which key is in use",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			out := ui.Stdout()
			w, err := e.wallet()
			if err != nil {
				return err
			}
			if w == nil {
				fmt.Fprintln(out, ui.C(ui.Current().Muted, "no wallet"))
				fmt.Fprintln(out, "Run: foodchain wallet import (or generate)")
				return nil
			}
			fmt.Fprintf(out, "address: %s\n", w.Address().Hex())
			fmt.Fprintf(out, "source: %s\n", w.Source)
			if w.Source == wallet.SourceFile {
				path, err := e.keyFile()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "file: %s\n", path)
			}
			fmt.Fprintf(out, "env override: %s\n", wallet.EnvPrivateKey)
			return nil
		},
	}
}
