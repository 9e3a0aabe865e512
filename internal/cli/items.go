package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/foodchain/internal/app"
	"github.com/Makepad-fr/foodchain/internal/qr"
	"github.com/Makepad-fr/foodchain/internal/tui"
	"github.com/Makepad-fr/foodchain/internal/ui"
	"github.com/Makepad-fr/foodchain/internal/wallet"
)

func (e *env) connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Check the wallet and the node, and show the account in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			c, err := e.client(cmd.Context(), b)
			if err != nil {
				return err
			}
			addr, err := c.Connect(cmd.Context(), w)
			if err != nil {
				return failure(err)
			}
			ui.OK("connected " + addr.Hex())
			t := ui.Current()
			fmt.Fprintln(ui.Stdout(), ui.C(t.Muted, "wallet:   "+w.Source))
			fmt.Fprintln(ui.Stdout(), ui.C(t.Muted, "contract: "+c.ContractAddress().Hex()))
			return nil
		},
	}
}

func (e *env) addCmd() *cobra.Command {
	var origin string
	cmd := &cobra.Command{
		Use:   "add <name...>",
		Short: "Register a new item (the name can be multiple words)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			if strings.TrimSpace(name) == "" {
				return usagef("add: empty name")
			}
			b, closeFn, err := e.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			c, err := e.client(cmd.Context(), b)
			if err != nil {
				return err
			}
			w, err := e.wallet()
			if err != nil {
				return err
			}

			ctrl := app.NewController(c, w, e.log)
			ctrl.Connect(cmd.Context())
			ctrl.SetItemName(name)
			ctrl.SetOrigin(origin)
			ctrl.Submit(cmd.Context())

			s := ctrl.State()
			if s.LastTx == "" {
				return failure(errors.New(s.Alert))
			}
			ui.OK(app.AlertItemAdded + s.LastTx)
			// the item is on chain; a failed re-fetch is only reported
			if _, warn, ok := strings.Cut(s.Alert, "\n"); ok {
				ui.Warn(warn)
				return nil
			}
			if n := len(s.Items); n > 0 {
				fmt.Fprintln(ui.Stdout(), ui.C(ui.Current().Muted, "item id: "+strconv.Itoa(n-1)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&origin, "origin", "o", "", "where the item comes from")
	return cmd
}

func (e *env) listCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List items (interactive TUI, or a plain panel with --plain)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, closeFn, err := e.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			c, err := e.client(cmd.Context(), b)
			if err != nil {
				return err
			}
			w, err := e.wallet()
			if err != nil {
				return err
			}

			if !plain {
				ctrl := app.NewController(c, w, e.log)
				if err := tui.Run(cmd.Context(), ctrl); err != nil {
					return failuref("tui: %w", err)
				}
				return nil
			}

			items, err := c.Items(cmd.Context())
			if err != nil {
				return failuref("Could not load items: %w", err)
			}
			account := ""
			if w != nil {
				account = w.Address().Hex()
			}
			lines := append([]string{ui.Header(account, len(items)), ""}, ui.ItemLines(items)...)
			ui.Panel(lines)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print the list instead of opening the interactive view")
	return cmd
}

func (e *env) qrCmd() *cobra.Command {
	var (
		out  string
		size int
	)
	cmd := &cobra.Command{
		Use:   "qr <id>",
		Short: "Show the QR code of an item, or write it as PNG with --out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return usagef("qr: not an item id: %s", args[0])
			}
			b, closeFn, err := e.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			c, err := e.client(cmd.Context(), b)
			if err != nil {
				return err
			}

			n, err := c.ItemCount(cmd.Context())
			if err != nil {
				return failure(err)
			}
			if id >= n {
				return failuref("item #%d does not exist (have %d)", id, n)
			}
			it, err := c.GetItem(cmd.Context(), id)
			if err != nil {
				return failure(err)
			}
			text, err := qr.NewPayload(it, c.ContractAddress().Hex()).Encode()
			if err != nil {
				return failure(err)
			}

			if out != "" {
				png, err := qr.PNG(text, size)
				if err != nil {
					return failure(err)
				}
				if err := os.WriteFile(out, png, 0o644); err != nil {
					return failuref("write %s: %w", out, err)
				}
				ui.OK("wrote " + out)
				return nil
			}
			art, err := qr.Terminal(text)
			if err != nil {
				return failure(err)
			}
			fmt.Fprintln(ui.Stdout(), art)
			fmt.Fprintln(ui.Stdout(), ui.C(ui.Current().Muted, text))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write a PNG file instead of printing")
	cmd.Flags().IntVar(&size, "size", qr.DefaultSize, "PNG edge length in pixels")
	return cmd
}

func (e *env) scanCmd() *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "scan [--text payload | <image>]",
		Short: "Decode a scanned QR payload, given as text or as an image file (- reads stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (text == "") == (len(args) == 0) {
				return usagef("scan: give either --text or an image")
			}

			ctrl := app.NewController(nil, nil, e.log)
			ctrl.OpenScanner()
			switch {
			case text != "":
				ctrl.HandleScan(text)
			case args[0] == "-":
				ctrl.HandleScanImage(cmd.InOrStdin())
			default:
				f, err := os.Open(args[0])
				if err != nil {
					return failure(err)
				}
				defer f.Close()
				ctrl.HandleScanImage(f)
			}

			s := ctrl.State()
			if s.Scanned == nil {
				msg := s.Alert
				if msg == "" {
					msg = app.AlertInvalidQR
				}
				return failure(errors.New(msg))
			}
			t := ui.Current()
			p := s.Scanned
			ui.Panel([]string{
				ui.C(t.Title, "Scanned Item Details"),
				"",
				ui.C(t.Accent, "ID:       ") + strconv.FormatUint(p.ID, 10),
				ui.C(t.Accent, "Name:     ") + p.Name,
				ui.C(t.Accent, "Origin:   ") + p.Origin,
				ui.C(t.Accent, "Contract: ") + p.ContractAddress,
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "payload text as read by a scanner")
	return cmd
}
