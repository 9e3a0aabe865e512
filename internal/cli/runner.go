package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Makepad-fr/foodchain/internal/config"
	"github.com/Makepad-fr/foodchain/internal/ledger"
	"github.com/Makepad-fr/foodchain/internal/logging"
	"github.com/Makepad-fr/foodchain/internal/store/jsonstore"
	"github.com/Makepad-fr/foodchain/internal/ui"
	"github.com/Makepad-fr/foodchain/internal/wallet"
)

// DialFunc opens a node connection.
type DialFunc func(ctx context.Context, rpcURL string) (ledger.Backend, error)

// Options carry the process streams and the node dialer. Zero values mean the
// real terminal and ledger.Dial.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Dial   DialFunc
}

func (o *Options) defaults() {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Dial == nil {
		o.Dial = func(ctx context.Context, rpcURL string) (ledger.Backend, error) {
			return ledger.Dial(ctx, rpcURL)
		}
	}
}

// exitError carries the exit code a command failed with.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func failure(err error) error { return &exitError{code: 1, err: err} }

func failuref(format string, a ...any) error { return failure(fmt.Errorf(format, a...)) }

func usagef(format string, a ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, a...)}
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, opt Options) int {
	opt.defaults()
	ui.SetOutput(opt.Stdout, opt.Stderr)

	if len(args) == 0 {
		PrintHelp()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{opt: opt}
	root := e.rootCmd()
	root.SetArgs(args)
	cmd, err := root.ExecuteContextC(ctx)
	if e.log != nil {
		_ = e.log.Sync()
	}
	if err == nil {
		return 0
	}

	var xe *exitError
	if errors.As(err, &xe) {
		ui.Fail(xe.err.Error())
		if xe.code == 2 {
			fmt.Fprintln(opt.Stderr, "Usage: "+cmd.UseLine())
		}
		return xe.code
	}
	// flag parsing, argument validation and unknown commands
	ui.Fail(err.Error())
	fmt.Fprintln(opt.Stderr)
	fmt.Fprint(opt.Stderr, cmd.UsageString())
	return 2
}

// PrintHelp writes the top-level help to stdout.
func PrintHelp() {
	e := &env{}
	root := e.rootCmd()
	root.SetOut(ui.Stdout())
	_ = root.Help()
}

// env is the state shared by every command of one invocation.
type env struct {
	opt Options

	cfgFile string
	theme   string
	noColor bool

	cfg *config.Config
	log *zap.Logger
}

func (e *env) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "foodchain",
		Short: "FoodChain Tracker - register food items on an EVM ledger and share them as QR codes",
		Example: `  foodchain wallet import 0xac09...ff80
  foodchain deploy
  foodchain add "Apple Batch #123" --origin "California, USA"
  foodchain ls
  foodchain qr 0 --out apple.png
  foodchain scan apple.png`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: e.setup,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetIn(e.opt.Stdin)
	root.SetOut(e.opt.Stdout)
	root.SetErr(e.opt.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usagef("%v", err) })

	f := root.PersistentFlags()
	f.StringVar(&e.cfgFile, "config", "", "config file (default ./foodchain.yaml or ~/.foodchain/foodchain.yaml)")
	f.StringVar(&e.theme, "theme", "", "output theme: classic, neon or mono")
	f.BoolVar(&e.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		e.connectCmd(),
		e.addCmd(),
		e.listCmd(),
		e.qrCmd(),
		e.scanCmd(),
		e.deployCmd(),
		e.serveCmd(),
		e.walletCmd(),
	)
	return root
}

// commands that run long enough to want their logs on stderr
var stderrLogging = map[string]bool{"serve": true, "deploy": true}

func (e *env) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(e.cfgFile)
	if err != nil {
		return failure(err)
	}
	e.cfg = cfg

	theme := e.theme
	if theme == "" {
		theme = cfg.UI.Theme
	}
	ui.SetTheme(theme)
	ui.SetColorForcing(false, e.noColor || cfg.UI.NoColor)

	var log *zap.Logger
	if stderrLogging[cmd.Name()] {
		log, err = logging.New(cfg.Log.Level, cfg.Log.File)
	} else {
		log, err = logging.ForTerminalUI(cfg.Log.Level, cfg.Log.File)
	}
	if err != nil {
		return failure(err)
	}
	e.log = log.With(zap.String("cmd", cmd.Name()))
	return nil
}

// dial connects to the configured node. The returned func releases the connection.
func (e *env) dial(ctx context.Context) (ledger.Backend, func(), error) {
	b, err := e.opt.Dial(ctx, e.cfg.Network.RPCURL)
	if err != nil {
		return nil, nil, failure(err)
	}
	closeFn := func() {}
	if c, ok := b.(interface{ Close() }); ok {
		closeFn = c.Close
	}
	return b, closeFn, nil
}

func (e *env) store() (*jsonstore.Store, error) {
	s, err := jsonstore.New(e.cfg.Deployments.File)
	if err != nil {
		return nil, failure(err)
	}
	return s, nil
}

// client binds the contract proxy to the address the config resolves for the node's chain.
func (e *env) client(ctx context.Context, b ledger.Backend) (*ledger.Client, error) {
	chainID := e.cfg.Network.ChainID
	if chainID == 0 {
		id, err := b.ChainID(ctx)
		if err != nil {
			return nil, failuref("chain id: %w", err)
		}
		chainID = id.Uint64()
	}
	st, err := e.store()
	if err != nil {
		return nil, err
	}
	addr, source := e.cfg.ContractAddress(st, chainID)
	e.log.Debug("contract resolved",
		zap.String("address", addr.Hex()),
		zap.String("source", source),
		zap.Uint64("chain_id", chainID))

	c, err := ledger.NewClient(b, addr,
		ledger.WithLogger(e.log),
		ledger.WithChainID(e.cfg.Network.ChainID))
	if err != nil {
		return nil, failure(err)
	}
	return c, nil
}

// wallet loads the signing key; a missing key is not an error.
func (e *env) wallet() (*wallet.Wallet, error) {
	w, err := wallet.Load(e.cfg.Wallet.KeyFile)
	if errors.Is(err, wallet.ErrNoWallet) {
		return nil, nil
	}
	if err != nil {
		return nil, failure(err)
	}
	return w, nil
}

func (e *env) keyFile() (string, error) {
	if e.cfg.Wallet.KeyFile != "" {
		return e.cfg.Wallet.KeyFile, nil
	}
	p, err := wallet.DefaultPath()
	if err != nil {
		return "", failure(err)
	}
	return p, nil
}
