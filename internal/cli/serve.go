package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Makepad-fr/foodchain/internal/httpapi"
	"github.com/Makepad-fr/foodchain/internal/ui"
)

func (e *env) serveCmd() *cobra.Command {
	var (
		addr    string
		origins []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API for a browser front end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = e.cfg.HTTP.Addr
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
			if w != nil {
				if _, err := c.Connect(cmd.Context(), w); err != nil {
					return failure(err)
				}
			} else {
				e.log.Warn("no wallet available, serving read-only")
			}

			h := httpapi.NewRouter(c, e.log, httpapi.Options{AllowedOrigins: origins})
			ln, err := httpapi.Listen(addr)
			if err != nil {
				return failure(err)
			}
			ui.OK("listening on " + ln.Addr().String())
			err = httpapi.Serve(cmd.Context(), ln, h, e.log)
			if err != nil && !errors.Is(err, cmd.Context().Err()) {
				e.log.Error("http server stopped", zap.Error(err))
				return failure(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default http.addr, :8080)")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "CORS origins allowed to call the API (default any)")
	return cmd
}
