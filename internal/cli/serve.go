package cli

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/metaxime/pathview/internal/server"
)

// serveCommand starts the dashboard.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noCache   bool
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pathway dashboard",
		Long: `Serve the pathway dashboard.

The dashboard lists the backend's jobs, shows the results of each job in a
sortable table and draws any result as an interactive diagram. Fetched graphs
and rendered diagrams are cached; Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.Config.Server.Addr = addr
			}
			return c.runServe(cmd.Context(), noCache, !noMetrics)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not serve /metrics")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, noCache, withMetrics bool) error {
	client, err := c.newClient()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, client, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	var metrics *server.Metrics
	if withMetrics {
		metrics = server.NewMetrics()
		metrics.Install()
	}

	srv, err := server.New(server.Config{
		Addr:            c.Config.Server.Addr,
		Backend:         client,
		Runner:          runner,
		Render:          c.Config.RenderOptions(),
		Metrics:         metrics,
		Logger:          c.Logger,
		TileConcurrency: c.Config.Server.TileConcurrency,
	})
	if err != nil {
		return err
	}

	c.Logger.Info("using backend", "url", client.BaseURL())
	printInfo("Dashboard on %s", StyleLink.Render(httpURL(c.Config.Server.Addr)))
	if err := srv.ListenAndServe(ctx); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// httpURL turns a listen address into a browsable URL.
func httpURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr + "/"
	}
	return "http://" + addr + "/"
}
