package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/gitlib"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/mcp"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/observability"
)

const (
	metricsPath           = "/metrics"
	healthPath            = "/healthz"
	readyPath             = "/readyz"
	metricsReadTimeout    = 5 * time.Second
	metricsShutdownPeriod = 5 * time.Second
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(gf *globalFlags) *cobra.Command {
	var (
		debug       bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes xdiff as tools that AI agents can discover and invoke:
  - xdiff_diff: line diff of two texts (unified, json, yaml or summary)
  - xdiff_merge: three-way merge with conflict markers`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			if debug {
				gf.verbose = true
			}

			sess, err := newSession(gf, observability.ModeMCP, cobraCmd.ErrOrStderr(), metricsAddr != "")
			if err != nil {
				return err
			}
			defer sess.close()

			red, err := observability.NewREDMetrics(sess.providers.Meter)
			if err != nil {
				return err
			}

			recorder, err := observability.NewDiffMetrics(sess.providers.Meter)
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				ln, listenErr := net.Listen("tcp", metricsAddr)
				if listenErr != nil {
					return fmt.Errorf("listen %s: %w", metricsAddr, listenErr)
				}

				defer serveMetrics(sess, red, ln)()
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Config:   sess.cfg,
				Logger:   sess.logger(),
				Metrics:  red,
				Recorder: recorder,
				Tracer:   sess.providers.Tracer,
			})

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /readyz on this address, e.g. :9090")

	return cmd
}

// libgit2Ready checks that a libgit2 engine can be opened; merges need one.
func libgit2Ready(context.Context) error {
	engine, err := gitlib.NewEngine()
	if err != nil {
		return err
	}

	engine.Free()

	return nil
}

// serveMetrics serves the scrape and health endpoints on ln and returns the
// stop function.
func serveMetrics(sess *session, red *observability.REDMetrics, ln net.Listener) func() {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, observability.HTTPMiddleware(sess.providers.Tracer, red, sess.providers.MetricsHandler))
	mux.Handle(healthPath, observability.HealthHandler())
	mux.Handle(readyPath, observability.ReadyHandler(libgit2Ready))

	httpSrv := &http.Server{Handler: mux, ReadHeaderTimeout: metricsReadTimeout}

	go func() {
		serveErr := httpSrv.Serve(ln)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			sess.logger().Error("metrics server failed", "error", serveErr)
		}
	}()

	sess.logger().Info("serving metrics", "addr", ln.Addr().String(), "path", metricsPath)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownPeriod)
		defer cancel()

		shutdownErr := httpSrv.Shutdown(ctx)
		if shutdownErr != nil {
			sess.logger().Warn("metrics server shutdown failed", "error", shutdownErr)
		}
	}
}
