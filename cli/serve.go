package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-recplay/httpapi"
	"go-recplay/metrics"
)

func newServeCmd(deps *Dependencies) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run headless with an HTTP control surface",
		Long: `Opens the configured ports and serves session controls over HTTP.

Endpoints:
  GET  /status           Session state and port names
  POST /record/start     Start capturing
  POST /record/stop      Stop capturing, returns the recording
  POST /play/start       Replay the recording (?loop=true to repeat)
  POST /play/stop        Stop playback
  GET  /recording        Current recording
  GET  /metrics          Prometheus metrics
  WS   /ws               Live engine notices`,
		Example: `  recplay serve --in Keystation --out INTEGRA
  recplay serve --addr :7400 --channel 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				deps.Config.ListenAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, deps)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (default from config)")
	return cmd
}

func runServe(ctx context.Context, deps *Dependencies) error {
	log, closeLog, err := headlessLogger(deps)
	if err != nil {
		return err
	}
	defer closeLog()

	r, _, err := openRig(deps, log, false)
	if err != nil {
		return err
	}
	defer deps.closeDriver()
	defer r.Close()

	met := metrics.New()
	hub := httpapi.NewHub(log.Named("ws"))
	session := r.Session()
	unsubMetrics := session.Subscribe(met.Observe)
	defer unsubMetrics()
	unsubHub := session.Subscribe(hub.Broadcast)
	defer unsubHub()

	h := httpapi.NewHandler(session, hub, met, r.Names, log.Named("http"))
	srv := httpapi.NewServer(deps.Config.ListenAddr, h)

	fmt.Fprintf(deps.out(), "API: http://%s/status\n", deps.Config.ListenAddr)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", zap.Error(err))
		return err
	}
	return nil
}
