package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/RyanBlaney/sonido-coach/logging"
	"github.com/RyanBlaney/sonido-coach/stream"
)

func runDiagnose(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("diagnose", flag.ContinueOnError)
	duration := fs.Duration("duration", a.cfg.Stream.DiagnosticDuration, "how long to listen")
	if err := fs.Parse(args); err != nil {
		return err
	}

	src := stream.NewPCMSource(a.stdin, a.cfg.Analysis.FrameSize, a.cfg.Analysis.SampleRate)
	d, err := stream.Diagnose(ctx, src, *duration)
	if err != nil {
		return err
	}
	return a.printJSON(d)
}

func runServeMetrics(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("serve-metrics", flag.ContinueOnError)
	addr := fs.String("addr", a.cfg.Observe.MetricsAddr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *addr == "" {
		*addr = ":9464"
	}

	_, exp, shutdown, err := a.withMetricsAddr(*addr).setupMetrics()
	if err != nil {
		return err
	}
	defer shutdown()
	return serveMetrics(ctx, *addr, exp.Handler(), a.logger)
}

func (a *app) withMetricsAddr(addr string) *app {
	cp := *a
	cfg := *a.cfg
	cfg.Observe.MetricsAddr = addr
	cp.cfg = &cfg
	return &cp
}

// serveMetrics serves h at /metrics on addr until ctx is done
func serveMetrics(ctx context.Context, addr string, h http.Handler, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving metrics", logging.Fields{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
