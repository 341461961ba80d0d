package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	httpadapter "github.com/aretw0/graff/pkg/adapters/http"
	"github.com/aretw0/graff/pkg/adapters/zmq"
	"github.com/aretw0/graff/pkg/mockbackend"
	"github.com/aretw0/graff/pkg/observability"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 5 * time.Second
	// replyGrace lets the shutdown reply leave the REP socket before it closes.
	replyGrace = 200 * time.Millisecond
)

// ServeOptions configures the development backend. An empty address
// disables that listener; at least one is required.
type ServeOptions struct {
	ZMQ    string
	HTTP   string
	Mock   bool
	Logger *slog.Logger

	// Ready, when set, is called with the bound addresses once both
	// listeners accept connections.
	Ready func(zmqAddr, httpAddr string)
}

// Serve runs the mock backend until ctx is done or a client sends
// requestShutdown.
func Serve(ctx context.Context, opts ServeOptions) error {
	if opts.ZMQ == "" && opts.HTTP == "" {
		return errors.New("serve needs a zmq or http address")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	backend := mockbackend.New(
		mockbackend.WithLogger(logger),
		mockbackend.WithMockMode(opts.Mock),
	)
	metrics := observability.NewMetrics(nil)
	handler := metrics.Instrument(backend)

	g, gctx := errgroup.WithContext(ctx)

	var zmqAddr string
	var zsrv *zmq.Server
	if opts.ZMQ != "" {
		var err error
		zsrv, err = zmq.Listen(gctx, opts.ZMQ, handler, zmq.WithServerLogger(logger))
		if err != nil {
			return err
		}
		zmqAddr = zsrv.Addr()
		g.Go(zsrv.Serve)
		logger.Info("zmq listening", "addr", zmqAddr)
	}

	var httpAddr string
	var hsrv *http.Server
	if opts.HTTP != "" {
		ln, err := net.Listen("tcp", opts.HTTP)
		if err != nil {
			if zsrv != nil {
				_ = zsrv.Close()
			}
			return fmt.Errorf("listen %s: %w", opts.HTTP, err)
		}
		httpAddr = "http://" + ln.Addr().String()
		hsrv = &http.Server{
			Handler: httpadapter.NewHandler(handler,
				httpadapter.WithLogger(logger),
				httpadapter.WithMetricsHandler(metrics.Handler()),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			if err := hsrv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		logger.Info("http listening", "addr", httpAddr)
	}

	if opts.Ready != nil {
		opts.Ready(zmqAddr, httpAddr)
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-backend.Done():
			logger.Info("shutdown requested")
			time.Sleep(replyGrace)
		}
		var err error
		if hsrv != nil {
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			err = hsrv.Shutdown(sctx)
		}
		if zsrv != nil {
			err = errors.Join(err, zsrv.Close())
		}
		return err
	})

	return g.Wait()
}
