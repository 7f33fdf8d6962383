package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dmorgan81/qrgen/internal/config"
	"github.com/dmorgan81/qrgen/internal/inject"
	"github.com/dmorgan81/qrgen/internal/lifecycle"
	"github.com/dmorgan81/qrgen/internal/log"
	"github.com/dmorgan81/qrgen/internal/tui"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type options struct {
	baseAddress string
	size        int
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "qrgen",
		Short:         "Generate QR codes through a remote generation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.baseAddress, "base-address", "", "origin of the generation service (overrides QRGEN_BASE_ADDRESS)")
	root.PersistentFlags().IntVar(&opts.size, "size", 0, "scale factor sent with each request (overrides QRGEN_SIZE)")

	root.AddCommand(newGenerateCommand(opts), newPingCommand(opts), newLambdaCommand(opts))
	return root
}

// Execute runs the CLI and reports errors on stderr.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return err
}

type session struct {
	ctx      context.Context
	cfg      *config.Config
	injector *do.Injector
	closers  []func()
}

func (s *session) shutdown() {
	if err := s.injector.Shutdown(); err != nil {
		log.FromContextOrDiscard(s.ctx).Warn("shutdown failed", "error", err)
	}
	for _, c := range s.closers {
		c()
	}
}

// setup loads configuration, applies flag overrides and builds the injector.
// Interactive sessions log to QRGEN_LOG_FILE (or nowhere) so log lines never
// land on the terminal the UI is drawing on.
func setup(cmd *cobra.Command, opts *options, interactive bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.baseAddress != "" {
		cfg.BaseAddress = opts.baseAddress
		cfg.BaseAddressParam = ""
	}
	if opts.size != 0 {
		cfg.Size = opts.size
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}
	logTo := cmd.ErrOrStderr()
	if interactive {
		logTo = io.Discard
		if cfg.LogFile != "" {
			f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file: %w", err)
			}
			logTo = f
			s.closers = append(s.closers, func() { _ = f.Close() })
		}
	}

	s.ctx = log.NewContext(cmd.Context(), log.New(logTo, log.ParseLevel(cfg.LogLevel)))
	s.injector = inject.Setup(s.ctx, cfg)
	return s, nil
}

func runTUI(cmd *cobra.Command, opts *options) error {
	s, err := setup(cmd, opts, true)
	if err != nil {
		return err
	}
	defer s.shutdown()

	machine, err := do.Invoke[*lifecycle.Machine](s.injector)
	if err != nil {
		return err
	}
	return withMetrics(s.ctx, s.cfg.MetricsAddr, func(ctx context.Context) error {
		return tui.Run(ctx, machine, s.cfg.Size)
	})
}

// withMetrics runs fn alongside a Prometheus endpoint when addr is set. The
// endpoint stops once fn returns.
func withMetrics(ctx context.Context, addr string, fn func(context.Context) error) error {
	if addr == "" {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.FromContextOrDiscard(ctx).Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		defer cancel()
		return fn(ctx)
	})
	return group.Wait()
}
