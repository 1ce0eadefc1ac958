package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/procmon/internal/config"
	"github.com/Dicklesworthstone/procmon/internal/control"
	"github.com/Dicklesworthstone/procmon/internal/host"
	"github.com/Dicklesworthstone/procmon/internal/logging"
	"github.com/Dicklesworthstone/procmon/internal/monitor"
	"github.com/Dicklesworthstone/procmon/internal/sampler"
	"github.com/Dicklesworthstone/procmon/internal/ui"
)

const exitInterrupted = 130

// environment is everything run touches outside the process itself.
type environment struct {
	host   host.Host
	system sampler.SystemSource
	out    io.Writer
}

func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := environment{
		host:   host.NewGopsutil(),
		system: sampler.NewSystemSampler(),
		out:    os.Stdout,
	}
	err := newRootCmd(env).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "procmon: %v\n", err)
	}
	return exitCode(ctx, err)
}

func exitCode(ctx context.Context, err error) int {
	switch {
	case ctx.Err() != nil:
		return exitInterrupted
	case err != nil:
		return 1
	}
	return 0
}

func newRootCmd(env environment) *cobra.Command {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "procmon",
		Short: "Show running processes as a sorted table",
		Long: "procmon lists running processes with their resource usage, sorted and trimmed to the top N.\n\n" +
			"Every flag can also be set through the environment as " + config.EnvPrefix + "_<FLAG>, e.g. " +
			config.EnvPrefix + "_SORT_BY=cpu_usage.",
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.ApplyEnv(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfg, env)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	config.BindFlags(cmd.Flags(), &cfg)
	return cmd
}

func run(ctx context.Context, cfg config.Config, env environment) error {
	opts, err := cfg.Validate()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	lifecycleErr := applyLifecycle(ctx, logger, env.host, cfg)

	collector := sampler.New(logger, env.host).WithSystem(env.system)
	engine := monitor.NewEngine(logger, collector, opts)
	repeat := cfg.LiveUpdate || cfg.TUI

	switch {
	case cfg.TUI:
		err = runTUI(ctx, engine, cfg.Interval)
	case cfg.JSON:
		err = engine.Run(ctx, cfg.Interval, repeat, ui.NewJSONPrinter(env.out).Render)
	default:
		printer := ui.NewPrinter(env.out)
		printer.Clear = repeat && isTerminal(env.out)
		err = engine.Run(ctx, cfg.Interval, repeat, printer.Render)
	}

	return multierror.Append(lifecycleErr, err).ErrorOrNil()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	// the alternate screen owns stderr while the TUI runs
	if cfg.TUI && cfg.LogFile == "" {
		return zap.NewNop(), nil
	}
	return logging.NewLogger("procmon", cfg.Debug, cfg.LogFile)
}

// applyLifecycle sends the requested signals once, before the first
// snapshot. Failures are collected and do not prevent monitoring.
func applyLifecycle(ctx context.Context, logger *zap.Logger, h host.Host, cfg config.Config) error {
	requests := []struct {
		action control.Action
		pid    int32
	}{
		{control.ActionTerminate, cfg.Kill},
		{control.ActionSuspend, cfg.Suspend},
		{control.ActionResume, cfg.Resume},
	}

	ctl := control.New(logger, h)
	var errs error
	for _, req := range requests {
		if req.pid == 0 {
			continue
		}
		if err := ctl.Apply(ctx, req.action, req.pid); err != nil {
			logger.Warn("Lifecycle action failed", zap.String("Action", req.action.String()),
				zap.Int32("Pid", req.pid), zap.Error(err))
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

func runTUI(ctx context.Context, engine *monitor.Engine, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tui := ui.NewTUI(cancel)
	done := make(chan error, 1)
	go func() {
		err := engine.Run(ctx, interval, true, tui.Render)
		if err != nil {
			tui.Fail(err)
		} else {
			tui.Done()
		}
		done <- err
	}()

	uiErr := tui.Run()
	cancel()
	return multierror.Append(uiErr, <-done).ErrorOrNil()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
