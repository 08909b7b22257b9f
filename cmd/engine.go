package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/zjrosen/vsdcard/internal/catalog"
	"github.com/zjrosen/vsdcard/internal/config"
	"github.com/zjrosen/vsdcard/internal/dispatch"
	"github.com/zjrosen/vsdcard/internal/executor"
	"github.com/zjrosen/vsdcard/internal/filecache"
	"github.com/zjrosen/vsdcard/internal/flags"
	"github.com/zjrosen/vsdcard/internal/history"
	"github.com/zjrosen/vsdcard/internal/log"
	"github.com/zjrosen/vsdcard/internal/motion"
	"github.com/zjrosen/vsdcard/internal/pause"
	"github.com/zjrosen/vsdcard/internal/tracing"
)

// engine is one card wired to the reference executor and the simulated
// toolhead.
type engine struct {
	exec     *executor.Executor
	sim      *motion.Simulated
	cards    *dispatch.Registry
	card     *dispatch.Dispatcher
	recorder *history.Recorder
	closers  []func(context.Context) error
}

func newEngine(cfg config.Config, out io.Writer) (e *engine, err error) {
	e = &engine{}
	defer func() {
		if err != nil {
			_ = e.Close(context.Background())
		}
	}()
	ff := flags.New(cfg.Flags)

	tp, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("creating tracer: %w", err)
	}
	e.closers = append(e.closers, tp.Shutdown)

	e.exec = executor.New(executor.WithOutput(out), executor.WithFallback(echo))
	e.sim = motion.NewSimulated()
	if err := motion.RegisterCommands(e.exec, e.sim); err != nil {
		return nil, fmt.Errorf("registering motion commands: %w", err)
	}

	repo, closeRepo, err := openHistory(cfg, ff)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, func(context.Context) error { return closeRepo() })
	e.recorder = history.NewRecorder(cfg.SDCard.Name, repo)

	onError, err := cfg.SDCard.OnErrorScript()
	if err != nil {
		return nil, err
	}

	e.card = dispatch.New(dispatch.Config{
		Name:         cfg.SDCard.Name,
		PauseTimeout: cfg.SDCard.PauseTimeout,
		GateRetry:    cfg.SDCard.GateRetry,
		CacheWait:    cfg.SDCard.CacheWaitTimeout,
		OnError:      onError,
	},
		catalog.New(cfg.SDCard.Path),
		e.exec,
		pause.New(e.sim, cfg.Pause.ExcludedAxes),
		dispatch.WithCache(newCache(cfg.SDCard, ff)),
		dispatch.WithStats(e.recorder),
		dispatch.WithTracer(tp.Tracer()),
	)
	if err := dispatch.RegisterCommands(e.exec, e.card, tp.Tracer()); err != nil {
		return nil, err
	}
	e.cards = dispatch.NewRegistry()
	if err := e.cards.Add(e.card); err != nil {
		return nil, err
	}
	return e, nil
}

// openHistory returns the SQLite job store when history is persisted, or a
// memory repository otherwise.
func openHistory(cfg config.Config, ff *flags.Registry) (history.Repository, func() error, error) {
	if !ff.Enabled(flags.FlagJobHistory) || cfg.History.Path == "" {
		return history.NewMemoryRepository(), func() error { return nil }, nil
	}
	db, err := history.NewDB(catalog.ExpandPath(cfg.History.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("opening history: %w", err)
	}
	return db.Jobs(), db.Close, nil
}

func newCache(sd config.SDCardConfig, ff *flags.Registry) *filecache.Manager {
	if !sd.CacheEnabled {
		return nil
	}
	var opts []filecache.Option
	if !ff.Enabled(flags.FlagRemovableDetect) {
		opts = append(opts, filecache.WithRemovableFunc(func(context.Context, string) (bool, error) {
			return false, nil
		}))
	}
	return filecache.New(filecache.Config{
		Enabled:     true,
		Dir:         catalog.ExpandPath(sd.CachePath),
		WaitTimeout: sd.CacheWaitTimeout,
	}, opts...)
}

// echo answers commands nothing else handles by printing them.
func echo(_ context.Context, cmd *executor.Command) error {
	cmd.Respond("echo: " + cmd.Raw)
	return nil
}

// Close stops every card, then releases tracing and storage.
func (e *engine) Close(ctx context.Context) error {
	var errs []error
	if e.cards != nil {
		errs = append(errs, e.cards.Close(ctx))
	} else if e.card != nil {
		errs = append(errs, e.card.Close(ctx))
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil {
			log.ErrorErr(log.CatConfig, "shutdown", err)
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
