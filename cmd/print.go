package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/vsdcard/internal/dispatch"
	"github.com/zjrosen/vsdcard/internal/log"
	"github.com/zjrosen/vsdcard/internal/metrics"
	"github.com/zjrosen/vsdcard/internal/presentation"
	"github.com/zjrosen/vsdcard/internal/pubsub"
)

var printJSON bool

var printCmd = &cobra.Command{
	Use:   "print FILE",
	Short: "Print a file through the virtual card",
	Long: `Print a file from the card through the reference executor. Every line
is echoed to stdout and motion commands drive a simulated toolhead.

While printing, commands typed on stdin run through the same executor:
M25 pauses, M24 resumes, M27 reports progress, GET_TASKLINE shows the
resume counters. Ctrl-C cancels the print.

Examples:
  vsdcard print benchy.gcode
  vsdcard print parts/bracket.g --json`,
	Args: cobra.ExactArgs(1),
	RunE: runPrint,
}

func init() {
	printCmd.Flags().BoolVar(&printJSON, "json", false, "print the final status as JSON")
	rootCmd.AddCommand(printCmd)
}

func runPrint(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	e, err := newEngine(cfg, out)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Close(closeCtx); err != nil {
			log.ErrorErr(log.CatConfig, "close engine", err)
		}
	}()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	subCtx, unsubscribe := context.WithCancel(context.Background())
	defer unsubscribe()
	events := e.card.Subscribe(subCtx)

	if _, err := e.card.PrintFile(ctx, args[0]); err != nil {
		return fmt.Errorf("printing %s: %w", args[0], err)
	}

	go readControl(ctx, e, cmd.InOrStdin())

	final, err := waitTerminal(ctx, e.card, events)
	if err != nil {
		return err
	}
	return report(out, e, final)
}

// readControl runs stdin lines through the executor until EOF or ctx ends.
func readControl(ctx context.Context, e *engine, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := e.exec.Run(ctx, line); err != nil {
			e.exec.Respond("!! " + err.Error())
		}
	}
	if err := scanner.Err(); err != nil {
		log.ErrorErr(log.CatConfig, "read stdin", err)
	}
}

// waitTerminal blocks until the card completes, fails or is cancelled. An
// interrupt cancels the print first.
func waitTerminal(ctx context.Context, card *dispatch.Dispatcher, events <-chan pubsub.Event[dispatch.StateChange]) (dispatch.Status, error) {
	if st := card.Status(); st.State.Terminal() {
		return st, nil
	}
	terminal := func(ev pubsub.Event[dispatch.StateChange]) bool { return ev.Payload.To.Terminal() }
	if _, ok := pubsub.WaitFor(ctx, events, terminal); ok || ctx.Err() == nil {
		return card.Status(), nil
	}

	cancelCtx, cancel := context.WithTimeout(context.Background(), cfg.SDCard.PauseTimeout+time.Second)
	defer cancel()
	if err := card.Cancel(cancelCtx); err != nil && !errors.Is(err, dispatch.ErrInvalidState) {
		return card.Status(), fmt.Errorf("cancelling print: %w", err)
	}
	if st := card.Status(); st.State.Terminal() {
		return st, nil
	}
	pubsub.WaitFor(cancelCtx, events, terminal)
	return card.Status(), nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorErr(log.CatConfig, "metrics server", err, "addr", addr)
		}
	}()
	log.Info(log.CatConfig, "serving metrics", "addr", addr)
	return srv
}

func report(out io.Writer, e *engine, st dispatch.Status) error {
	if err := presentation.NewFormatter(out, printJSON).FormatStatus(presentation.FromStatus(st)); err != nil {
		return err
	}
	if job := e.recorder.Current(); job != nil && !printJSON {
		_, _ = fmt.Fprintf(out, "job %s: %s in %s, %d pauses\n",
			job.GUID, job.State, job.Duration.Round(time.Second), job.Pauses)
	}
	if st.State == dispatch.Error {
		return fmt.Errorf("print failed: %s", st.Error)
	}
	return nil
}
