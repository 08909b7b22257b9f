package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/vsdcard/internal/executor"
	"github.com/zjrosen/vsdcard/internal/log"
	"github.com/zjrosen/vsdcard/internal/metrics"
	"github.com/zjrosen/vsdcard/internal/pause"
	"github.com/zjrosen/vsdcard/internal/tracing"
)

type outcome int

const (
	outcomePaused outcome = iota
	outcomeEOF
	outcomeCommandFailed
	outcomeFailed
)

func (o outcome) String() string {
	switch o {
	case outcomePaused:
		return "paused"
	case outcomeEOF:
		return "complete"
	case outcomeCommandFailed:
		return "command_failed"
	default:
		return "failed"
	}
}

type loopExit struct {
	outcome outcome
	err     error
}

// pendingLine is one buffered file line. size counts the terminator when
// there is one.
type pendingLine struct {
	text string
	size int64
}

// splitLines cuts data at every '\n' and returns the unterminated tail.
func splitLines(data []byte) ([]pendingLine, []byte) {
	var lines []pendingLine
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, pendingLine{text: string(data[:i]), size: int64(i) + 1})
		data = data[i+1:]
	}
	return lines, bytes.Clone(data)
}

// run is the loop goroutine. It owns the session until done is closed.
func (d *Dispatcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	d.mu.Lock()
	path, size, start := d.path, d.sess.Size(), d.sess.Position()
	d.mu.Unlock()

	ctx, span := d.tracer.Start(ctx, tracing.SpanPrintRun, trace.WithAttributes(
		attribute.String(tracing.AttrCard, d.cfg.Name),
		attribute.String(tracing.AttrFile, path),
		attribute.Int64(tracing.AttrFileSize, size),
		attribute.Int64(tracing.AttrStartPos, start),
	))
	defer span.End()

	log.Info(log.CatDispatch, "starting print", "card", d.cfg.Name, "file", path, "position", start)
	d.stats.NoteStart()

	res := d.loop(ctx)

	span.SetAttributes(attribute.String(tracing.AttrOutcome, res.outcome.String()))
	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Error())
	}
	d.finish(ctx, res)
}

func (d *Dispatcher) loop(ctx context.Context) loopExit {
	buf := make([]byte, d.cfg.ReadSize)
	var (
		lines   []pendingLine
		partial []byte
		eof     bool
	)
	for {
		if d.pauseReq.Load() || ctx.Err() != nil {
			return loopExit{outcome: outcomePaused}
		}

		if len(lines) == 0 {
			if eof {
				return loopExit{outcome: outcomeEOF}
			}
			n, err := d.sess.Read(buf)
			if err != nil && !errors.Is(err, io.EOF) {
				return loopExit{outcome: outcomeFailed, err: fmt.Errorf("read: %w", err)}
			}
			if n == 0 {
				eof = true
				if len(partial) > 0 {
					lines = []pendingLine{{text: string(partial), size: int64(len(partial))}}
					partial = nil
				}
				continue
			}
			lines, partial = splitLines(append(partial, buf[:n]...))
			runtime.Gosched()
			continue
		}

		if !d.exec.TryLock() {
			metrics.RecordGateRetry(d.cfg.Name)
			d.sleep(ctx, d.cfg.GateRetry)
			continue
		}
		// A pause can land while the gate is being taken.
		if d.pauseReq.Load() {
			d.exec.Unlock()
			return loopExit{outcome: outcomePaused}
		}

		next := lines[0]
		lines = lines[1:]
		jumped, err := d.dispatchLine(ctx, next)
		if err != nil {
			var cmdErr *executor.CommandError
			if errors.As(err, &cmdErr) {
				return loopExit{outcome: outcomeCommandFailed, err: err}
			}
			return loopExit{outcome: outcomeFailed, err: err}
		}
		if jumped {
			lines, partial, eof = nil, nil, false
		}
	}
}

func (d *Dispatcher) sleep(ctx context.Context, dur time.Duration) {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// dispatchLine runs one line with the gate already held and releases it.
// It reports whether the line asked to continue somewhere else.
func (d *Dispatcher) dispatchLine(ctx context.Context, ln pendingLine) (bool, error) {
	defer d.exec.Unlock()

	d.mu.Lock()
	lineNo := d.sess.Line() + 1
	expected := d.sess.Position() + ln.size
	d.nextPos = expected
	d.mu.Unlock()

	lineCtx := executor.WithSource(ctx, executor.Source{FromFile: true, Line: lineNo})
	if err := d.exec.RunLocked(lineCtx, ln.text); err != nil {
		var cmdErr *executor.CommandError
		if errors.As(err, &cmdErr) {
			d.runRecovery(ctx, cmdErr.Error(), lineNo)
		}
		return false, err
	}
	metrics.RecordLine(d.cfg.Name, ln.size)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.sess.Advance(ln.size)
	target := d.nextPos
	d.nextPos = -1
	metrics.SetProgress(d.cfg.Name, progress(d.sess.Position(), d.sess.Size()))
	if target == expected {
		return false, nil
	}

	log.Info(log.CatDispatch, "jump", "card", d.cfg.Name, "line", lineNo, "from", expected, "to", target)
	trace.SpanFromContext(ctx).AddEvent(tracing.EventJump, trace.WithAttributes(attribute.Int64(tracing.AttrEndPos, target)))
	if err := d.sess.SeekTo(target); err != nil {
		return true, err
	}
	return true, nil
}

// runRecovery renders and runs the error script. Failures are logged only.
func (d *Dispatcher) runRecovery(ctx context.Context, reason string, line int64) {
	if d.cfg.OnError == nil {
		return
	}
	script, err := d.cfg.OnError.Render(RecoveryData{Reason: reason, File: d.path, Line: line})
	if err != nil {
		log.ErrorErr(log.CatDispatch, "render recovery script", err)
		return
	}
	if script == "" {
		return
	}
	trace.SpanFromContext(ctx).AddEvent(tracing.EventRecoveryScript)
	// The script runs on the loop goroutine, so it counts as part of the file.
	ctx = executor.WithSource(ctx, executor.Source{FromFile: true, Line: line})
	if err := d.exec.RunLocked(ctx, script); err != nil {
		log.ErrorErr(log.CatDispatch, "recovery script failed", err, "card", d.cfg.Name)
	}
}

// finish applies the loop outcome. It runs on the loop goroutine before
// done is closed, so waiters observe the final state.
func (d *Dispatcher) finish(ctx context.Context, res loopExit) {
	d.mu.Lock()
	pos, lines := d.sess.Position(), d.sess.Line()
	d.mu.Unlock()
	log.Info(log.CatDispatch, "exiting print", "card", d.cfg.Name, "position", pos, "lines", lines, "outcome", res.outcome)

	switch res.outcome {
	case outcomePaused:
		d.settlePause(ctx)

	case outcomeEOF:
		d.mu.Lock()
		d.closeSessionLocked()
		d.mu.Unlock()
		d.cleanupCache()
		log.Info(log.CatDispatch, "finished print", "card", d.cfg.Name)
		d.exec.Respond("Done printing file")
		d.stats.NoteComplete()
		d.mu.Lock()
		d.setStateLocked(Complete, "")
		d.mu.Unlock()

	default:
		msg := res.err.Error()
		log.ErrorErr(log.CatDispatch, "print failed", res.err, "card", d.cfg.Name, "line", lines+1)
		d.mu.Lock()
		d.failLocked(msg)
		d.mu.Unlock()
		d.cleanupCache()
	}
}

// settlePause quick-stops the toolhead and rewinds the session to the
// resume line.
func (d *Dispatcher) settlePause(ctx context.Context) {
	ctx, span := d.tracer.Start(ctx, tracing.SpanPrintPause, trace.WithAttributes(
		attribute.String(tracing.AttrCard, d.cfg.Name),
	))
	defer span.End()

	snap, err := d.pauser.QuickStop(ctx)
	if err != nil {
		log.ErrorErr(log.CatPause, "quick stop failed, keeping loop position", err, "card", d.cfg.Name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int64(tracing.AttrResumeLine, snap.ResumeLine))
		d.reconcile(snap)
		if err := d.pauser.RestorePosition(ctx, snap); err != nil {
			log.ErrorErr(log.CatPause, "restore position", err, "card", d.cfg.Name)
		}
	}

	d.stats.NotePause()

	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		d.snapshot = &snap
	}
	if !d.pauseAt.IsZero() {
		metrics.RecordPause(time.Since(d.pauseAt))
	}
	d.setStateLocked(Paused, "")
}

// reconcile moves Line and Position back to the resume line. It never moves
// forward past lines that were not dispatched.
func (d *Dispatcher) reconcile(snap pause.Snapshot) {
	d.mu.Lock()
	dispatched := d.sess.Line()
	d.mu.Unlock()

	if snap.Completed == 0 {
		log.Debug(log.CatPause, "no axis progress, keeping loop position", "card", d.cfg.Name, "line", dispatched)
		return
	}
	if snap.ResumeLine > dispatched+1 {
		log.Warn(log.CatPause, "axis progress ahead of file, keeping loop position",
			"card", d.cfg.Name, "resume_line", snap.ResumeLine, "dispatched", dispatched)
		return
	}

	// The loop has exited, so the scan can run without the lock.
	offset, err := d.sess.LineStartOffset(snap.ResumeLine)
	if err != nil {
		log.Warn(log.CatPause, "resume line not in file, keeping loop position",
			"card", d.cfg.Name, "resume_line", snap.ResumeLine, "error", err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.sess.SetPosition(offset)
	d.sess.SetLine(snap.ResumeLine - 1)
	log.Info(log.CatPause, "resume point", "card", d.cfg.Name, "line", snap.ResumeLine, "position", offset)
}
