package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/vsdcard/internal/catalog"
	"github.com/zjrosen/vsdcard/internal/executor"
	"github.com/zjrosen/vsdcard/internal/log"
	"github.com/zjrosen/vsdcard/internal/pause"
	"github.com/zjrosen/vsdcard/internal/tracing"
)

// Registrar is the part of the executor that accepts handlers.
type Registrar interface {
	Register(name string, h executor.Handler, desc string) error
}

// RegisterCommands installs the card's control commands. A nil tracer
// registers the handlers untraced.
func RegisterCommands(r Registrar, d *Dispatcher, tracer trace.Tracer) error {
	if tracer == nil {
		tracer = tracing.Noop()
	}
	cmds := []struct {
		name string
		h    executor.Handler
		desc string
	}{
		{"M20", d.cmdM20, "List SD card"},
		{"M21", d.cmdM21, "Initialize SD card"},
		{"M23", d.cmdM23, "Select SD file"},
		{"M24", d.cmdM24, "Start/resume SD print"},
		{"M25", d.cmdM25, "Pause SD print"},
		{"M26", d.cmdM26, "Set SD position"},
		{"M27", d.cmdM27, "Report SD print status"},
		{"M28", cmdWriteUnsupported, ""},
		{"M29", cmdWriteUnsupported, ""},
		{"M30", cmdWriteUnsupported, ""},
		{"SDCARD_RESET_FILE", d.cmdResetFile, "Clears a loaded SD File. Stops the print if necessary"},
		{"SDCARD_PRINT_FILE", d.cmdPrintFile, "Loads a SD file and starts the print. May include files in subdirectories."},
		{"GET_TASKLINE", d.cmdGetTaskline, "Report the file line each stepper has completed"},
	}
	for _, c := range cmds {
		if err := r.Register(c.name, tracing.WrapHandler(tracer, c.h), c.desc); err != nil {
			return fmt.Errorf("register %s: %w", c.name, err)
		}
	}
	return nil
}

func (d *Dispatcher) cmdM20(_ context.Context, cmd *executor.Command) error {
	entries, err := d.catalog.List(false)
	if err != nil {
		log.ErrorErr(log.CatCatalog, "list card", err, "root", d.catalog.Root())
		return cmd.Errorf("Unable to get file list")
	}
	cmd.Respond("Begin file list")
	for _, e := range entries {
		cmd.Respond(fmt.Sprintf("%s %d", e.Path, e.Size))
	}
	cmd.Respond("End file list")
	return nil
}

func (d *Dispatcher) cmdM21(_ context.Context, cmd *executor.Command) error {
	cmd.Respond("SD card ok")
	return nil
}

func (d *Dispatcher) cmdM23(ctx context.Context, cmd *executor.Command) error {
	name := strings.TrimSpace(cmd.Args)
	if _, err := d.Select(ctx, name); err != nil {
		return d.loadError(cmd, err)
	}
	return nil
}

func (d *Dispatcher) cmdM24(ctx context.Context, cmd *executor.Command) error {
	if err := d.Start(ctx); err != nil {
		return commandError(cmd, err)
	}
	return nil
}

func (d *Dispatcher) cmdM25(ctx context.Context, cmd *executor.Command) error {
	if err := d.Pause(ctx); err != nil {
		return commandError(cmd, err)
	}
	return nil
}

func (d *Dispatcher) cmdM26(_ context.Context, cmd *executor.Command) error {
	if _, err := cmd.Require("S"); err != nil {
		return err
	}
	pos, err := cmd.GetInt("S", 0, 0)
	if err != nil {
		return err
	}
	if err := d.SetPosition(pos); err != nil {
		return commandError(cmd, err)
	}
	return nil
}

func (d *Dispatcher) cmdM27(_ context.Context, cmd *executor.Command) error {
	cmd.Respond(d.Status().M27())
	return nil
}

func cmdWriteUnsupported(_ context.Context, cmd *executor.Command) error {
	return cmd.Errorf("SD write not supported")
}

func (d *Dispatcher) cmdResetFile(ctx context.Context, cmd *executor.Command) error {
	if err := d.Reset(ctx); err != nil {
		if errors.Is(err, ErrFromFile) {
			return cmd.Errorf("SDCARD_RESET_FILE cannot be run from the sdcard")
		}
		return commandError(cmd, err)
	}
	return nil
}

func (d *Dispatcher) cmdPrintFile(ctx context.Context, cmd *executor.Command) error {
	name, err := cmd.Require("FILENAME")
	if err != nil {
		return err
	}
	if _, err := d.load(ctx, name, true); err != nil {
		return d.loadError(cmd, err)
	}
	if err := d.Start(ctx); err != nil {
		return commandError(cmd, err)
	}
	return nil
}

func (d *Dispatcher) cmdGetTaskline(_ context.Context, cmd *executor.Command) error {
	axes, err := d.Taskline()
	if err != nil {
		return commandError(cmd, err)
	}
	cmd.RespondInfo("stepper line: " + pause.FormatTaskline(axes))
	return nil
}

// loadError maps a select failure to the message printed on the console.
func (d *Dispatcher) loadError(cmd *executor.Command, err error) error {
	if errors.Is(err, ErrBusy) {
		return cmd.Errorf("SD busy")
	}
	var nf *catalog.NotFoundError
	if !errors.As(err, &nf) {
		log.ErrorErr(log.CatDispatch, "load file", err, "card", d.cfg.Name)
	}
	return cmd.Errorf("Unable to open file")
}

func commandError(cmd *executor.Command, err error) error {
	var cmdErr *executor.CommandError
	if errors.As(err, &cmdErr) {
		return err
	}
	return cmd.Errorf("%s", err.Error())
}
