package motion

import (
	"context"

	"github.com/zjrosen/vsdcard/internal/executor"
)

// Registrar is the part of the executor that accepts handlers.
type Registrar interface {
	Register(name string, h executor.Handler, desc string) error
}

// RegisterCommands installs G0/G1/G28/G92/M400 handlers backed by s.
func RegisterCommands(r Registrar, s *Simulated) error {
	cmds := []struct {
		name string
		h    executor.Handler
		desc string
	}{
		{"G0", s.cmdMove, "Linear move"},
		{"G1", s.cmdMove, "Linear move"},
		{"G28", s.cmdHome, "Home axes"},
		{"G92", s.cmdSetPosition, "Set logical position"},
		{"M400", s.cmdWait, "Wait for moves to finish"},
	}
	for _, c := range cmds {
		if err := r.Register(c.name, c.h, c.desc); err != nil {
			return err
		}
	}
	return nil
}

type axisParam struct {
	key  string
	axis string
	ptr  func(*Position) *float64
}

var axisParams = []axisParam{
	{"X", AxisX, func(p *Position) *float64 { return &p.X }},
	{"Y", AxisY, func(p *Position) *float64 { return &p.Y }},
	{"Z", AxisZ, func(p *Position) *float64 { return &p.Z }},
	{"E", AxisE, func(p *Position) *float64 { return &p.E }},
}

// apply overlays the command's axis words onto pos and reports which axes
// were named.
func apply(cmd *executor.Command, pos Position) (Position, []string, error) {
	var axes []string
	for _, ap := range axisParams {
		if !cmd.Has(ap.key) {
			continue
		}
		v, err := cmd.GetFloat(ap.key, 0)
		if err != nil {
			return pos, nil, err
		}
		*ap.ptr(&pos) = v
		axes = append(axes, ap.axis)
	}
	return pos, axes, nil
}

func (s *Simulated) cmdMove(ctx context.Context, cmd *executor.Command) error {
	target, axes, err := apply(cmd, s.plannedPosition())
	if err != nil {
		return err
	}
	if len(axes) == 0 {
		return nil
	}
	s.Enqueue(executor.SourceFrom(ctx).Line, target, axes...)
	return nil
}

func (s *Simulated) cmdHome(ctx context.Context, cmd *executor.Command) error {
	target := s.plannedPosition()
	var axes []string
	for _, ap := range axisParams[:3] {
		if cmd.Has(ap.key) {
			*ap.ptr(&target) = 0
			axes = append(axes, ap.axis)
		}
	}
	if len(axes) == 0 {
		target.X, target.Y, target.Z = 0, 0, 0
		axes = []string{AxisX, AxisY, AxisZ}
	}
	s.Enqueue(executor.SourceFrom(ctx).Line, target, axes...)
	return nil
}

func (s *Simulated) cmdSetPosition(ctx context.Context, cmd *executor.Command) error {
	s.Flush()
	pos, _, err := apply(cmd, s.Position())
	if err != nil {
		return err
	}
	return s.SetLogicalPosition(ctx, pos)
}

func (s *Simulated) cmdWait(ctx context.Context, cmd *executor.Command) error {
	s.Flush()
	return nil
}
