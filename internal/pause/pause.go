// Package pause stops the toolhead for a pause and works out which file line
// a resume has to restart from.
package pause

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/zjrosen/vsdcard/internal/log"
	"github.com/zjrosen/vsdcard/internal/motion"
)

// DefaultExcludedAxes never contribute to the resume line. Z only moves for
// layer changes and leveling, so its counter lags every other axis.
var DefaultExcludedAxes = []string{motion.AxisZ}

// AxisProgress is one axis counter as reported by the toolhead.
type AxisProgress struct {
	Name string
	Line int64
}

// Snapshot is the result of a quick stop.
type Snapshot struct {
	Position motion.Position
	Axes     []AxisProgress
	// Completed is the least advanced counter among contributing axes, 0 when
	// none moved.
	Completed int64
	// ResumeLine is the 1-based file line to restart at.
	ResumeLine int64
}

// Controller runs the pause sequence against a toolhead.
type Controller struct {
	toolhead motion.Toolhead
	excluded []string
}

// New creates a Controller. A nil excluded list takes DefaultExcludedAxes.
func New(toolhead motion.Toolhead, excluded []string) *Controller {
	if excluded == nil {
		excluded = DefaultExcludedAxes
	}
	return &Controller{toolhead: toolhead, excluded: slices.Clone(excluded)}
}

// ExcludedAxes returns the axes ignored when picking the resume line.
func (c *Controller) ExcludedAxes() []string {
	return slices.Clone(c.excluded)
}

// QuickStop halts the toolhead and computes the resume line from the axis
// counters it reports afterwards.
func (c *Controller) QuickStop(ctx context.Context) (Snapshot, error) {
	pos, err := c.toolhead.QuickStop(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("quick stop: %w", err)
	}
	axes, err := c.Progress()
	if err != nil {
		return Snapshot{}, err
	}
	completed := c.completed(axes)
	snap := Snapshot{
		Position:   pos,
		Axes:       axes,
		Completed:  completed,
		ResumeLine: completed + 1,
	}
	log.Info(log.CatPause, "quick stop", "position", pos.String(), "completed", completed, "resume_line", snap.ResumeLine)
	return snap, nil
}

// Progress reads every axis counter without stopping anything.
func (c *Controller) Progress() ([]AxisProgress, error) {
	names := c.toolhead.Axes()
	axes := make([]AxisProgress, 0, len(names))
	for _, name := range names {
		line, err := c.toolhead.AxisProgress(name)
		if err != nil {
			return nil, fmt.Errorf("read progress of %s: %w", name, err)
		}
		axes = append(axes, AxisProgress{Name: name, Line: line})
	}
	return axes, nil
}

// completed picks the minimum non-zero counter among contributing axes.
func (c *Controller) completed(axes []AxisProgress) int64 {
	var least int64
	for _, a := range axes {
		if a.Line == 0 || slices.Contains(c.excluded, a.Name) {
			continue
		}
		if least == 0 || a.Line < least {
			least = a.Line
		}
	}
	return least
}

// RestorePosition hands the stopped position back to the planner so relative
// moves after resume start from where the toolhead actually is.
func (c *Controller) RestorePosition(ctx context.Context, snap Snapshot) error {
	if err := c.toolhead.SetLogicalPosition(ctx, snap.Position); err != nil {
		return fmt.Errorf("restore position: %w", err)
	}
	return nil
}

// FormatTaskline renders axis counters as "name:line" pairs.
func FormatTaskline(axes []AxisProgress) string {
	parts := make([]string, 0, len(axes))
	for _, a := range axes {
		parts = append(parts, fmt.Sprintf("%s:%d", a.Name, a.Line))
	}
	return strings.Join(parts, " ")
}
