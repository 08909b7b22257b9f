// Package motion defines what the print engine needs from the motion system
// and ships a simulated toolhead that honours it.
package motion

import (
	"context"
	"fmt"
)

// Position is a logical toolhead position.
type Position struct {
	X, Y, Z, E float64
}

func (p Position) String() string {
	return fmt.Sprintf("X:%.3f Y:%.3f Z:%.3f E:%.3f", p.X, p.Y, p.Z, p.E)
}

// Toolhead is the motion subsystem as seen by the pause sequence.
type Toolhead interface {
	// QuickStop halts all queued motion without deceleration and returns the
	// position the toolhead actually stopped at.
	QuickStop(ctx context.Context) (Position, error)
	// Axes lists the axis names that report progress.
	Axes() []string
	// AxisProgress returns the last file line whose motion on the axis is
	// fully committed. Zero means the axis never moved under a file line.
	AxisProgress(name string) (int64, error)
	// SetLogicalPosition tells the planner where the toolhead is.
	SetLogicalPosition(ctx context.Context, pos Position) error
}

// UnknownAxisError is returned for an axis the toolhead does not have.
type UnknownAxisError struct {
	Name string
}

func (e *UnknownAxisError) Error() string {
	return fmt.Sprintf("unknown axis %q", e.Name)
}
