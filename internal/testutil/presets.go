package testutil

import "time"

// ThreeLineJob is the smallest file that exercises a move after homing.
var ThreeLineJob = []string{"G28", "G1 X10", "G1 X20"}

// WithStandardTestData adds a mix of finished and unfinished jobs across two
// cards, oldest first.
func (b *Builder) WithStandardTestData() *Builder {
	now := time.Now()
	lastWeek := now.Add(-7 * 24 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)

	return b.
		WithJob("job-1", Filename("benchy.gcode"), CreatedAt(lastWeek), Duration(95*time.Minute)).
		WithJob("job-2", Filename("bracket.gcode"), CreatedAt(yesterday), ErrorMessage("Move out of range"), Pauses(1)).
		WithJob("job-3", Card("sdcard2"), Filename("vase.gcode"), CreatedAt(yesterday.Add(time.Hour)), State("cancelled")).
		WithJob("job-4", Filename("calibration.gcode"), CreatedAt(now), State("in_progress"))
}

// WithStandardCard adds top-level jobs, a nested job, a hidden file and a
// file the catalog ignores.
func (c *CardBuilder) WithStandardCard() *CardBuilder {
	return c.
		WithFile("job.gcode", Lines(ThreeLineJob...)).
		WithFile("Benchy.GCO", Repeat("G1 X1 Y1 E0.1", 100)).
		WithFile("parts/bracket.g", Lines("G28", "G1 Z5")).
		WithFile(".hidden.gcode", Lines("G28")).
		WithFile("notes.txt", Content("not gcode\n"))
}
