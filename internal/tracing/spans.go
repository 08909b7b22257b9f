package tracing

// Span names.
const (
	SpanPrintRun      = "print.run"
	SpanPrintPause    = "print.pause"
	SpanCommandPrefix = "command."
)

// Span attribute keys.
const (
	AttrCard       = "card.name"
	AttrFile       = "file.path"
	AttrFileSize   = "file.size"
	AttrStartPos   = "file.start_position"
	AttrEndPos     = "file.end_position"
	AttrLines      = "file.lines"
	AttrOutcome    = "run.outcome"
	AttrResumeLine = "pause.resume_line"
	AttrCommand    = "command.raw"
	AttrFromFile   = "command.from_file"
)

// Event names.
const (
	EventPauseRequested = "pause.requested"
	EventRecoveryScript = "recovery.script"
	EventJump           = "file.jump"
)
