package dispatch

// Stats receives print lifecycle notes. Implementations must not block.
type Stats interface {
	SetCurrentFile(name string)
	NoteStart()
	NotePause()
	NoteComplete()
	NoteError(msg string)
	NoteCancel()
	Reset()
}

// NopStats discards every note.
type NopStats struct{}

var _ Stats = NopStats{}

func (NopStats) SetCurrentFile(string) {}
func (NopStats) NoteStart()            {}
func (NopStats) NotePause()            {}
func (NopStats) NoteComplete()         {}
func (NopStats) NoteError(string)      {}
func (NopStats) NoteCancel()           {}
func (NopStats) Reset()                {}
