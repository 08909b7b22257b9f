package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
	json   bool
}

// NewFormatter creates a new formatter. asJSON selects indented JSON over
// aligned columns.
func NewFormatter(writer io.Writer, asJSON bool) *Formatter {
	return &Formatter{
		writer: writer,
		json:   asJSON,
	}
}

// FormatFiles prints a card listing.
func (f *Formatter) FormatFiles(files []FileDTO) error {
	if f.json {
		return f.encode(files)
	}
	tw := tabwriter.NewWriter(f.writer, 0, 4, 2, ' ', 0)
	for _, file := range files {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", file.Path, file.Size, file.ModTime.Format(time.DateTime))
	}
	return tw.Flush()
}

// FormatJobs prints job history, newest first as given.
func (f *Formatter) FormatJobs(jobs []JobDTO) error {
	if f.json {
		return f.encode(jobs)
	}
	tw := tabwriter.NewWriter(f.writer, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CREATED\tCARD\tFILE\tSTATE\tDURATION\tPAUSES\tERROR")
	for _, j := range jobs {
		d := time.Duration(j.Duration * float64(time.Second)).Round(time.Second)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			j.CreatedAt.Local().Format(time.DateTime), j.Card, j.Filename, j.State, d, j.Pauses, j.Error)
	}
	return tw.Flush()
}

// FormatStatus prints one card status.
func (f *Formatter) FormatStatus(st StatusDTO) error {
	if f.json {
		return f.encode(st)
	}
	_, err := fmt.Fprintf(f.writer, "%s: %s %s line %d byte %d/%d (%.1f%%)\n",
		st.Card, st.State, st.File, st.Line, st.Position, st.Size, st.Progress*100)
	return err
}

func (f *Formatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
