package executor

import "context"

// Source describes where a script being executed came from.
type Source struct {
	FromFile bool  // dispatched by the file loop
	Line     int64 // 1-based file line, 0 when not from a file
}

type sourceKey struct{}

// WithSource returns a context tagged with the script source.
func WithSource(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, src)
}

// SourceFrom extracts the script source from ctx. Interactive commands get
// the zero Source.
func SourceFrom(ctx context.Context) Source {
	if src, ok := ctx.Value(sourceKey{}).(Source); ok {
		return src
	}
	return Source{}
}

// FromFile reports whether ctx belongs to a line dispatched from a file.
func FromFile(ctx context.Context) bool {
	return SourceFrom(ctx).FromFile
}
