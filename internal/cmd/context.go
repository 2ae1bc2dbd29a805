package cmd

import (
	"context"
	"io"
	"os"
)

type errorFormatKey struct{}

type ioKey struct{}

// streams are the command's stdin, stdout and stderr.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// WithErrorFormat stores the error format in the context.
func WithErrorFormat(ctx context.Context, format string) context.Context {
	return context.WithValue(ctx, errorFormatKey{}, format)
}

// ErrorFormatFromContext retrieves the error format from context.
func ErrorFormatFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(errorFormatKey{}).(string); ok {
		return v
	}
	return ""
}

func withIO(ctx context.Context, in io.Reader, out, err io.Writer) context.Context {
	return context.WithValue(ctx, ioKey{}, streams{in: in, out: out, err: err})
}

func streamsFrom(ctx context.Context) streams {
	if ctx != nil {
		if s, ok := ctx.Value(ioKey{}).(streams); ok {
			return s
		}
	}
	return streams{}
}

func stdinFromContext(ctx context.Context) io.Reader {
	if s := streamsFrom(ctx); s.in != nil {
		return s.in
	}
	return os.Stdin
}

func stdoutFromContext(ctx context.Context) io.Writer {
	if s := streamsFrom(ctx); s.out != nil {
		return s.out
	}
	return os.Stdout
}

func stderrFromContext(ctx context.Context) io.Writer {
	if s := streamsFrom(ctx); s.err != nil {
		return s.err
	}
	return os.Stderr
}
