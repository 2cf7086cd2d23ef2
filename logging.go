package branch

import (
	"io"
	"log"
	"os"
)

const logFlags = log.LstdFlags

func defaultLogger() *log.Logger {
	return log.New(os.Stdout, "[branch] ", logFlags)
}

// Logger returns the logger installed on ctx, or a default stdout logger
// if none was set. Mirrors euphoria.io/heim/proto/logging.Logger.
func (ctx *Context[T]) Logger() *log.Logger {
	if ctx.logger != nil {
		return ctx.logger
	}
	return defaultLogger()
}

// WithLogger installs a prefixed logger on ctx and every context forked
// from it afterward, the way proto/logging.LoggingContext scopes a logger
// to a subtree.
func WithLogger[T any](ctx *Context[T], w io.Writer, prefix string) {
	ctx.logger = log.New(w, prefix, logFlags)
}
