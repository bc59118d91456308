package log

import (
	"io"
	"log/slog"
)

func SetupWith(stdout, stderr io.Writer, level, file string) (*slog.Logger, []io.Closer, error) {
	return setup(stdout, stderr, level, file)
}
