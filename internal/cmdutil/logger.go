package cmdutil

import (
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	uuid "github.com/satori/go.uuid"
)

// NewLogger creates a logfmt logger writing to w, filtered by ll. Every line
// is tagged with the program name and an id unique to this run so that logs
// of separate sessions can be told apart.
func NewLogger(w io.Writer, ll LogLevel, program string) log.Logger {
	l := log.NewLogfmtLogger(log.NewSyncWriter(w))
	l = level.NewFilter(l, ll.FilterOption())
	return log.With(l,
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"program", program,
		"session", uuid.NewV4().String(),
	)
}
