package analysis

import (
	"log/slog"

	"github.com/roach88/amc/internal/am"
	"github.com/roach88/amc/internal/logging"
)

// Context is threaded through every analysis call in place of ambient
// state: the machine under analysis, where findings go, and where logs go.
type Context struct {
	Machine  *am.ActorMachine
	Reporter Reporter
	Logger   *slog.Logger
}

// NewContext builds a Context. A nil reporter discards findings and a nil
// logger discards logs.
func NewContext(m *am.ActorMachine, r Reporter, logger *slog.Logger) *Context {
	if r == nil {
		r = discard{}
	}
	return &Context{
		Machine:  m,
		Reporter: r,
		Logger:   logging.OrNop(logger),
	}
}

func (c *Context) fatal(code string, state int, msg string) {
	c.Reporter.Report(Diagnostic{
		Severity:   SeverityFatal,
		Code:       code,
		Machine:    c.Machine.Name,
		StartState: state,
		Message:    msg,
	})
}

type discard struct{}

func (discard) Report(Diagnostic) {}
