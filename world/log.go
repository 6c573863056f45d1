package world

import (
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

// NewLogger adapts commonlog to the interpreter's Logger interface.
func NewLogger(name string) *CommonLogger {
	return &CommonLogger{log: commonlog.GetLogger(name)}
}

// CommonLogger routes interpreter log output through commonlog.
type CommonLogger struct {
	log commonlog.Logger
}

func (l *CommonLogger) Infof(format string, args ...interface{}) {
	l.log.Infof(format, args...)
}

func (l *CommonLogger) Errorf(format string, args ...interface{}) {
	l.log.Errorf(format, args...)
}
