package h2

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// zapLogger adapts a *zap.Logger to fasthttp.Logger's Printf-style
// interface, kept as the logging surface any caller embedding this
// module alongside a fasthttp-based stack already depends on.
type zapLogger struct {
	log *zap.SugaredLogger
}

var _ fasthttp.Logger = (*zapLogger)(nil)

// NewFastHTTPLogger wraps log as a fasthttp.Logger, for callers that
// thread h2 into a fasthttp server/client sharing one Logger value.
func NewFastHTTPLogger(log *zap.Logger) fasthttp.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &zapLogger{log: log.Sugar()}
}

func (l *zapLogger) Printf(format string, args ...interface{}) {
	l.log.Infof(format, args...)
}
