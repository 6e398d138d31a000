package util

import (
	"cloud.google.com/go/logging"
	"cloud.google.com/go/logging/apiv2/loggingpb"
	"context"
	"fmt"
	"github.com/ajjensen13/gke"
	"runtime"
)

type contextKey string

const (
	loggerContextKey contextKey = "logger"
	extraContextKey  contextKey = "extra"
)

func WithLoggerValue(ctx context.Context, key string, val interface{}) context.Context {
	var nm map[string]interface{}
	p := ctx.Value(extraContextKey)
	if p != nil {
		pm := p.(map[string]interface{})
		nm = make(map[string]interface{}, len(pm)+1)
		for k, v := range pm {
			nm[k] = v
		}
	} else {
		nm = map[string]interface{}{}
	}

	nm[key] = val
	return context.WithValue(ctx, extraContextKey, nm)
}

func WithLogger(ctx context.Context, lg gke.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, lg)
}

type logPayload struct {
	Message string
	Values  map[string]interface{}
}

func (l logPayload) String() string {
	return l.Message
}

// Logf logs through the logger attached by WithLogger. Contexts without a
// logger drop the entry, so library code can log unconditionally.
func Logf(ctx context.Context, severity logging.Severity, format string, argv ...interface{}) {
	log(ctx, severity, newLogPayload(ctx, fmt.Sprintf(format, argv...)))
}

func log(ctx context.Context, severity logging.Severity, payload logPayload) {
	lg, ok := ctx.Value(loggerContextKey).(gke.Logger)
	if !ok {
		return
	}
	lg.Log(logging.Entry{Severity: severity, Payload: payload, SourceLocation: sourceLocation(3)})
}

// sourceLocation reports the frame skip calls up the stack in the form Cloud
// Logging entries carry, attributing Logf entries to the caller of Logf.
func sourceLocation(skip int) *loggingpb.LogEntrySourceLocation {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return nil
	}
	loc := &loggingpb.LogEntrySourceLocation{File: file, Line: int64(line)}
	if fn := runtime.FuncForPC(pc); fn != nil {
		loc.Function = fn.Name()
	}
	return loc
}

func newLogPayload(ctx context.Context, msg string) logPayload {
	ret := logPayload{Message: msg}
	if v := ctx.Value(extraContextKey); v != nil {
		ret.Values = v.(map[string]interface{})
	}
	return ret
}
