// Package logging defines the small structured-logging surface the rest of
// the code programs against. Production wiring goes through zerolog; a
// standard library adapter exists for callers that arrive with a log.Logger,
// such as injected HTTP server options.
package logging

import (
	"io"
	stdlog "log"
	"time"

	"github.com/rs/zerolog"
)

// Logger is what components receive. Info, Error and Debug take typed
// attributes; Printf and Println exist so a Logger can stand in where code
// still expects the standard library shape.
type Logger interface {
	Info(msg string, attrs ...Attr)
	Error(msg string, err error, attrs ...Attr)
	Debug(msg string, attrs ...Attr)
	Printf(format string, args ...any)
	Println(args ...any)
}

// Attr is one key-value pair attached to a log entry.
type Attr struct {
	Key   string // field name in the emitted entry
	Value any
}

// Typed attribute constructors. Dur gets its own constructor because nearly
// every line this application emits carries a duration.

func String(key, value string) Attr { return Attr{Key: key, Value: value} }

func Int(key string, value int) Attr { return Attr{Key: key, Value: value} }

func Uint64(key string, value uint64) Attr { return Attr{Key: key, Value: value} }

func Float64(key string, value float64) Attr { return Attr{Key: key, Value: value} }

func Dur(key string, value time.Duration) Attr { return Attr{Key: key, Value: value} }

// Err names its attribute "error", matching zerolog's own convention.
func Err(err error) Attr { return Attr{Key: "error", Value: err} }

// writeTo appends the attribute to e through the zerolog setter matching the
// value's dynamic type, so numbers stay numbers in the JSON output.
func (a Attr) writeTo(e *zerolog.Event) *zerolog.Event {
	switch v := a.Value.(type) {
	case string:
		return e.Str(a.Key, v)
	case int:
		return e.Int(a.Key, v)
	case int64:
		return e.Int64(a.Key, v)
	case uint64:
		return e.Uint64(a.Key, v)
	case float64:
		return e.Float64(a.Key, v)
	case time.Duration:
		return e.Dur(a.Key, v)
	case error:
		return e.Err(v)
	case bool:
		return e.Bool(a.Key, v)
	default:
		return e.Interface(a.Key, v)
	}
}

func foldAttrs(e *zerolog.Event, attrs []Attr) *zerolog.Event {
	for _, a := range attrs {
		e = a.writeTo(e)
	}
	return e
}

// ZerologAdapter backs Logger with a zerolog.Logger.
type ZerologAdapter struct {
	zl zerolog.Logger
}

// NewZerologAdapter wraps an already configured zerolog.Logger.
func NewZerologAdapter(zl zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{zl: zl}
}

// NewLogger writes JSON entries to w, tagged with the given component name.
func NewLogger(w io.Writer, component string) *ZerologAdapter {
	return NewZerologAdapter(zerolog.New(w).With().Str("component", component).Timestamp().Logger())
}

func (a *ZerologAdapter) Info(msg string, attrs ...Attr) {
	foldAttrs(a.zl.Info(), attrs).Msg(msg)
}

func (a *ZerologAdapter) Error(msg string, err error, attrs ...Attr) {
	foldAttrs(a.zl.Error().Err(err), attrs).Msg(msg)
}

func (a *ZerologAdapter) Debug(msg string, attrs ...Attr) {
	foldAttrs(a.zl.Debug(), attrs).Msg(msg)
}

func (a *ZerologAdapter) Printf(format string, args ...any) {
	a.zl.Info().Msgf(format, args...)
}

func (a *ZerologAdapter) Println(args ...any) {
	a.zl.Info().Msgf("%v", args)
}

// StdAdapter backs Logger with a *log.Logger for callers that inject one,
// trading structured attributes for bracketed level prefixes.
type StdAdapter struct {
	std *stdlog.Logger
}

// NewStdAdapter wraps an existing standard library logger.
func NewStdAdapter(l *stdlog.Logger) *StdAdapter {
	return &StdAdapter{std: l}
}

func (s *StdAdapter) emit(level, msg string, attrs []Attr) {
	if len(attrs) == 0 {
		s.std.Println(level, msg)
		return
	}
	s.std.Printf("%s %s %v\n", level, msg, attrs)
}

func (s *StdAdapter) Info(msg string, attrs ...Attr) { s.emit("[INFO]", msg, attrs) }

func (s *StdAdapter) Debug(msg string, attrs ...Attr) { s.emit("[DEBUG]", msg, attrs) }

func (s *StdAdapter) Error(msg string, err error, attrs ...Attr) {
	if len(attrs) == 0 {
		s.std.Printf("[ERROR] %s: %v\n", msg, err)
		return
	}
	s.std.Printf("[ERROR] %s: %v %v\n", msg, err, attrs)
}

func (s *StdAdapter) Printf(format string, args ...any) { s.std.Printf(format, args...) }

func (s *StdAdapter) Println(args ...any) { s.std.Println(args...) }
