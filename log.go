package appchain

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

var log = zerolog.New(nil).Output(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: time.TimeOnly,
}).With().Timestamp().Logger()

func Log() *zerolog.Logger {
	return &log
}

// ComponentLogger tags every event with the emitting component, e.g. "client"
// or "gateway".
func ComponentLogger(component string, fields map[string]any) *zerolog.Logger {
	l := log.With().Str("component", component).Fields(fields).Logger()
	return &l
}

func init() {
	zerolog.TimeFieldFormat = time.TimeOnly
	zerolog.ErrorStackMarshaler = MarshalStack
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// SetLogLevel parses one of trace|debug|info|warn|error|fatal and applies it
// globally. An empty level falls back to APPCHAIN_LOG_LEVEL, then info.
func SetLogLevel(level string) (parsed zerolog.Level, err error) {
	if level == "" {
		level = os.Getenv("APPCHAIN_LOG_LEVEL")
	}
	if level == "" {
		level = "info"
	}

	parsed, err = zerolog.ParseLevel(level)
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	zerolog.SetGlobalLevel(parsed)
	return
}

func MarshalStack(err error) interface{} {
	log.Debug().Msg(StackTracerMessage(err))
	return pkgerrors.MarshalStack(err)
}

func StackTracerMessage(err error) string {
	type StackTracer interface {
		StackTrace() errors.StackTrace
	}

	var errString string

	if err != nil {
		if stackTracer, isStackTracer := err.(StackTracer); isStackTracer {
			for _, f := range stackTracer.StackTrace() {
				errString += fmt.Sprintf("%+v\n", f)
			}
		}
	}

	return errString
}
