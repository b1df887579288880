package common

import (
	"sync/atomic"

	"github.com/getsentry/sentry-go"
	"github.com/inconshreveable/log15"
)

// level shared by every module logger, adjustable after the loggers exist
var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(log15.LvlDebug))
}

// NewLog returns the logger of one module. Records above the process level are
// discarded; error and crit records are also reported to sentry.
func NewLog(module string) log15.Logger {
	lg := log15.New("module", module)
	out := log15.MultiHandler(lg.GetHandler(), sentryHandler())
	lg.SetHandler(log15.FilterHandler(func(r *log15.Record) bool {
		return r.Lvl <= log15.Lvl(logLevel.Load())
	}, out))
	return lg
}

// SetLogLevel accepts the log15 level names: debug, info, warn, error, crit.
func SetLogLevel(level string) error {
	lvl, err := log15.LvlFromString(level)
	if err != nil {
		return err
	}
	logLevel.Store(int32(lvl))
	return nil
}

func sentryHandler() log15.Handler {
	format := log15.JsonFormat()
	return log15.FuncHandler(func(r *log15.Record) error {
		if r.Lvl > log15.LvlError {
			return nil
		}
		// the sentry transport queues events itself
		sentry.CaptureMessage(string(format.Format(r)))
		return nil
	})
}

// InitSentry is a no-op when dsn is empty; sentry.CaptureMessage then drops messages.
func InitSentry(dsn, env string) error {
	if dsn == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	})
}
