package curio

import (
	"os"
	"time"

	catrate "github.com/joeycumines/go-catrate"
	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// logifaceLogger adapts a github.com/joeycumines/logiface.Logger[*izerolog.Event]
// to this package's narrow Logger interface, keeping the kernel's public
// surface decoupled from logiface's generic type parameter while still
// getting structured, leveled, low-allocation logging rather than
// fmt.Sprintf-built strings.
type logifaceLogger struct {
	l *logiface.Logger[*izerolog.Event]
}

// NewZerologLogger builds a Logger backed by zerolog via izerolog, writing
// to w (os.Stderr if nil) at or above level.
func NewZerologLogger(w *os.File, level logiface.Level) Logger {
	if w == nil {
		w = os.Stderr
	}
	zl := zerolog.New(w).With().Timestamp().Logger()
	l := logiface.New[*izerolog.Event](
		logiface.WithLevel[*izerolog.Event](level),
		izerolog.WithZerolog(zl),
	)
	return &logifaceLogger{l: l}
}

func (a *logifaceLogger) logKV(b *logiface.Builder[*izerolog.Event], kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		if key == "" {
			continue
		}
		switch v := kv[i+1].(type) {
		case string:
			b.Str(key, v)
		case error:
			b.Err(v)
		case int:
			b.Int(key, v)
		case int64:
			b.Int64(key, v)
		case uint64:
			b.Uint64(key, v)
		case bool:
			b.Bool(key, v)
		case time.Duration:
			b.Dur(key, v)
		default:
			b.Any(key, v)
		}
	}
}

func (a *logifaceLogger) Debug(msg string, kv ...any) {
	b := a.l.Debug()
	a.logKV(b, kv)
	b.Log(msg)
}

func (a *logifaceLogger) Info(msg string, kv ...any) {
	b := a.l.Info()
	a.logKV(b, kv)
	b.Log(msg)
}

func (a *logifaceLogger) Warn(msg string, kv ...any) {
	b := a.l.Warning()
	a.logKV(b, kv)
	b.Log(msg)
}

func (a *logifaceLogger) Error(msg string, kv ...any) {
	b := a.l.Err()
	a.logKV(b, kv)
	b.Log(msg)
}

// diagnosticLimiter rate-limits the kernel's policy-violation warnings
// (currently: a timeout error deferred because it reached a shielded task
// that was not suspended) so a misbehaving task cannot flood the log, per spec.md §7's
// "diagnostics are rate-limited, not suppressed" requirement. Grounded on
// go-catrate's category rate limiter (catrate/limiter.go), which the
// logiface package itself already depends on internally for exactly this
// purpose.
type diagnosticLimiter struct {
	logger Logger
	lim    *catrate.Limiter
}

func newDiagnosticLimiter(logger Logger) *diagnosticLimiter {
	return &diagnosticLimiter{
		logger: logger,
		lim: catrate.NewLimiter(map[time.Duration]int{
			time.Minute: 5,
			time.Second: 1,
		}),
	}
}

// warnPolicyViolation logs msg at most as often as the limiter's rates
// allow for the given category, silently dropping the rest.
func (d *diagnosticLimiter) warnPolicyViolation(category string, msg string, kv ...any) {
	if _, ok := d.lim.Allow(category); ok {
		d.logger.Warn(msg, kv...)
	}
}
