package reactor

import (
	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// Log categories, used as rate limiting keys together with a per-event ID
// where one is relevant.
const (
	categoryPanic     = "panic"
	categoryPoll      = "poll"
	categoryReentrant = "reentrant"
	categoryFree      = "free"
)

type logCategory struct {
	name string
	id   uint64
}

// diagnostics wraps the optional logger and limiter of a Base.
// All methods are safe with a nil logger, and a nil limiter.
type diagnostics struct {
	logger  *logiface.Logger[logiface.Event]
	limiter *catrate.Limiter
	baseID  uint64
}

func newDiagnostics(cfg *baseOptions, baseID uint64) diagnostics {
	return diagnostics{
		logger:  cfg.logger,
		limiter: cfg.logLimiter,
		baseID:  baseID,
	}
}

// limited builds a log event at the given level, unless the category is
// over its rate limit, in which case it returns nil (a valid no-op builder).
func (d *diagnostics) limited(level logiface.Level, category logCategory) *logiface.Builder[logiface.Event] {
	b := d.logger.Build(level)
	if !b.Enabled() {
		return nil
	}
	if _, ok := d.limiter.Allow(category); !ok {
		b.Release()
		return nil
	}
	return b.Uint64(`base`, d.baseID).Str(`category`, category.name)
}

func (d *diagnostics) debug() *logiface.Builder[logiface.Event] {
	return d.logger.Debug().Uint64(`base`, d.baseID)
}
