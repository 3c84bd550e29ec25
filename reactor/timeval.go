package reactor

import (
	"math"
	"strconv"
	"time"
)

const (
	usecPerSec = 1_000_000

	// maxTimevalSec keeps Timeval.Duration within time.Duration's range.
	maxTimevalSec = math.MaxInt64/int64(time.Second) - 1
)

// Timeval is a (seconds, microseconds) pair, the native timeout
// representation used by [Base.AddEvent] and [Event.Add].
type Timeval struct {
	Sec  int64
	Usec int64
}

// TimevalFromSeconds converts a floating-point number of seconds to a Timeval.
//
// Seconds are truncated, and the microseconds are the fractional part scaled by
// 1e6 and truncated, always within [0, 1e6). Negative and NaN inputs yield the
// zero Timeval, and values beyond the representable range saturate.
func TimevalFromSeconds(seconds float64) Timeval {
	if !(seconds > 0) {
		return Timeval{}
	}
	if seconds >= float64(maxTimevalSec) {
		return Timeval{Sec: maxTimevalSec}
	}
	sec := int64(seconds)
	usec := int64(seconds*usecPerSec) - sec*usecPerSec
	switch {
	case usec >= usecPerSec:
		// rounding of seconds*1e6 crossed into the next second
		usec = usecPerSec - 1
	case usec < 0:
		usec = 0
	}
	return Timeval{Sec: sec, Usec: usec}
}

// TimevalFromDuration converts d to a Timeval, truncating to microseconds.
// Negative durations yield the zero Timeval.
func TimevalFromDuration(d time.Duration) Timeval {
	if d <= 0 {
		return Timeval{}
	}
	return Timeval{
		Sec:  int64(d / time.Second),
		Usec: int64(d%time.Second) / int64(time.Microsecond),
	}
}

// Duration returns tv as a time.Duration.
func (tv Timeval) Duration() time.Duration {
	return time.Duration(tv.Sec)*time.Second + time.Duration(tv.Usec)*time.Microsecond
}

// Seconds returns tv as a floating-point number of seconds.
func (tv Timeval) Seconds() float64 {
	return float64(tv.Sec) + float64(tv.Usec)/usecPerSec
}

// IsZero reports whether tv is the zero Timeval.
func (tv Timeval) IsZero() bool {
	return tv.Sec == 0 && tv.Usec == 0
}

// String formats tv as seconds with six fractional digits, e.g. "1.500000".
func (tv Timeval) String() string {
	b := strconv.AppendInt(make([]byte, 0, 24), tv.Sec, 10)
	b = append(b, '.')
	frac := strconv.AppendInt(make([]byte, 0, 6), tv.Usec, 10)
	for i := len(frac); i < 6; i++ {
		b = append(b, '0')
	}
	return string(append(b, frac...))
}
