package timeutil

import (
	"sync"
	"time"
)

// TimeUTC is a small helper type representing Unix time (in seconds) in UTC.
// Using a dedicated type prevents confusion between local and UTC timestamps.
type TimeUTC struct{ T int64 }

func NowUTC() TimeUTC {
	return TimeUTC{T: time.Now().UTC().Unix()}
}

func FromTime(t time.Time) TimeUTC {
	return TimeUTC{T: t.UTC().Unix()}
}

func (t TimeUTC) After(other TimeUTC) bool { return t.T > other.T }
func (t TimeUTC) AddSeconds(sec int64) TimeUTC {
	return TimeUTC{T: t.T + sec}
}

func (t TimeUTC) Time() time.Time {
	return time.Unix(t.T, 0).UTC()
}

type Clock interface {
	Now() TimeUTC
}

type SystemClock struct{}

func (SystemClock) Now() TimeUTC { return NowUTC() }

// MonotonicClock never returns a value lower than one it returned before,
// even if the wrapped clock steps backwards.
type MonotonicClock struct {
	mu    sync.Mutex
	inner Clock
	last  TimeUTC
}

func NewMonotonicClock(inner Clock) *MonotonicClock {
	return &MonotonicClock{inner: inner}
}

func (m *MonotonicClock) Now() TimeUTC {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.inner.Now()
	if m.last.After(now) {
		return m.last
	}
	m.last = now
	return now
}
