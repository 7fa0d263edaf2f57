package engine

import (
	"fmt"
	"sync/atomic"
	"time"
)

// QueryStats holds statement execution statistics.
type QueryStats struct {
	TotalQueries  atomic.Int64
	TotalExecs    atomic.Int64
	TotalDuration atomic.Int64 // nanoseconds
	SlowQueries   atomic.Int64
	Errors        atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

func (s *QueryStats) record(query bool, d time.Duration, slow bool, err error) {
	if query {
		s.TotalQueries.Add(1)
	} else {
		s.TotalExecs.Add(1)
	}
	s.TotalDuration.Add(int64(d))
	if slow {
		s.SlowQueries.Add(1)
	}
	if err != nil {
		s.Errors.Add(1)
	}
}

// StatsSnapshot is a point-in-time snapshot of statement statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d duration=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.SlowQueries, s.Errors)
}
