// Package calendar answers whether trading is permitted at a given moment.
package calendar

import (
	"fmt"
	"time"
)

// Gate is a pure trading-hours check over a daily [open, close) window in
// local wall-clock minutes. Callers inject the clock.
type Gate struct {
	open     int // minutes since midnight
	close    int
	everyday bool
}

// New builds a gate from "HH:MM" open/close strings. everyday=false rejects
// weekends.
func New(open, close string, everyday bool) (*Gate, error) {
	o, err := ParseHHMM(open)
	if err != nil {
		return nil, fmt.Errorf("market open: %w", err)
	}
	c, err := ParseHHMM(close)
	if err != nil {
		return nil, fmt.Errorf("market close: %w", err)
	}
	if c <= o {
		return nil, fmt.Errorf("market close %s must be after open %s", close, open)
	}
	return &Gate{open: o, close: c, everyday: everyday}, nil
}

// IsOpen reports whether trading is permitted at now. The window is
// half-open: the close minute itself is already closed.
func (g *Gate) IsOpen(now time.Time) bool {
	if !g.everyday {
		switch now.Weekday() {
		case time.Saturday, time.Sunday:
			return false
		}
	}
	m := now.Hour()*60 + now.Minute()
	return m >= g.open && m < g.close
}

// ParseHHMM parses a wall-clock "HH:MM" string into minutes since midnight.
func ParseHHMM(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return h*60 + m, nil
}
