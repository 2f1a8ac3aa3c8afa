package period

import (
	"fmt"
	"time"

	"github.com/riskibarqy/touchline/internal/domain/match"
)

const ExtraTimeLength = 15 * time.Minute

// Timing derives idealised match time from a match's configured length.
type Timing struct {
	TotalMinutes int
	Format       match.PeriodFormat
}

func TimingOf(m match.Match) Timing {
	return Timing{TotalMinutes: m.DurationMinutes, Format: m.PeriodFormat}
}

// RegularPeriods is the number of regulation periods for the format.
func (t Timing) RegularPeriods() int {
	switch t.Format {
	case match.FormatQuarter:
		return 4
	case match.FormatWhole:
		return 1
	default:
		return 2
	}
}

// PerPeriod is the expected length of one period of type pt.
func (t Timing) PerPeriod(pt Type) time.Duration {
	switch pt {
	case TypeExtraTime:
		return ExtraTimeLength
	case TypePenaltyShootout:
		return 0
	}

	if t.TotalMinutes <= 0 {
		switch t.Format {
		case match.FormatQuarter:
			return 12 * time.Minute
		case match.FormatWhole:
			return 90 * time.Minute
		default:
			return 45 * time.Minute
		}
	}

	total := time.Duration(t.TotalMinutes) * time.Minute
	return total / time.Duration(t.RegularPeriods())
}

func (t Timing) Regulation() time.Duration {
	return t.PerPeriod(TypeRegular) * time.Duration(t.RegularPeriods())
}

// ExpectedStart is the timer baseline when period n of type pt kicks off.
// Extra time continues from the end of regulation; a shootout starts after
// two extra-time periods.
func (t Timing) ExpectedStart(pt Type, n int) time.Duration {
	if n < 1 {
		n = 1
	}
	switch pt {
	case TypeExtraTime:
		return t.Regulation() + ExtraTimeLength*time.Duration(n-1)
	case TypePenaltyShootout:
		return t.Regulation() + 2*ExtraTimeLength
	default:
		return t.PerPeriod(TypeRegular) * time.Duration(n-1)
	}
}

// ExpectedEnd is the timer value period n of type pt snaps to when it ends.
func (t Timing) ExpectedEnd(pt Type, n int) time.Duration {
	return t.ExpectedStart(pt, n) + t.PerPeriod(pt)
}

// Stoppage is how far the timer ran past the expected end, floored at zero.
func Stoppage(timer, expectedEnd time.Duration) time.Duration {
	if timer <= expectedEnd {
		return 0
	}
	return timer - expectedEnd
}

// FormatStoppage renders stoppage as "+mm:ss", or "" when there is none.
func FormatStoppage(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return "+" + FormatClock(d)
}

// FormatClock renders d as "mm:ss", minutes unbounded.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
