// Package plot computes chart geometry for battery history: value ranges,
// time-axis ticks and the polylines that represent each series. It has no
// toolkit dependency; the window maps the results onto canvas objects.
package plot

import (
	"math"
	"time"

	"github.com/cptspacemanspiff/battmon/internal/history"
)

// Rect is a plot area in device coordinates. Y grows downwards.
type Rect struct {
	X, Y, W, H float64
}

// Pos is one projected point.
type Pos struct {
	X, Y float64
}

// Tick is one time-axis label. Frac is the position across the plot, 0..1.
type Tick struct {
	Time  time.Time
	Frac  float64
	Label string
}

const maxTicks = 12

// TimeTicks returns the labelled grid lines strictly between from and to.
func TimeTicks(from, to time.Time) []Tick {
	dur := to.Sub(from)
	if dur <= 0 {
		return nil
	}

	var step time.Duration
	var format string
	switch {
	case dur <= 30*time.Minute:
		step = 5 * time.Minute
		format = "15:04"
	case dur <= 2*time.Hour:
		step = 15 * time.Minute
		format = "15:04"
	case dur <= 8*time.Hour:
		step = time.Hour
		format = "15:04"
	case dur <= 2*24*time.Hour:
		step = 3 * time.Hour
		format = "15:04"
	case dur <= 8*24*time.Hour:
		step = 24 * time.Hour
		format = "Jan 2"
	case dur <= 45*24*time.Hour:
		step = 7 * 24 * time.Hour
		format = "Jan 2"
	default:
		step = 30 * 24 * time.Hour
		format = "Jan 2006"
	}
	for dur/step > maxTicks {
		step *= 2
	}

	var ticks []Tick
	for t := from.Truncate(step).Add(step); t.Before(to); t = t.Add(step) {
		ticks = append(ticks, Tick{
			Time:  t,
			Frac:  float64(t.Sub(from)) / float64(dur),
			Label: t.Format(format),
		})
	}
	return ticks
}

// ValueRange returns the y-axis bounds for field over all series. Capacity
// is pinned to 0..max(100, highest value); other fields span the numeric
// values with 5% padding. Without numeric values the range is 0..1.
func ValueRange(field string, series []history.Series) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, p := range s.Points {
			if !p.Value.Numeric {
				continue
			}
			lo = math.Min(lo, p.Value.Number)
			hi = math.Max(hi, p.Value.Number)
		}
	}

	if field == history.FieldCapacity {
		if math.IsInf(hi, -1) || hi < 100 {
			hi = 100
		}
		return 0, hi
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}

	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.05, 0.5)
	}
	return lo - pad, hi + pad
}

// ValueTicks returns n+1 evenly spaced values from lo to hi.
func ValueTicks(lo, hi float64, n int) []float64 {
	if n < 1 {
		return []float64{lo, hi}
	}
	out := make([]float64, n+1)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n)
	}
	return out
}

// Segments projects points into rect, where from..to spans the width and
// lo..hi the height. A new segment starts after a non-numeric value and
// whenever consecutive points are more than gap apart; gap <= 0 disables the
// time split. Points outside from..to are dropped.
func Segments(points []history.Point, rect Rect, from, to time.Time, lo, hi float64, gap time.Duration) [][]Pos {
	span := to.Sub(from)
	if span <= 0 || hi <= lo {
		return nil
	}

	var out [][]Pos
	var cur []Pos
	var prev time.Time
	flush := func() {
		if len(cur) > 0 {
			out = append(out, cur)
			cur = nil
		}
	}

	for _, p := range points {
		if p.Time.Before(from) || p.Time.After(to) {
			continue
		}
		if !p.Value.Numeric {
			flush()
			continue
		}
		if len(cur) > 0 && gap > 0 && p.Time.Sub(prev) > gap {
			flush()
		}
		x := rect.X + float64(p.Time.Sub(from))/float64(span)*rect.W
		y := rect.Y + rect.H - (p.Value.Number-lo)/(hi-lo)*rect.H
		cur = append(cur, Pos{X: x, Y: y})
		prev = p.Time
	}
	flush()
	return out
}

// Extent returns the earliest and latest point time over all series.
func Extent(series []history.Series) (from, to time.Time, ok bool) {
	for _, s := range series {
		for _, p := range s.Points {
			if !ok || p.Time.Before(from) {
				from = p.Time
			}
			if !ok || p.Time.After(to) {
				to = p.Time
			}
			ok = true
		}
	}
	return from, to, ok
}
