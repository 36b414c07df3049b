// Package chart turns the history into the server-rendered net worth trend.
package chart

import (
	"fmt"
	"math"
	"strings"
	"time"

	"monthlynet/internal/core"
)

// EmptyMessage is shown in place of the chart when there is no history.
const EmptyMessage = "No data recorded yet."

// Point is one entry of the chronological series.
type Point struct {
	Label       string  `json:"date"`
	Timestamp   int64   `json:"timestamp"`
	NetWorth    float64 `json:"netWorth"`
	Assets      float64 `json:"assets"`
	Liabilities float64 `json:"liabilities"`
}

// Label renders a Unix millisecond timestamp as "Jan 25" in loc.
func Label(ts int64, loc *time.Location) string {
	return time.UnixMilli(ts).In(loc).Format("Jan 06")
}

// Series returns history as chart points in ascending timestamp order.
func Series(history []core.HistoryEntry, loc *time.Location) []Point {
	if loc == nil {
		loc = time.Local
	}
	sorted := core.SortChronological(history)
	out := make([]Point, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, Point{
			Label:       Label(e.Timestamp, loc),
			Timestamp:   e.Timestamp,
			NetWorth:    e.NetWorth,
			Assets:      e.TotalAssets,
			Liabilities: e.TotalLiabilities,
		})
	}
	return out
}

// Plot margins inside the SVG viewBox.
const (
	padLeft   = 52.0
	padRight  = 12.0
	padTop    = 12.0
	padBottom = 28.0

	tickCount     = 4
	maxAxisLabels = 12
)

type (
	// Tick is a horizontal grid line with its y-axis label.
	Tick struct {
		Y     float64
		Label string
	}

	// AxisLabel is an x-axis label under a point.
	AxisLabel struct {
		X     float64
		Label string
	}

	// Dot marks a point; Title is shown as the hover tooltip.
	Dot struct {
		X, Y  float64
		Title string
	}

	// SVG is the geometry the template draws.
	SVG struct {
		Width, Height float64
		Left, Right   float64 // plot area x bounds
		Line          string  // path data for the net worth line
		Area          string  // closed path data for the filled area
		Ticks         []Tick
		Labels        []AxisLabel
		Dots          []Dot
		Empty         bool
	}
)

// Render lays points out in a width x height viewBox.
func Render(points []Point, width, height float64) SVG {
	out := SVG{Width: width, Height: height, Left: padLeft, Right: width - padRight}
	if len(points) == 0 {
		out.Empty = true
		return out
	}

	lo, step := bounds(points)
	hi := lo + step*tickCount
	plotW := width - padLeft - padRight
	plotH := height - padTop - padBottom
	x := func(i int) float64 {
		if len(points) == 1 {
			return padLeft + plotW/2
		}
		return padLeft + plotW*float64(i)/float64(len(points)-1)
	}
	y := func(v float64) float64 {
		return padTop + plotH*(hi-v)/(hi-lo)
	}

	for i := 0; i <= tickCount; i++ {
		v := lo + step*float64(i)
		out.Ticks = append(out.Ticks, Tick{Y: round1(y(v)), Label: core.FormatThousands(v)})
	}

	every := (len(points) + maxAxisLabels - 1) / maxAxisLabels
	var line strings.Builder
	for i, p := range points {
		px, py := round1(x(i)), round1(y(p.NetWorth))
		if i == 0 {
			fmt.Fprintf(&line, "M%.1f,%.1f", px, py)
		} else {
			fmt.Fprintf(&line, " L%.1f,%.1f", px, py)
		}
		out.Dots = append(out.Dots, Dot{X: px, Y: py, Title: p.Label + ": " + core.FormatMoney(p.NetWorth)})
		if i%every == 0 || i == len(points)-1 {
			out.Labels = append(out.Labels, AxisLabel{X: px, Label: p.Label})
		}
	}
	out.Line = line.String()

	base := round1(y(lo))
	out.Area = fmt.Sprintf("%s L%.1f,%.1f L%.1f,%.1f Z",
		out.Line, round1(x(len(points)-1)), base, round1(x(0)), base)
	return out
}

// bounds returns the bottom of a y domain that includes zero and a round
// tick step such that tickCount steps cover every point.
func bounds(points []Point) (lo, step float64) {
	hi := 0.0
	for _, p := range points {
		lo = math.Min(lo, p.NetWorth)
		hi = math.Max(hi, p.NetWorth)
	}
	if hi == lo {
		hi = lo + 1000
	}
	step = niceStep((hi - lo) / tickCount)
	lo = math.Floor(lo/step) * step
	for lo+step*tickCount < hi {
		step = niceStep(step * 1.01)
		lo = math.Floor(lo/step) * step
	}
	return lo, step
}

// niceStep rounds raw up to 1, 2 or 5 times a power of ten.
func niceStep(raw float64) float64 {
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5, 10} {
		if raw <= m*mag {
			return m * mag
		}
	}
	return 10 * mag
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
