package chart

import (
	"strings"
	"testing"
	"time"

	"monthlynet/internal/core"
)

func entry(id string, at time.Time, net float64) core.HistoryEntry {
	return core.HistoryEntry{ID: id, Timestamp: at.UnixMilli(), NetWorth: net, TotalAssets: net + 100, TotalLiabilities: 100}
}

func TestSeriesIsChronological(t *testing.T) {
	history := []core.HistoryEntry{
		entry("c", time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), 300),
		entry("a", time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC), 100),
		entry("b", time.Date(2025, 2, 15, 12, 0, 0, 0, time.UTC), 200),
	}

	got := Series(history, time.UTC)
	want := []string{"Jan 25", "Feb 25", "Mar 25"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.Label != want[i] {
			t.Errorf("point %d label = %q, want %q", i, p.Label, want[i])
		}
	}
	if got[0].NetWorth != 100 || got[0].Assets != 200 || got[0].Liabilities != 100 {
		t.Errorf("unexpected first point: %+v", got[0])
	}
}

func TestRenderEmpty(t *testing.T) {
	svg := Render(nil, 600, 240)
	if !svg.Empty {
		t.Fatal("expected empty chart")
	}
	if svg.Line != "" || len(svg.Ticks) != 0 {
		t.Errorf("empty chart should have no geometry: %+v", svg)
	}
}

func TestRenderTicksAndPath(t *testing.T) {
	points := []Point{
		{Label: "Jan 25", NetWorth: 1000},
		{Label: "Feb 25", NetWorth: 12500},
	}
	svg := Render(points, 300, 200)

	var labels []string
	for _, tk := range svg.Ticks {
		labels = append(labels, tk.Label)
	}
	if got := strings.Join(labels, " "); got != "$0k $5k $10k $15k $20k" {
		t.Errorf("ticks = %q", got)
	}
	if svg.Ticks[0].Y != 172 || svg.Ticks[len(svg.Ticks)-1].Y != 12 {
		t.Errorf("tick positions = %v .. %v", svg.Ticks[0].Y, svg.Ticks[len(svg.Ticks)-1].Y)
	}

	if !strings.HasPrefix(svg.Line, "M52.0,") {
		t.Errorf("line should start at the left edge: %q", svg.Line)
	}
	if !strings.HasSuffix(svg.Area, "Z") || !strings.HasPrefix(svg.Area, svg.Line) {
		t.Errorf("area should close the line path: %q", svg.Area)
	}
	if svg.Dots[1].Y >= svg.Dots[0].Y {
		t.Errorf("higher net worth should plot higher: %+v", svg.Dots)
	}
	if svg.Dots[1].Title != "Feb 25: $12,500" {
		t.Errorf("dot title = %q", svg.Dots[1].Title)
	}
}

func TestRenderSinglePointIsCentered(t *testing.T) {
	svg := Render([]Point{{Label: "Jan 25", NetWorth: 500}}, 300, 200)
	if len(svg.Dots) != 1 {
		t.Fatalf("dots = %d", len(svg.Dots))
	}
	if svg.Dots[0].X != 170 {
		t.Errorf("x = %v, want 170", svg.Dots[0].X)
	}
}

func TestRenderNegativeNetWorth(t *testing.T) {
	svg := Render([]Point{{NetWorth: -2000}, {NetWorth: 3000}}, 300, 200)
	if svg.Ticks[0].Label != "$-2k" {
		t.Errorf("lowest tick = %q", svg.Ticks[0].Label)
	}
	top := svg.Ticks[len(svg.Ticks)-1].Label
	if top != "$6k" {
		t.Errorf("highest tick = %q", top)
	}
}

func TestAxisLabelsThinOut(t *testing.T) {
	points := make([]Point, 30)
	for i := range points {
		points[i] = Point{Label: "x", NetWorth: float64(i)}
	}
	svg := Render(points, 600, 240)
	if len(svg.Labels) > maxAxisLabels+1 {
		t.Errorf("too many axis labels: %d", len(svg.Labels))
	}
	if last := svg.Labels[len(svg.Labels)-1]; last.X != svg.Dots[len(svg.Dots)-1].X {
		t.Errorf("last point should always be labelled")
	}
}
