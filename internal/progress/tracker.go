package progress

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// tracker is the server-side state for one named progress counter.
type tracker struct {
	desc      string
	total     *int64
	current   int64
	interval  float64
	startTime time.Time
	lastPrint time.Time
}

func newTracker(req Request, now time.Time) *tracker {
	desc := "Progress"
	if req.Desc != nil && *req.Desc != "" {
		desc = *req.Desc
	}
	interval := defaultInterval
	if req.Interval != nil {
		interval = *req.Interval
	}
	return &tracker{
		desc:      desc,
		total:     req.Total,
		current:   0,
		interval:  interval,
		startTime: now,
	}
}

// add applies a count increment, returning whether a line should print per
// the interval throttle.
func (t *tracker) add(count int64, now time.Time) bool {
	t.current += count
	if now.Sub(t.lastPrint).Seconds() > t.interval {
		t.lastPrint = now
		return true
	}
	return false
}

// line renders the tracker's current state as one printable progress line.
func (t *tracker) line(now time.Time) string {
	parts := []string{t.desc, t.bar(), t.rate(now)}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func (t *tracker) bar() string {
	if t.total == nil {
		return fmt.Sprintf("[%d]", t.current)
	}
	total := *t.total
	width := len(strconv.FormatInt(total, 10))

	pct := 0.0
	if total > 0 {
		pct = float64(t.current) / float64(total) * 100
	}

	ticks := 0
	if total > 0 {
		ticks = int(math.Round(float64(t.current) / float64(total) * 10))
	}
	if ticks > 10 {
		ticks = 10
	}
	if ticks < 0 {
		ticks = 0
	}

	return fmt.Sprintf("%*d/%d (%7.2f%%) [%s%s]",
		width, t.current, total, pct,
		strings.Repeat("#", ticks), strings.Repeat(" ", 10-ticks))
}

func (t *tracker) snapshot(uuid string) TrackerSnapshot {
	return TrackerSnapshot{UUID: uuid, Desc: t.desc, Current: t.current, Total: t.total}
}

func (t *tracker) rate(now time.Time) string {
	elapsed := now.Sub(t.startTime).Seconds()
	if elapsed <= 0 || t.current <= 0 {
		return "? it/s"
	}
	rate := float64(t.current) / elapsed
	if rate >= 1.0 {
		return fmt.Sprintf("%.2f it/s", rate)
	}
	return fmt.Sprintf("%.2f s/it", 1.0/rate)
}
