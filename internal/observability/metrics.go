package observability

import (
	"math"
	"slices"
	"sync"
)

// SeriesSearchHits holds the number of todos each search returned.
const SeriesSearchHits = "search.hits"

// LatencySeries names the latency series of a store operation. Values are
// milliseconds.
func LatencySeries(op string) string {
	return "latency." + op
}

// MetricsCollector keeps named counters and, per named series, a window of
// the most recent observations. Safe for concurrent use.
type MetricsCollector struct {
	mu       sync.Mutex
	window   int
	counters map[string]int64
	series   map[string]*ring
}

// ring is a fixed-size window that overwrites its oldest value.
type ring struct {
	values []float64
	next   int
	total  int64
}

func (r *ring) add(v float64, window int) {
	r.total++
	if len(r.values) < window {
		r.values = append(r.values, v)
		return
	}
	r.values[r.next] = v
	r.next = (r.next + 1) % window
}

// NewMetricsCollector keeps up to window observations per series.
func NewMetricsCollector(window int) *MetricsCollector {
	if window <= 0 {
		window = 1024
	}
	return &MetricsCollector{
		window:   window,
		counters: make(map[string]int64),
		series:   make(map[string]*ring),
	}
}

// Increment adds one to a counter.
func (c *MetricsCollector) Increment(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name]++
}

// Counter returns the current value of a counter.
func (c *MetricsCollector) Counter(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

// Observe appends v to a series.
func (c *MetricsCollector) Observe(series string, v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.series[series]
	if !ok {
		r = &ring{}
		c.series[series] = r
	}
	r.add(v, c.window)
}

// Summary describes the retained window of one series. Total counts every
// observation ever made, including those that left the window.
type Summary struct {
	Total int64   `json:"total"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
}

// Report is a point-in-time copy of everything collected.
type Report struct {
	Counters map[string]int64   `json:"counters"`
	Series   map[string]Summary `json:"series"`
}

// Report copies the counters and summarizes every series.
func (c *MetricsCollector) Report() Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	rep := Report{
		Counters: make(map[string]int64, len(c.counters)),
		Series:   make(map[string]Summary, len(c.series)),
	}
	for k, v := range c.counters {
		rep.Counters[k] = v
	}
	for name, r := range c.series {
		s := summarize(r.values)
		s.Total = r.total
		rep.Series[name] = s
	}
	return rep
}

// SeriesNames returns the observed series in sorted order.
func (r Report) SeriesNames() []string {
	names := make([]string, 0, len(r.Series))
	for name := range r.Series {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return Summary{
		Count: len(sorted),
		Mean:  sum / float64(len(sorted)),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		P50:   nearestRank(sorted, 50),
		P95:   nearestRank(sorted, 95),
	}
}

// nearestRank returns the p-th percentile of sorted by the nearest-rank
// method.
func nearestRank(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
