// Package interval computes a jornada's effective worked time from a set of
// possibly-overlapping activity time spans.
package interval

import (
	"sort"
	"time"

	"github.com/prodtrack/jornada/internal/model"
)

// maxSpan caps a single activity's interval. A span that still exceeds this
// after midnight-crossing normalization is treated as untimed.
const maxSpan = 24 * time.Hour

// Result holds the derived time aggregates for one activity set. Computation
// is pure: the same input always yields the same Result.
type Result struct {
	RawSumMinutes       int
	EffectiveMinutes    int
	RangeMinutes        int
	RangeStart          *time.Time
	RangeEnd            *time.Time
	MergedIntervalCount int
	TimedCount          int
	HasOverlap          bool
}

type span struct {
	start, end time.Time
}

// ComputeEffectiveTime merges the timed spans of the given activities and
// returns raw, effective and outer-range totals in whole minutes.
//
// Untimed activities (missing or invalid start/end) are excluded from the
// interval math but still count toward RawSumMinutes. Spans with end at or
// before start are assumed to cross midnight and get 24 hours added to the
// end; a span still longer than 24 hours is rejected as untimed.
func ComputeEffectiveTime(activities []*model.Activity) Result {
	var res Result

	spans := make([]span, 0, len(activities))
	timedDeclared := 0
	for _, a := range activities {
		if a == nil {
			continue
		}
		res.RawSumMinutes += a.DurationMinutes
		if s, ok := normalizeSpan(a); ok {
			spans = append(spans, s)
			timedDeclared += a.DurationMinutes
		}
	}
	res.TimedCount = len(spans)
	if len(spans) == 0 {
		return res
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })

	// Sweep: extend the open interval while the next span starts at or before
	// its end. Touching at the boundary merges but is not an overlap; only a
	// start strictly inside the open interval double-counts time.
	cur := spans[0]
	merged := 0
	effective := 0
	strictOverlap := false
	for _, s := range spans[1:] {
		if !s.start.After(cur.end) {
			if s.start.Before(cur.end) {
				strictOverlap = true
			}
			if s.end.After(cur.end) {
				cur.end = s.end
			}
			continue
		}
		effective += minutesBetween(cur.start, cur.end)
		merged++
		cur = s
	}
	effective += minutesBetween(cur.start, cur.end)
	merged++

	res.EffectiveMinutes = effective
	res.MergedIntervalCount = merged
	rangeStart := spans[0].start
	rangeEnd := cur.end
	res.RangeStart = &rangeStart
	res.RangeEnd = &rangeEnd
	res.RangeMinutes = minutesBetween(rangeStart, rangeEnd)
	res.HasOverlap = strictOverlap || effective < timedDeclared
	return res
}

// normalizeSpan validates an activity's start/end pair, applying the
// midnight-crossing rule.
func normalizeSpan(a *model.Activity) (span, bool) {
	if a.Start == nil || a.End == nil || a.Start.IsZero() || a.End.IsZero() {
		return span{}, false
	}
	start, end := *a.Start, *a.End
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	if !end.After(start) || end.Sub(start) > maxSpan {
		return span{}, false
	}
	return span{start: start, end: end}, true
}

// minutesBetween rounds the millisecond difference half-up to whole minutes.
func minutesBetween(a, b time.Time) int {
	ms := b.Sub(a).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int((ms + 30_000) / 60_000)
}
