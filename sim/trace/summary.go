package trace

import "github.com/cstopics/cstopics/sim"

// TimelineSummary aggregates statistics from a finished timeline.
type TimelineSummary struct {
	TotalEvents int            `json:"total_events" yaml:"total_events"`
	StartTime   int64          `json:"start_time" yaml:"start_time"`
	EndTime     int64          `json:"end_time" yaml:"end_time"`
	ByType      map[string]int `json:"by_type" yaml:"by_type"`
}

// Summarize computes aggregate statistics from a list of event headers.
// Safe for nil or empty input (returns zero-value fields).
func Summarize(frames []sim.Frame) *TimelineSummary {
	summary := &TimelineSummary{ByType: make(map[string]int)}
	if len(frames) == 0 {
		return summary
	}
	summary.TotalEvents = len(frames)
	summary.StartTime = frames[0].Time
	summary.EndTime = frames[len(frames)-1].Time
	for _, f := range frames {
		summary.ByType[f.Type]++
	}
	return summary
}

// Headers extracts the frames of a typed timeline.
func Headers[E sim.Event](events []E) []sim.Frame {
	out := make([]sim.Frame, len(events))
	for i, e := range events {
		out[i] = e.Header()
	}
	return out
}
