package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/cstopics/cstopics/sim/scenario"
)

var validOutputFormats = map[string]bool{"text": true, "json": true, "yaml": true}

// writeOutcomes renders outcomes in the requested format. Text output prints
// each run's steps followed by its result as YAML.
func writeOutcomes(w io.Writer, outcomes []scenario.Outcome, format string) error {
	if format != "text" {
		return writeValue(w, outcomes, format)
	}
	for i, o := range outcomes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "=== %s (%s) run %s\n", o.Name, o.Kind, o.RunID)
		if !o.OK() {
			fmt.Fprintf(w, "error: %s\n", o.Error)
			continue
		}
		for n, step := range o.Steps {
			fmt.Fprintf(w, "%3d. %s\n", n+1, step)
		}
		if o.Summary != nil {
			fmt.Fprintf(w, "--- %d events, t=%d..%d\n", o.Summary.TotalEvents, o.Summary.StartTime, o.Summary.EndTime)
		}
		data, err := yaml.Marshal(resultWithoutTimeline(o.Result))
		if err != nil {
			return fmt.Errorf("YAML marshal failed: %w", err)
		}
		fmt.Fprintln(w, "--- result")
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// writeValue encodes v as indented JSON, or as YAML for any other format.
func writeValue(w io.Writer, v any, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("YAML marshal failed: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// resultWithoutTimeline drops the events list from generator results, which
// text output already shows as numbered steps.
func resultWithoutTimeline(result any) any {
	data, err := json.Marshal(result)
	if err != nil {
		return result
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return result
	}
	delete(m, "events")
	for _, nested := range []string{"initial", "reconverged"} {
		if sub, ok := m[nested].(map[string]any); ok {
			delete(sub, "events")
		}
	}
	return m
}

func countFailed(outcomes []scenario.Outcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}
