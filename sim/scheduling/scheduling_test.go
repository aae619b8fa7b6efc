package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cstopics/cstopics/sim"
)

func convoy() []Process {
	return []Process{
		{ID: "P1", Burst: 24},
		{ID: "P2", Burst: 3},
		{ID: "P3", Burst: 3},
	}
}

func waits(res Result) []int {
	out := make([]int, len(res.Stats))
	for i, s := range res.Stats {
		out[i] = s.Waiting
	}
	return out
}

func TestSchedule_TextbookExamples(t *testing.T) {
	tests := []struct {
		name    string
		alg     string
		procs   []Process
		quantum int
		gantt   []Slice
		waiting []int
		avgWait float64
	}{
		{
			name:    "FCFS convoy effect",
			alg:     FCFS,
			procs:   convoy(),
			gantt:   []Slice{{"P1", 0, 24}, {"P2", 24, 27}, {"P3", 27, 30}},
			waiting: []int{0, 24, 27},
			avgWait: 17,
		},
		{
			name:    "SJF",
			alg:     SJF,
			procs:   convoy(),
			gantt:   []Slice{{"P2", 0, 3}, {"P3", 3, 6}, {"P1", 6, 30}},
			waiting: []int{6, 0, 3},
			avgWait: 3,
		},
		{
			name:    "RR quantum 4",
			alg:     RR,
			procs:   convoy(),
			quantum: 4,
			gantt:   []Slice{{"P1", 0, 4}, {"P2", 4, 7}, {"P3", 7, 10}, {"P1", 10, 30}},
			waiting: []int{6, 4, 7},
			avgWait: 17.0 / 3,
		},
		{
			name: "SRTF",
			alg:  SRTF,
			procs: []Process{
				{ID: "P1", Arrival: 0, Burst: 8},
				{ID: "P2", Arrival: 1, Burst: 4},
				{ID: "P3", Arrival: 2, Burst: 9},
				{ID: "P4", Arrival: 3, Burst: 5},
			},
			gantt:   []Slice{{"P1", 0, 1}, {"P2", 1, 5}, {"P4", 5, 10}, {"P1", 10, 17}, {"P3", 17, 26}},
			waiting: []int{9, 0, 15, 2},
			avgWait: 6.5,
		},
		{
			name: "non-preemptive priority",
			alg:  Priority,
			procs: []Process{
				{ID: "P1", Burst: 10, Priority: 3},
				{ID: "P2", Burst: 1, Priority: 1},
				{ID: "P3", Burst: 2, Priority: 4},
				{ID: "P4", Burst: 1, Priority: 5},
				{ID: "P5", Burst: 5, Priority: 2},
			},
			gantt:   []Slice{{"P2", 0, 1}, {"P5", 1, 6}, {"P1", 6, 16}, {"P3", 16, 18}, {"P4", 18, 19}},
			waiting: []int{6, 0, 16, 18, 1},
			avgWait: 8.2,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Schedule(tc.alg, tc.procs, tc.quantum)
			require.NoError(t, err)
			assert.Equal(t, tc.gantt, res.Gantt)
			assert.Equal(t, tc.waiting, waits(res))
			assert.InDelta(t, tc.avgWait, res.AvgWaiting, 1e-9)
			assert.Equal(t, 1.0, res.Utilization)
			require.NoError(t, sim.CheckTimeline(res.Events, false))
			assert.Equal(t, EventDone, res.Events[len(res.Events)-1].Type)
		})
	}
}

func TestSchedule_IdleGap(t *testing.T) {
	// GIVEN a process that arrives after the CPU has gone idle
	procs := []Process{{ID: "A", Burst: 2}, {ID: "B", Arrival: 5, Burst: 1}}

	// WHEN scheduled first come first served
	res, err := Schedule("fcfs", procs, 0)
	require.NoError(t, err)

	// THEN the Gantt chart shows the idle stretch
	assert.Equal(t, []Slice{{"A", 0, 2}, {"", 2, 5}, {"B", 5, 6}}, res.Gantt)
	assert.Equal(t, 6, res.Makespan)
	assert.InDelta(t, 0.5, res.Utilization, 1e-9)
	assert.Equal(t, 1, sim.CountByType(res.Events)[EventIdle])
}

func TestSchedule_MetricsConsistent(t *testing.T) {
	procs := []Process{
		{ID: "A", Arrival: 0, Burst: 5, Priority: 2},
		{ID: "B", Arrival: 2, Burst: 3, Priority: 1},
		{ID: "C", Arrival: 4, Burst: 1, Priority: 3},
		{ID: "D", Arrival: 6, Burst: 2, Priority: 1},
	}
	for _, alg := range Algorithms() {
		res, err := Schedule(alg, procs, 2)
		require.NoError(t, err, alg)

		served := map[string]int{}
		for _, s := range res.Gantt {
			served[s.Process] += s.End - s.Start
		}
		for i, st := range res.Stats {
			assert.Equal(t, procs[i].Burst, served[st.ID], "%s: %s CPU time", alg, st.ID)
			assert.Equal(t, st.Completion-st.Arrival, st.Turnaround)
			assert.Equal(t, st.Turnaround-st.Burst, st.Waiting)
			assert.GreaterOrEqual(t, st.Waiting, 0)
			assert.LessOrEqual(t, st.Response, st.Waiting)
		}
		assert.Equal(t, len(procs), sim.CountByType(res.Events)[EventComplete], alg)
	}
}

func TestSchedule_Errors(t *testing.T) {
	_, err := Schedule("LOTTERY", convoy(), 0)
	assert.ErrorIs(t, err, ErrAlgorithm)
	_, err = Schedule(RR, convoy(), 0)
	assert.ErrorIs(t, err, ErrQuantum)
	_, err = Schedule(FCFS, nil, 0)
	assert.ErrorIs(t, err, ErrProcess)
	_, err = Schedule(FCFS, []Process{{ID: "A", Burst: 1}, {ID: "A", Burst: 2}}, 0)
	assert.ErrorIs(t, err, ErrProcess)
	_, err = Schedule(FCFS, []Process{{ID: "A", Burst: 0}}, 0)
	assert.ErrorIs(t, err, ErrProcess)
	_, err = Schedule(FCFS, []Process{{ID: "A", Arrival: -1, Burst: 1}}, 0)
	assert.ErrorIs(t, err, ErrProcess)
}
