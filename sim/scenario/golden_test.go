package scenario

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/cstopics/cstopics/sim"
	"github.com/cstopics/cstopics/sim/internal/testutil"
)

// TestExecute_GoldenDataset runs every case of testdata/goldendataset.json
// and checks the outcome fields each case pins down.
func TestExecute_GoldenDataset(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)

	for _, tc := range dataset.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			var run RunSpec
			decoder := json.NewDecoder(bytes.NewReader(tc.Run))
			decoder.DisallowUnknownFields()
			if err := decoder.Decode(&run); err != nil {
				t.Fatalf("decode run: %v", err)
			}
			if err := CheckRunSchema(run); err != nil {
				t.Fatalf("schema: %v", err)
			}

			out := Execute(run, sim.NewPartitionedRNG(sim.NewSimulationKey(tc.Seed)))
			if !out.OK() {
				t.Fatalf("run failed: %s", out.Error)
			}
			testutil.AssertGolden(t, tc.Name, out, tc.Expect)
		})
	}
}
